package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/loom/internal/memstore"
)

type memoryAddRequest struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
	Content    string `json:"content"`
}

func (s *Server) handleListMemory(c *echo.Context) error {
	if s.store == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "memory store not configured")
	}
	entries := s.store.List(c.QueryParam("type"))
	return c.JSON(http.StatusOK, map[string]any{
		"object": "list",
		"data":   entries,
	})
}

func (s *Server) handleAddMemory(c *echo.Context) error {
	if s.store == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "memory store not configured")
	}
	req, err := decodeJSON[memoryAddRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if req.Type == "" || req.Content == "" {
		return writeBadRequest(c, "type and content are required")
	}
	entry, err := s.store.Add(req.Type, req.Identifier, req.Content)
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}
	return c.JSON(http.StatusCreated, entry)
}

func (s *Server) handleGetMemory(c *echo.Context) error {
	if s.store == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "memory store not configured")
	}
	entry, err := s.store.Get(c.Param("id"))
	if errors.Is(err, memstore.ErrNotFound) {
		return writeNotFound(c, "memory entry not found")
	}
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}
	return c.JSON(http.StatusOK, entry)
}

func (s *Server) handleDeleteMemory(c *echo.Context) error {
	if s.store == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "memory store not configured")
	}
	id := c.Param("id")
	err := s.store.Delete(id)
	if errors.Is(err, memstore.ErrNotFound) {
		return writeNotFound(c, "memory entry not found")
	}
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"id":      id,
		"object":  "memory.entry",
		"deleted": true,
	})
}

// Package api exposes the generation pipeline over HTTP: an
// OpenAI-style completions endpoint with SSE streaming, plus CRUD for the
// memory store.
package api

import (
	"context"
	"sync"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/loom/internal/engine"
	"github.com/samcharles93/loom/internal/inference"
	"github.com/samcharles93/loom/internal/logger"
	"github.com/samcharles93/loom/internal/memstore"
)

// EngineProvider hands an engine to exactly one request at a time. Engines
// are stateful and single-session, so access has to be brokered.
type EngineProvider interface {
	WithEngine(ctx context.Context, fn func(eng engine.Engine) error) error
}

// SerialProvider guards a single engine handle with a mutex. Requests that
// arrive while a generation is running wait their turn.
type SerialProvider struct {
	mu  sync.Mutex
	eng engine.Engine
}

func NewSerialProvider(eng engine.Engine) *SerialProvider {
	return &SerialProvider{eng: eng}
}

func (p *SerialProvider) WithEngine(ctx context.Context, fn func(eng engine.Engine) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return fn(p.eng)
}

type Server struct {
	provider EngineProvider
	store    *memstore.Store
	base     inference.Config
	model    string
	log      logger.Logger
	clock    func() time.Time
}

// NewServer wires the API against a provider and a memory store. base is
// the startup configuration that per-request options are resolved over;
// model is the name reported by /v1/models.
func NewServer(provider EngineProvider, store *memstore.Store, base inference.Config, model string, log logger.Logger) *Server {
	if model == "" {
		model = "loom"
	}
	if log == nil {
		log = logger.Default()
	}
	return &Server{
		provider: provider,
		store:    store,
		base:     base,
		model:    model,
		log:      log,
		clock:    time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/models", s.handleListModels)
	e.POST("/v1/completions", s.handleCompletions)

	e.GET("/v1/memory", s.handleListMemory)
	e.POST("/v1/memory", s.handleAddMemory)
	e.GET("/v1/memory/:id", s.handleGetMemory)
	e.DELETE("/v1/memory/:id", s.handleDeleteMemory)
}

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/loom/internal/memstore"
)

func memoryCmd() *cli.Command {
	var storePath string

	storeFlag := &cli.StringFlag{
		Name:        "store",
		Usage:       "memory store path",
		Value:       defaultMemoryPath(),
		Destination: &storePath,
	}

	return &cli.Command{
		Name:  "memory",
		Usage: "Manage the persistent memory store",
		Commands: []*cli.Command{
			{
				Name:  "seed",
				Usage: "Import prompts, characters and banned words from seed files",
				Flags: append([]cli.Flag{
					storeFlag,
					&cli.StringFlag{Name: "prompts", Usage: "system prompt seed file"},
					&cli.StringFlag{Name: "characters", Usage: "character information seed file"},
					&cli.StringFlag{Name: "banned", Usage: "banned words seed file"},
					&cli.StringFlag{Name: "banned-exclusions", Usage: "banned word exclusion file"},
				}, loggingFlags()...),
				Action: func(ctx context.Context, c *cli.Command) error {
					log := buildLogger()
					store, err := memstore.Open(storePath)
					if err != nil {
						return err
					}

					if path := c.String("prompts"); path != "" {
						n, err := seedFromFile(path, func(f *os.File) (int, error) {
							return memstore.SeedSystemPrompts(store, f)
						})
						if err != nil {
							return err
						}
						log.Info("seeded system prompts", "count", n, "file", path)
					}

					if path := c.String("characters"); path != "" {
						n, err := seedFromFile(path, func(f *os.File) (int, error) {
							return memstore.SeedCharacterInfo(store, f)
						})
						if err != nil {
							return err
						}
						log.Info("seeded characters", "count", n, "file", path)
					}

					if path := c.String("banned"); path != "" {
						n, err := seedFromFile(path, func(f *os.File) (int, error) {
							exclPath := c.String("banned-exclusions")
							if exclPath == "" {
								return memstore.SeedBannedWords(store, f, nil)
							}
							excl, err := os.Open(exclPath)
							if err != nil {
								return 0, err
							}
							defer excl.Close()
							return memstore.SeedBannedWords(store, f, excl)
						})
						if err != nil {
							return err
						}
						log.Info("seeded banned words", "count", n, "file", path)
					}
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List stored entries",
				Flags: []cli.Flag{
					storeFlag,
					&cli.StringFlag{Name: "type", Usage: "filter by entry type"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					store, err := memstore.Open(storePath)
					if err != nil {
						return err
					}
					for _, entry := range store.List(c.String("type")) {
						fmt.Printf("%s  %-20s  %-12s  %s\n",
							entry.ID, entry.Type, entry.Identifier, truncate(entry.Content, 60))
					}
					return nil
				},
			},
			{
				Name:      "add",
				Usage:     "Add an entry",
				ArgsUsage: "<type> <identifier> <content>",
				Flags:     []cli.Flag{storeFlag},
				Action: func(ctx context.Context, c *cli.Command) error {
					args := c.Args().Slice()
					if len(args) != 3 {
						return cli.Exit("usage: loom memory add <type> <identifier> <content>", 1)
					}
					store, err := memstore.Open(storePath)
					if err != nil {
						return err
					}
					entry, err := store.Add(args[0], args[1], args[2])
					if err != nil {
						return err
					}
					fmt.Println(entry.ID)
					return nil
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete an entry by id",
				ArgsUsage: "<id>",
				Flags:     []cli.Flag{storeFlag},
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return cli.Exit("usage: loom memory delete <id>", 1)
					}
					store, err := memstore.Open(storePath)
					if err != nil {
						return err
					}
					return store.Delete(c.Args().First())
				},
			},
		},
	}
}

func defaultMemoryPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "memory.json"
	}
	return filepath.Join(dir, "loom", "memory.json")
}

func seedFromFile(path string, fn func(*os.File) (int, error)) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return fn(f)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

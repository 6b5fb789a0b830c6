package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func getCommand() *cli.Command {
	var cfg config

	flags := append(globalFlags(&cfg), embeddingFlags(&cfg)...)

	return &cli.Command{
		Name:      "get",
		Usage:     "Retrieve a memory by ID",
		ArgsUsage: "<memory-id>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.configure(ctx)
			if err != nil {
				return err
			}
			if err := cfg.requireScope(); err != nil {
				return err
			}

			id := c.Args().First()
			if id == "" {
				return goerr.New("memory ID is required")
			}

			uc, err := cfg.newUseCase()
			if err != nil {
				return err
			}
			defer uc.Close()

			mem, err := uc.Get(ctx, cfg.tenant, cfg.project, model.MemoryID(id))
			if err != nil {
				return goerr.Wrap(err, "failed to get memory")
			}

			body, err := json.MarshalIndent(mem, "", "  ")
			if err != nil {
				return goerr.Wrap(err, "failed to encode memory")
			}

			fmt.Fprintln(c.Root().Writer, string(body))
			return nil
		},
	}
}

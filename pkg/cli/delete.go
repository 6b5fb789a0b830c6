package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func deleteCommand() *cli.Command {
	var cfg config

	flags := append(globalFlags(&cfg), embeddingFlags(&cfg)...)

	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a memory by ID",
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

			if err := uc.Delete(ctx, cfg.tenant, cfg.project, model.MemoryID(id)); err != nil {
				return goerr.Wrap(err, "failed to delete memory")
			}

			fmt.Fprintf(c.Root().Writer, "Memory deleted: %s\n", id)
			return nil
		},
	}
}

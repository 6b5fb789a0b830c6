package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/engram/pkg/usecase/memory"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func updateCommand() *cli.Command {
	var (
		cfg      config
		content  string
		metaJSON string
		tags     []string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "content",
			Aliases:     []string{"c"},
			Usage:       "New content; triggers re-embedding when changed",
			Destination: &content,
		},
		&cli.StringFlag{
			Name:        "meta",
			Aliases:     []string{"m"},
			Usage:       "Replacement metadata as a JSON object",
			Destination: &metaJSON,
		},
		&cli.StringSliceFlag{
			Name:        "tag",
			Usage:       "Replacement tag (repeatable); the full tag set is replaced",
			Destination: &tags,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, embeddingFlags(&cfg)...)

	return &cli.Command{
		Name:      "update",
		Usage:     "Update content, metadata or tags of a memory",
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

			input := &memory.UpdateInput{
				TenantID:  cfg.tenant,
				ProjectID: cfg.project,
				ID:        model.MemoryID(id),
			}

			if c.IsSet("content") {
				input.Content = &content
			}
			if c.IsSet("meta") {
				var meta model.Metadata
				if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
					return goerr.Wrap(err, "failed to parse metadata JSON")
				}
				input.Metadata = &meta
			}
			if c.IsSet("tag") {
				input.Tags = &tags
			}

			uc, err := cfg.newUseCase()
			if err != nil {
				return err
			}
			defer uc.Close()

			updated, err := uc.Update(ctx, input)
			if err != nil {
				return goerr.Wrap(err, "failed to update memory")
			}

			body, err := json.MarshalIndent(updated, "", "  ")
			if err != nil {
				return goerr.Wrap(err, "failed to encode memory")
			}

			fmt.Fprintln(c.Root().Writer, string(body))
			return nil
		},
	}
}

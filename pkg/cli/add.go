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

func addCommand() *cli.Command {
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
			Usage:       "Text of the memory to store",
			Destination: &content,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "meta",
			Aliases:     []string{"m"},
			Usage:       "Metadata as a JSON object",
			Destination: &metaJSON,
		},
		&cli.StringSliceFlag{
			Name:        "tag",
			Usage:       "Tag to attach (repeatable)",
			Destination: &tags,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, embeddingFlags(&cfg)...)

	return &cli.Command{
		Name:  "add",
		Usage: "Store a new memory",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.configure(ctx)
			if err != nil {
				return err
			}
			if err := cfg.requireScope(); err != nil {
				return err
			}

			var meta model.Metadata
			if metaJSON != "" {
				if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
					return goerr.Wrap(err, "failed to parse metadata JSON")
				}
			}

			uc, err := cfg.newUseCase()
			if err != nil {
				return err
			}
			defer uc.Close()

			id, err := uc.Add(ctx, &memory.AddInput{
				TenantID:  cfg.tenant,
				ProjectID: cfg.project,
				Content:   content,
				Metadata:  meta,
				Tags:      tags,
			})
			if err != nil {
				return goerr.Wrap(err, "failed to add memory")
			}

			fmt.Fprintf(c.Root().Writer, "Memory created: %s\n", id)
			return nil
		},
	}
}

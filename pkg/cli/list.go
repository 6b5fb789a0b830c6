package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/engram/pkg/usecase/memory"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func listCommand() *cli.Command {
	var (
		cfg    config
		tags   []string
		offset int64
		limit  int64
	)

	flags := []cli.Flag{
		&cli.StringSliceFlag{
			Name:        "tag",
			Usage:       "Only list memories carrying this tag (repeatable, AND)",
			Destination: &tags,
		},
		&cli.IntFlag{
			Name:        "offset",
			Usage:       "Offset for pagination",
			Value:       0,
			Destination: &offset,
		},
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"l"},
			Usage:       "Maximum number of memories to list",
			Value:       10,
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, embeddingFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List memories, newest first",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.configure(ctx)
			if err != nil {
				return err
			}
			if err := cfg.requireScope(); err != nil {
				return err
			}

			uc, err := cfg.newUseCase()
			if err != nil {
				return err
			}
			defer uc.Close()

			memories, err := uc.List(ctx, &memory.ListInput{
				TenantID:   cfg.tenant,
				ProjectID:  cfg.project,
				FilterTags: tags,
				Offset:     int(offset),
				Limit:      int(limit),
			})
			if err != nil {
				return goerr.Wrap(err, "failed to list memories")
			}

			for _, m := range memories {
				fmt.Fprintf(c.Root().Writer, "%s\t%s\t%s\t%s\n",
					m.ID, m.CreatedAt.Format("2006-01-02 15:04:05"),
					strings.Join(m.Tags, ","), summarize(m.Content, 80))
			}

			return nil
		},
	}
}

func summarize(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/engram/pkg/usecase/memory"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func searchCommand() *cli.Command {
	var (
		cfg   config
		query string
		tags  []string
		metas []string
		limit int64
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "query",
			Aliases:     []string{"q"},
			Usage:       "Natural language query",
			Destination: &query,
			Required:    true,
		},
		&cli.StringSliceFlag{
			Name:        "tag",
			Usage:       "Only return memories carrying this tag (repeatable, AND)",
			Destination: &tags,
		},
		&cli.StringSliceFlag{
			Name:        "meta",
			Usage:       "Metadata filter as key=value (repeatable)",
			Destination: &metas,
		},
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"l"},
			Usage:       "Maximum number of results",
			Value:       10,
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, embeddingFlags(&cfg)...)

	return &cli.Command{
		Name:  "search",
		Usage: "Hybrid search combining semantic similarity and keyword relevance",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.configure(ctx)
			if err != nil {
				return err
			}
			if err := cfg.requireScope(); err != nil {
				return err
			}

			filterMeta := map[string]string{}
			for _, kv := range metas {
				key, value, ok := strings.Cut(kv, "=")
				if !ok {
					return goerr.New("metadata filter must be key=value", goerr.Value("filter", kv))
				}
				filterMeta[key] = value
			}

			uc, err := cfg.newUseCase()
			if err != nil {
				return err
			}
			defer uc.Close()

			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
			sp.Suffix = " Searching..."
			sp.Start()

			hits, err := uc.Search(ctx, &memory.SearchInput{
				TenantID:   cfg.tenant,
				ProjectID:  cfg.project,
				Query:      query,
				FilterTags: tags,
				FilterMeta: filterMeta,
				Limit:      int(limit),
			})
			sp.Stop()
			if err != nil {
				return goerr.Wrap(err, "failed to search memories")
			}

			if len(hits) == 0 {
				fmt.Fprintln(c.Root().Writer, "No memories found")
				return nil
			}

			for _, hit := range hits {
				fmt.Fprintf(c.Root().Writer, "%.4f\t%s\t%s\n",
					hit.Score, hit.Memory.ID, summarize(hit.Memory.Content, 80))
			}

			return nil
		},
	}
}

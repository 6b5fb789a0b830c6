package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/engram/pkg/usecase/memory"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func batchCommand() *cli.Command {
	var (
		cfg       config
		inputPath string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "input",
			Aliases:     []string{"i"},
			Usage:       "Path to JSON file containing an array of memories",
			Destination: &inputPath,
			Required:    true,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, embeddingFlags(&cfg)...)

	return &cli.Command{
		Name:  "batch",
		Usage: "Store multiple memories from a JSON file with one embedding call",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.configure(ctx)
			if err != nil {
				return err
			}
			if err := cfg.requireScope(); err != nil {
				return err
			}

			data, err := os.ReadFile(inputPath)
			if err != nil {
				return goerr.Wrap(err, "failed to read input file", goerr.Value("path", inputPath))
			}

			var records []struct {
				Content  string         `json:"content"`
				Metadata model.Metadata `json:"metadata"`
				Tags     []string       `json:"tags"`
			}
			if err := json.Unmarshal(data, &records); err != nil {
				return goerr.Wrap(err, "failed to parse JSON")
			}

			items := make([]*memory.BatchItem, 0, len(records))
			for _, r := range records {
				items = append(items, &memory.BatchItem{
					Content:  r.Content,
					Metadata: r.Metadata,
					Tags:     r.Tags,
				})
			}

			uc, err := cfg.newUseCase()
			if err != nil {
				return err
			}
			defer uc.Close()

			ids, err := uc.BatchAdd(ctx, cfg.tenant, cfg.project, items)
			if err != nil {
				return goerr.Wrap(err, "failed to add batch")
			}

			for _, id := range ids {
				fmt.Fprintf(c.Root().Writer, "%s\n", id)
			}
			return nil
		},
	}
}

package cli

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	// Missing .env is fine; flags and environment variables still apply
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "engram",
		Usage: "Multi-tenant memory store with hybrid semantic search",
		Commands: []*cli.Command{
			addCommand(),
			batchCommand(),
			getCommand(),
			listCommand(),
			updateCommand(),
			deleteCommand(),
			searchCommand(),
			mcpCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}

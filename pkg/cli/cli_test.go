package cli_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/engram/pkg/cli"
	"github.com/m-mizutani/gt"
)

func TestAddRequiresContent(t *testing.T) {
	err := cli.Run(context.Background(), []string{"engram", "add"})
	gt.V(t, err).NotNil()
	gt.Equal(t, err.Code, 1)
}

func TestAddRequiresScope(t *testing.T) {
	t.Setenv("ENGRAM_TENANT", "")
	t.Setenv("ENGRAM_PROJECT", "")

	err := cli.Run(context.Background(), []string{
		"engram", "add",
		"--content", "hello",
		"--db-path", filepath.Join(t.TempDir(), "test.db"),
	})
	gt.V(t, err).NotNil()
	gt.S(t, err.Message).Contains("tenant is required")
}

func TestAddRequiresAPIKey(t *testing.T) {
	t.Setenv("ENGRAM_EMBEDDING_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	err := cli.Run(context.Background(), []string{
		"engram", "add",
		"--content", "hello",
		"--tenant", "tenant_001",
		"--project", "project_001",
		"--db-path", filepath.Join(t.TempDir(), "test.db"),
	})
	gt.V(t, err).NotNil()
	gt.S(t, err.Message).Contains("embedding-api-key is required")
}

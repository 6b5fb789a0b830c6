package memory_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/engram/pkg/adapter"
	"github.com/m-mizutani/engram/pkg/errs"
	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/engram/pkg/repository"
	"github.com/m-mizutani/engram/pkg/usecase/memory"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

type testEnv struct {
	uc       *memory.UseCase
	embedder *adapter.LocalEmbedder
	clock    *fakeClock
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func setup(t *testing.T) *testEnv {
	repo, err := repository.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	gt.NoError(t, err)

	embedder := adapter.NewLocal(64)
	clock := &fakeClock{now: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)}
	uc := memory.New(repo, embedder, memory.WithClock(clock.Now))
	t.Cleanup(func() {
		gt.NoError(t, uc.Close())
	})

	return &testEnv{uc: uc, embedder: embedder, clock: clock}
}

func TestAddAndGet(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	id, err := env.uc.Add(ctx, &memory.AddInput{
		TenantID:  "tenant_001",
		ProjectID: "project_001",
		Content:   "Gophers prefer table-driven tests",
		Metadata:  model.Metadata{"source": "conversation", "importance": "high"},
		Tags:      []string{"go", "testing"},
	})
	gt.NoError(t, err)
	gt.True(t, id != "")

	mem, err := env.uc.Get(ctx, "tenant_001", "project_001", id)
	gt.NoError(t, err)
	gt.Equal(t, mem.TenantID, "tenant_001")
	gt.Equal(t, mem.ProjectID, "project_001")
	gt.Equal(t, mem.Content, "Gophers prefer table-driven tests")
	gt.Equal(t, mem.Metadata["importance"], "high")
	gt.Equal(t, mem.Tags, []string{"go", "testing"})
	gt.A(t, mem.Embedding).Length(env.embedder.Dimension())
	gt.Equal(t, mem.CreatedAt, mem.UpdatedAt)
}

func TestAddEmptyContent(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err := env.uc.Add(ctx, &memory.AddInput{
			TenantID:  "tenant_001",
			ProjectID: "project_001",
			Content:   content,
		})
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, errs.TagInvalidInput))
	}

	// Rejected before any embedding work
	gt.Equal(t, env.embedder.Calls(), int64(0))
}

func TestAddInvalidIdentifier(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	_, err := env.uc.Add(ctx, &memory.AddInput{
		TenantID:  "tenant 001",
		ProjectID: "project_001",
		Content:   "some content",
	})
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, errs.TagInvalidIdentifier))
	gt.Equal(t, env.embedder.Calls(), int64(0))
}

func TestUpdateReembedsOnContentChange(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	id, err := env.uc.Add(ctx, &memory.AddInput{
		TenantID:  "tenant_001",
		ProjectID: "project_001",
		Content:   "original content",
	})
	gt.NoError(t, err)

	before, err := env.uc.Get(ctx, "tenant_001", "project_001", id)
	gt.NoError(t, err)
	calls := env.embedder.Calls()

	newContent := "completely different text"
	updated, err := env.uc.Update(ctx, &memory.UpdateInput{
		TenantID:  "tenant_001",
		ProjectID: "project_001",
		ID:        id,
		Content:   &newContent,
	})
	gt.NoError(t, err)
	gt.Equal(t, updated.Content, newContent)
	gt.Equal(t, env.embedder.Calls(), calls+1)
	gt.True(t, updated.UpdatedAt.After(before.UpdatedAt))
	gt.Equal(t, updated.CreatedAt, before.CreatedAt)

	// The stored embedding must describe the new content
	gt.NotEqual(t, updated.Embedding, before.Embedding)
}

func TestUpdateSameContentSkipsEmbedding(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	content := "stable content"
	id, err := env.uc.Add(ctx, &memory.AddInput{
		TenantID:  "tenant_001",
		ProjectID: "project_001",
		Content:   content,
	})
	gt.NoError(t, err)
	calls := env.embedder.Calls()

	tags := []string{"new-tag"}
	updated, err := env.uc.Update(ctx, &memory.UpdateInput{
		TenantID:  "tenant_001",
		ProjectID: "project_001",
		ID:        id,
		Content:   &content,
		Tags:      &tags,
	})
	gt.NoError(t, err)
	gt.Equal(t, updated.Tags, []string{"new-tag"})
	gt.Equal(t, env.embedder.Calls(), calls)
}

func TestUpdateReplacesMetadataAndTags(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	id, err := env.uc.Add(ctx, &memory.AddInput{
		TenantID:  "tenant_001",
		ProjectID: "project_001",
		Content:   "some content",
		Metadata:  model.Metadata{"a": "1", "b": "2"},
		Tags:      []string{"x", "y"},
	})
	gt.NoError(t, err)

	meta := model.Metadata{"c": "3"}
	tags := []string{"z"}
	updated, err := env.uc.Update(ctx, &memory.UpdateInput{
		TenantID:  "tenant_001",
		ProjectID: "project_001",
		ID:        id,
		Metadata:  &meta,
		Tags:      &tags,
	})
	gt.NoError(t, err)

	// Full replacement, not a merge
	gt.Equal(t, updated.Metadata, model.Metadata{"c": "3"})
	gt.Equal(t, updated.Tags, []string{"z"})
}

func TestUpdateNotFound(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	content := "anything"
	_, err := env.uc.Update(ctx, &memory.UpdateInput{
		TenantID:  "tenant_001",
		ProjectID: "project_001",
		ID:        model.NewMemoryID(),
		Content:   &content,
	})
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, errs.TagNotFound))
}

func TestDeleteThenGet(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	id, err := env.uc.Add(ctx, &memory.AddInput{
		TenantID:  "tenant_001",
		ProjectID: "project_001",
		Content:   "ephemeral",
	})
	gt.NoError(t, err)

	gt.NoError(t, env.uc.Delete(ctx, "tenant_001", "project_001", id))

	_, err = env.uc.Get(ctx, "tenant_001", "project_001", id)
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, errs.TagNotFound))

	err = env.uc.Delete(ctx, "tenant_001", "project_001", id)
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, errs.TagNotFound))
}

func TestListNewestFirst(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	for _, content := range []string{"first", "second", "third"} {
		_, err := env.uc.Add(ctx, &memory.AddInput{
			TenantID:  "tenant_001",
			ProjectID: "project_001",
			Content:   content,
		})
		gt.NoError(t, err)
	}

	memories, err := env.uc.List(ctx, &memory.ListInput{
		TenantID:  "tenant_001",
		ProjectID: "project_001",
	})
	gt.NoError(t, err)
	gt.A(t, memories).Length(3)
	gt.Equal(t, memories[0].Content, "third")
	gt.Equal(t, memories[2].Content, "first")
}

func TestSearchScenario(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	seeds := []memory.AddInput{
		{
			Content:  "The quarterly revenue grew 12% thanks to enterprise deals",
			Metadata: model.Metadata{"department": "finance"},
			Tags:     []string{"finance", "report"},
		},
		{
			Content: "Team offsite planned for October in Lisbon",
			Tags:    []string{"events"},
		},
		{
			Content: "New brand guidelines shipped to the design team",
			Tags:    []string{"design"},
		},
	}
	for i := range seeds {
		seeds[i].TenantID = "tenant_001"
		seeds[i].ProjectID = "project_001"
		_, err := env.uc.Add(ctx, &seeds[i])
		gt.NoError(t, err)
	}

	hits, err := env.uc.Search(ctx, &memory.SearchInput{
		TenantID:  "tenant_001",
		ProjectID: "project_001",
		Query:     "revenue growth",
		Limit:     10,
	})
	gt.NoError(t, err)
	gt.A(t, hits).Longer(0)
	gt.S(t, hits[0].Memory.Content).Contains("revenue")
	gt.Equal(t, hits[0].Memory.TenantID, "tenant_001")

	// Tag filter that matches nothing yields an empty result, not an error
	hits, err = env.uc.Search(ctx, &memory.SearchInput{
		TenantID:   "tenant_001",
		ProjectID:  "project_001",
		Query:      "revenue growth",
		FilterTags: []string{"marketing"},
		Limit:      10,
	})
	gt.NoError(t, err)
	gt.A(t, hits).Length(0)

	// Metadata filter narrows to exact matches
	hits, err = env.uc.Search(ctx, &memory.SearchInput{
		TenantID:   "tenant_001",
		ProjectID:  "project_001",
		Query:      "revenue growth",
		FilterMeta: map[string]string{"department": "finance"},
		Limit:      10,
	})
	gt.NoError(t, err)
	gt.A(t, hits).Length(1)
}

func TestSearchEmptyQuery(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	_, err := env.uc.Search(ctx, &memory.SearchInput{
		TenantID:  "tenant_001",
		ProjectID: "project_001",
		Query:     "  ",
	})
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, errs.TagInvalidInput))
	gt.Equal(t, env.embedder.Calls(), int64(0))
}

func TestProjectIsolation(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	id, err := env.uc.Add(ctx, &memory.AddInput{
		TenantID:  "tenant_001",
		ProjectID: "project_a",
		Content:   "secret of project a",
	})
	gt.NoError(t, err)

	_, err = env.uc.Get(ctx, "tenant_001", "project_b", id)
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, errs.TagNotFound))

	_, err = env.uc.Add(ctx, &memory.AddInput{
		TenantID:  "tenant_001",
		ProjectID: "project_b",
		Content:   "unrelated note about lunch",
	})
	gt.NoError(t, err)

	hits, err := env.uc.Search(ctx, &memory.SearchInput{
		TenantID:  "tenant_001",
		ProjectID: "project_b",
		Query:     "secret of project a",
		Limit:     10,
	})
	gt.NoError(t, err)
	for _, hit := range hits {
		gt.S(t, hit.Memory.Content).NotContains("secret")
	}
}

func TestBatchAdd(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	ids, err := env.uc.BatchAdd(ctx, "tenant_001", "project_001", []*memory.BatchItem{
		{Content: "alpha memo", Tags: []string{"a"}},
		{Content: "beta memo", Tags: []string{"b"}},
		{Content: "gamma memo"},
	})
	gt.NoError(t, err)
	gt.A(t, ids).Length(3)

	for i, id := range ids {
		mem, err := env.uc.Get(ctx, "tenant_001", "project_001", id)
		gt.NoError(t, err)
		gt.Equal(t, mem.Content, []string{"alpha memo", "beta memo", "gamma memo"}[i])
	}
}

func TestBatchAddValidatesBeforeEmbedding(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	_, err := env.uc.BatchAdd(ctx, "tenant_001", "project_001", []*memory.BatchItem{
		{Content: "fine"},
		{Content: "  "},
	})
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, errs.TagInvalidInput))
	gt.Equal(t, env.embedder.Calls(), int64(0))

	_, err = env.uc.BatchAdd(ctx, "tenant_001", "project_001", nil)
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, errs.TagInvalidInput))
}

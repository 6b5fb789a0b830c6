package repository

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/engram/pkg/errs"
	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite"
)

// Weights of the rank fusion between vector similarity and full-text
// relevance. SQLite has no native fusion, so the combined score is
// 0.7 * cosine (shifted to [0,1]) + 0.3 * bm25 (normalized by the best
// match in the candidate set).
const (
	vectorWeight   = 0.7
	fulltextWeight = 0.3
)

// SQLite implements Repository on an embedded SQLite database. Each
// namespace is one table plus an FTS5 shadow table kept in sync by
// triggers. Embeddings are stored as little-endian float32 BLOBs.
type SQLite struct {
	db *sql.DB

	// serializes namespace DDL so concurrent first writers don't
	// contend on the schema lock
	ddlMu sync.Mutex
}

// NewSQLite opens or creates the database at dbPath
func NewSQLite(dbPath string) (*SQLite, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, goerr.Wrap(err, "failed to create database directory",
				goerr.T(errs.TagStorage), goerr.V("dir", dir))
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open database",
			goerr.T(errs.TagStorage), goerr.V("path", dbPath))
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) EnsureNamespace(ctx context.Context, ns model.Namespace) error {
	s.ddlMu.Lock()
	defer s.ddlMu.Unlock()

	table := string(ns)
	fts := table + "_fts"

	ddl := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
			id         TEXT PRIMARY KEY,
			content    TEXT NOT NULL,
			embedding  BLOB NOT NULL,
			metadata   TEXT NOT NULL DEFAULT '{}',
			tags       TEXT NOT NULL DEFAULT '[]',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %q ON %q (created_at DESC)`, table+"_created_idx", table),
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS %q USING fts5(content, content=%q, content_rowid=rowid)`, fts, table),
		fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %q AFTER INSERT ON %q BEGIN
			INSERT INTO %q(rowid, content) VALUES (new.rowid, new.content);
		END`, table+"_ai", table, fts),
		fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %q AFTER DELETE ON %q BEGIN
			INSERT INTO %q(%q, rowid, content) VALUES ('delete', old.rowid, old.content);
		END`, table+"_ad", table, fts, fts),
		fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %q AFTER UPDATE OF content ON %q BEGIN
			INSERT INTO %q(%q, rowid, content) VALUES ('delete', old.rowid, old.content);
			INSERT INTO %q(rowid, content) VALUES (new.rowid, new.content);
		END`, table+"_au", table, fts, fts, fts),
	}

	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return goerr.Wrap(err, "failed to create namespace",
				goerr.T(errs.TagStorage), goerr.V("namespace", ns))
		}
	}

	return nil
}

func (s *SQLite) Insert(ctx context.Context, ns model.Namespace, mem *model.Memory) error {
	metadata, tags, err := encodeFields(mem.Metadata, mem.Tags)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %q (id, content, embedding, metadata, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, string(ns))

	_, err = s.db.ExecContext(ctx, query,
		string(mem.ID), mem.Content, encodeVector(mem.Embedding),
		metadata, tags, mem.CreatedAt.UnixNano(), mem.UpdatedAt.UnixNano())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return goerr.Wrap(err, "memory id already exists",
				goerr.T(errs.TagDuplicateID), goerr.V("id", mem.ID))
		}
		return goerr.Wrap(err, "failed to insert memory",
			goerr.T(errs.TagStorage), goerr.V("namespace", ns), goerr.V("id", mem.ID))
	}

	return nil
}

func (s *SQLite) Get(ctx context.Context, ns model.Namespace, id model.MemoryID) (*model.Memory, error) {
	query := fmt.Sprintf(`SELECT id, content, embedding, metadata, tags, created_at, updated_at
		FROM %q WHERE id = ?`, string(ns))

	mem, err := scanMemory(s.db.QueryRowContext(ctx, query, string(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isNoTable(err) {
			return nil, goerr.New("memory not found",
				goerr.T(errs.TagNotFound), goerr.V("namespace", ns), goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get memory",
			goerr.T(errs.TagStorage), goerr.V("namespace", ns), goerr.V("id", id))
	}

	return mem, nil
}

func (s *SQLite) Update(ctx context.Context, ns model.Namespace, id model.MemoryID, patch *Patch) (*model.Memory, error) {
	sets := []string{"updated_at = ?"}
	args := []any{patch.UpdatedAt.UnixNano()}

	if patch.Content != nil {
		sets = append(sets, "content = ?", "embedding = ?")
		args = append(args, *patch.Content, encodeVector(patch.Embedding))
	}
	if patch.Metadata != nil {
		metadata, _, err := encodeFields(*patch.Metadata, nil)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "metadata = ?")
		args = append(args, metadata)
	}
	if patch.Tags != nil {
		_, tags, err := encodeFields(nil, *patch.Tags)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "tags = ?")
		args = append(args, tags)
	}

	query := fmt.Sprintf(`UPDATE %q SET %s WHERE id = ?`, string(ns), strings.Join(sets, ", "))
	args = append(args, string(id))

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isNoTable(err) {
			return nil, goerr.New("memory not found",
				goerr.T(errs.TagNotFound), goerr.V("namespace", ns), goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to update memory",
			goerr.T(errs.TagStorage), goerr.V("namespace", ns), goerr.V("id", id))
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, goerr.New("memory not found",
			goerr.T(errs.TagNotFound), goerr.V("namespace", ns), goerr.V("id", id))
	}

	return s.Get(ctx, ns, id)
}

func (s *SQLite) Delete(ctx context.Context, ns model.Namespace, id model.MemoryID) error {
	query := fmt.Sprintf(`DELETE FROM %q WHERE id = ?`, string(ns))

	result, err := s.db.ExecContext(ctx, query, string(id))
	if err != nil {
		if isNoTable(err) {
			return goerr.New("memory not found",
				goerr.T(errs.TagNotFound), goerr.V("namespace", ns), goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to delete memory",
			goerr.T(errs.TagStorage), goerr.V("namespace", ns), goerr.V("id", id))
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return goerr.New("memory not found",
			goerr.T(errs.TagNotFound), goerr.V("namespace", ns), goerr.V("id", id))
	}

	return nil
}

func (s *SQLite) List(ctx context.Context, ns model.Namespace, filterTags []string, limit, offset int) ([]*model.Memory, error) {
	if limit <= 0 {
		limit = 10
	}

	// Tag filtering happens on the decoded tag lists so that filter tags
	// match exactly; pagination is applied after filtering.
	query := fmt.Sprintf(`SELECT id, content, embedding, metadata, tags, created_at, updated_at
		FROM %q ORDER BY created_at DESC, id`, string(ns))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		if isNoTable(err) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to list memories",
			goerr.T(errs.TagStorage), goerr.V("namespace", ns))
	}
	defer rows.Close()

	var memories []*model.Memory
	skipped := 0
	for rows.Next() {
		mem, err := scanMemory(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan memory", goerr.T(errs.TagStorage))
		}
		if !mem.HasTags(filterTags) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		memories = append(memories, mem)
		if len(memories) == limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate rows", goerr.T(errs.TagStorage))
	}

	return memories, nil
}

func (s *SQLite) HybridQuery(ctx context.Context, input *HybridQueryInput) ([]*model.ScoredMemory, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	candidates, err := s.fetchCandidates(ctx, input.Namespace, input.FilterTags)
	if err != nil || len(candidates) == 0 {
		return nil, err
	}

	textScores, err := s.fulltextScores(ctx, input.Namespace, input.QueryText)
	if err != nil {
		return nil, err
	}
	var maxText float64
	for _, v := range textScores {
		if v > maxText {
			maxText = v
		}
	}

	hits := make([]*model.ScoredMemory, 0, len(candidates))
	for _, mem := range candidates {
		if !matchMetadata(mem.Metadata, input.FilterMeta) {
			continue
		}

		// cosine is in [-1, 1]; shift to [0, 1] before weighting
		score := vectorWeight * (cosineSimilarity(input.Vector, mem.Embedding) + 1) / 2
		if maxText > 0 {
			score += fulltextWeight * textScores[mem.ID] / maxText
		}

		hits = append(hits, &model.ScoredMemory{Memory: mem, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if !hits[i].Memory.CreatedAt.Equal(hits[j].Memory.CreatedAt) {
			return hits[i].Memory.CreatedAt.After(hits[j].Memory.CreatedAt)
		}
		return hits[i].Memory.ID < hits[j].Memory.ID
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}

	return hits, nil
}

func (s *SQLite) Close() error {
	if err := s.db.Close(); err != nil {
		return goerr.Wrap(err, "failed to close database", goerr.T(errs.TagStorage))
	}
	return nil
}

// fetchCandidates loads all records of the namespace that carry every
// filter tag. Namespaces are small enough that vector scoring happens
// over the full candidate set, so tags are matched on the decoded lists
// rather than with a SQL pattern.
func (s *SQLite) fetchCandidates(ctx context.Context, ns model.Namespace, filterTags []string) ([]*model.Memory, error) {
	query := fmt.Sprintf(`SELECT id, content, embedding, metadata, tags, created_at, updated_at
		FROM %q`, string(ns))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		if isNoTable(err) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to query candidates",
			goerr.T(errs.TagStorage), goerr.V("namespace", ns))
	}
	defer rows.Close()

	memories, err := collectMemories(rows)
	if err != nil {
		return nil, err
	}

	if len(filterTags) == 0 {
		return memories, nil
	}
	matched := make([]*model.Memory, 0, len(memories))
	for _, mem := range memories {
		if mem.HasTags(filterTags) {
			matched = append(matched, mem)
		}
	}
	return matched, nil
}

// fulltextScores returns id -> bm25 relevance (higher is better) for
// records matching the query terms.
func (s *SQLite) fulltextScores(ctx context.Context, ns model.Namespace, queryText string) (map[model.MemoryID]float64, error) {
	match := ftsMatchExpr(queryText)
	if match == "" {
		return nil, nil
	}

	table := string(ns)
	fts := table + "_fts"
	query := fmt.Sprintf(`SELECT m.id, bm25(%q) FROM %q JOIN %q m ON m.rowid = %q.rowid WHERE %q MATCH ?`,
		fts, fts, table, fts, fts)

	rows, err := s.db.QueryContext(ctx, query, match)
	if err != nil {
		if isNoTable(err) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to run full-text query",
			goerr.T(errs.TagStorage), goerr.V("namespace", ns))
	}
	defer rows.Close()

	scores := map[model.MemoryID]float64{}
	for rows.Next() {
		var id string
		var rank float64
		if err := rows.Scan(&id, &rank); err != nil {
			return nil, goerr.Wrap(err, "failed to scan full-text score", goerr.T(errs.TagStorage))
		}
		// bm25() reports better matches as more negative
		scores[model.MemoryID(id)] = -rank
	}

	return scores, rows.Err()
}

// ftsMatchExpr quotes each query term so caller input can't inject FTS5
// operators. Terms are OR-ed: partial matches still contribute.
func ftsMatchExpr(queryText string) string {
	var terms []string
	for _, tok := range strings.Fields(queryText) {
		tok = strings.ReplaceAll(tok, `"`, `""`)
		terms = append(terms, `"`+tok+`"`)
	}
	return strings.Join(terms, " OR ")
}

func matchMetadata(meta model.Metadata, filter map[string]string) bool {
	for key, want := range filter {
		got, ok := meta[key]
		if !ok || fmt.Sprint(got) != want {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// encodeVector packs an embedding as little-endian float32, the common
// vector BLOB layout of SQLite vector extensions
func encodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}

func encodeFields(meta model.Metadata, tags []string) (string, string, error) {
	if meta == nil {
		meta = model.Metadata{}
	}
	if tags == nil {
		tags = []string{}
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", "", goerr.Wrap(err, "failed to encode metadata", goerr.T(errs.TagStorage))
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return "", "", goerr.Wrap(err, "failed to encode tags", goerr.T(errs.TagStorage))
	}

	return string(metaJSON), string(tagsJSON), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMemory(row scanner) (*model.Memory, error) {
	var mem model.Memory
	var id, metaJSON, tagsJSON string
	var embedding []byte
	var createdAt, updatedAt int64

	if err := row.Scan(&id, &mem.Content, &embedding, &metaJSON, &tagsJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	mem.ID = model.MemoryID(id)
	mem.Embedding = decodeVector(embedding)
	mem.CreatedAt = time.Unix(0, createdAt).UTC()
	mem.UpdatedAt = time.Unix(0, updatedAt).UTC()

	if err := json.Unmarshal([]byte(metaJSON), &mem.Metadata); err != nil {
		return nil, goerr.Wrap(err, "failed to decode metadata", goerr.T(errs.TagStorage))
	}
	if err := json.Unmarshal([]byte(tagsJSON), &mem.Tags); err != nil {
		return nil, goerr.Wrap(err, "failed to decode tags", goerr.T(errs.TagStorage))
	}

	return &mem, nil
}

func collectMemories(rows *sql.Rows) ([]*model.Memory, error) {
	var memories []*model.Memory
	for rows.Next() {
		mem, err := scanMemory(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan memory", goerr.T(errs.TagStorage))
		}
		memories = append(memories, mem)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate rows", goerr.T(errs.TagStorage))
	}
	return memories, nil
}

func isNoTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

// Package mcp exposes the memory store as an MCP stdio server so LLM
// applications can read and write memories as tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/engram/pkg/usecase/memory"
	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps a memory UseCase as an MCP tool server. Tool calls may
// omit tenant_id/project_id to use the server-wide defaults.
type Server struct {
	uc             *memory.UseCase
	defaultTenant  string
	defaultProject string
}

// New creates a new MCP server facade
func New(uc *memory.UseCase, defaultTenant, defaultProject string) *Server {
	return &Server{
		uc:             uc,
		defaultTenant:  defaultTenant,
		defaultProject: defaultProject,
	}
}

// Run serves MCP over stdio until the context is cancelled
func (s *Server) Run(ctx context.Context) error {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "engram",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "memory_add",
		Description: "Store a new memory with optional metadata and tags",
	}, s.addTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "memory_get",
		Description: "Retrieve a memory by id",
	}, s.getTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "memory_list",
		Description: "List memories, newest first, optionally filtered by tags",
	}, s.listTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "memory_update",
		Description: "Update content, metadata or tags of a memory; metadata and tags are replaced, not merged",
	}, s.updateTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "memory_delete",
		Description: "Delete a memory by id",
	}, s.deleteTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "memory_search",
		Description: "Hybrid search over memories combining semantic similarity and keyword relevance",
		InputSchema: searchSchema(),
	}, s.searchTool)

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return goerr.Wrap(err, "mcp server failed")
	}
	return nil
}

// searchSchema is spelled out explicitly: tag and metadata filters need
// descriptions the struct tags cannot carry.
func searchSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"tenant_id":  {Type: "string", Description: "Tenant scope; defaults to the server tenant"},
			"project_id": {Type: "string", Description: "Project scope; defaults to the server project"},
			"query":      {Type: "string", Description: "Natural language query"},
			"filter_tags": {
				Type:        "array",
				Description: "Only return memories carrying every listed tag",
				Items:       &jsonschema.Schema{Type: "string"},
			},
			"filter_meta": {
				Type:                 "object",
				Description:          "Exact-match filters on top-level metadata keys",
				AdditionalProperties: &jsonschema.Schema{Type: "string"},
			},
			"limit": {Type: "integer", Description: "Maximum number of results (default 10)"},
		},
		Required: []string{"query"},
	}
}

func (s *Server) scopeOf(tenantID, projectID string) (string, string) {
	if tenantID == "" {
		tenantID = s.defaultTenant
	}
	if projectID == "" {
		projectID = s.defaultProject
	}
	return tenantID, projectID
}

type addParams struct {
	TenantID  string         `json:"tenant_id,omitempty" jsonschema:"Tenant scope; defaults to the server tenant"`
	ProjectID string         `json:"project_id,omitempty" jsonschema:"Project scope; defaults to the server project"`
	Content   string         `json:"content" jsonschema:"Text of the memory to store"`
	Metadata  map[string]any `json:"metadata,omitempty" jsonschema:"Arbitrary key-value metadata stored with the memory"`
	Tags      []string       `json:"tags,omitempty" jsonschema:"Tags for exact-match filtering"`
}

func (s *Server) addTool(ctx context.Context, req *mcp.CallToolRequest, params *addParams) (*mcp.CallToolResult, any, error) {
	tenant, project := s.scopeOf(params.TenantID, params.ProjectID)
	id, err := s.uc.Add(ctx, &memory.AddInput{
		TenantID:  tenant,
		ProjectID: project,
		Content:   params.Content,
		Metadata:  params.Metadata,
		Tags:      params.Tags,
	})
	if err != nil {
		return nil, nil, err
	}

	return textResult(map[string]any{"id": id})
}

type getParams struct {
	TenantID  string `json:"tenant_id,omitempty" jsonschema:"Tenant scope; defaults to the server tenant"`
	ProjectID string `json:"project_id,omitempty" jsonschema:"Project scope; defaults to the server project"`
	ID        string `json:"id" jsonschema:"Memory id"`
}

func (s *Server) getTool(ctx context.Context, req *mcp.CallToolRequest, params *getParams) (*mcp.CallToolResult, any, error) {
	tenant, project := s.scopeOf(params.TenantID, params.ProjectID)
	mem, err := s.uc.Get(ctx, tenant, project, model.MemoryID(params.ID))
	if err != nil {
		return nil, nil, err
	}

	return textResult(mem)
}

type listParams struct {
	TenantID   string   `json:"tenant_id,omitempty" jsonschema:"Tenant scope; defaults to the server tenant"`
	ProjectID  string   `json:"project_id,omitempty" jsonschema:"Project scope; defaults to the server project"`
	FilterTags []string `json:"filter_tags,omitempty" jsonschema:"Only list memories carrying every listed tag"`
	Limit      int      `json:"limit,omitempty" jsonschema:"Maximum number of results (default 10)"`
	Offset     int      `json:"offset,omitempty" jsonschema:"Number of results to skip"`
}

func (s *Server) listTool(ctx context.Context, req *mcp.CallToolRequest, params *listParams) (*mcp.CallToolResult, any, error) {
	tenant, project := s.scopeOf(params.TenantID, params.ProjectID)
	memories, err := s.uc.List(ctx, &memory.ListInput{
		TenantID:   tenant,
		ProjectID:  project,
		FilterTags: params.FilterTags,
		Limit:      params.Limit,
		Offset:     params.Offset,
	})
	if err != nil {
		return nil, nil, err
	}

	return textResult(memories)
}

type updateParams struct {
	TenantID  string          `json:"tenant_id,omitempty" jsonschema:"Tenant scope; defaults to the server tenant"`
	ProjectID string          `json:"project_id,omitempty" jsonschema:"Project scope; defaults to the server project"`
	ID        string          `json:"id" jsonschema:"Memory id"`
	Content   *string         `json:"content,omitempty" jsonschema:"New content; triggers re-embedding when changed"`
	Metadata  *map[string]any `json:"metadata,omitempty" jsonschema:"Replacement metadata"`
	Tags      *[]string       `json:"tags,omitempty" jsonschema:"Replacement tags"`
}

func (s *Server) updateTool(ctx context.Context, req *mcp.CallToolRequest, params *updateParams) (*mcp.CallToolResult, any, error) {
	tenant, project := s.scopeOf(params.TenantID, params.ProjectID)

	input := &memory.UpdateInput{
		TenantID:  tenant,
		ProjectID: project,
		ID:        model.MemoryID(params.ID),
		Content:   params.Content,
		Tags:      params.Tags,
	}
	if params.Metadata != nil {
		meta := model.Metadata(*params.Metadata)
		input.Metadata = &meta
	}

	mem, err := s.uc.Update(ctx, input)
	if err != nil {
		return nil, nil, err
	}

	return textResult(mem)
}

type deleteParams struct {
	TenantID  string `json:"tenant_id,omitempty" jsonschema:"Tenant scope; defaults to the server tenant"`
	ProjectID string `json:"project_id,omitempty" jsonschema:"Project scope; defaults to the server project"`
	ID        string `json:"id" jsonschema:"Memory id"`
}

func (s *Server) deleteTool(ctx context.Context, req *mcp.CallToolRequest, params *deleteParams) (*mcp.CallToolResult, any, error) {
	tenant, project := s.scopeOf(params.TenantID, params.ProjectID)
	if err := s.uc.Delete(ctx, tenant, project, model.MemoryID(params.ID)); err != nil {
		return nil, nil, err
	}

	return textResult(map[string]any{"deleted": params.ID})
}

type searchParams struct {
	TenantID   string            `json:"tenant_id,omitempty" jsonschema:"Tenant scope; defaults to the server tenant"`
	ProjectID  string            `json:"project_id,omitempty" jsonschema:"Project scope; defaults to the server project"`
	Query      string            `json:"query"`
	FilterTags []string          `json:"filter_tags,omitempty"`
	FilterMeta map[string]string `json:"filter_meta,omitempty"`
	Limit      int               `json:"limit,omitempty"`
}

func (s *Server) searchTool(ctx context.Context, req *mcp.CallToolRequest, params *searchParams) (*mcp.CallToolResult, any, error) {
	tenant, project := s.scopeOf(params.TenantID, params.ProjectID)
	hits, err := s.uc.Search(ctx, &memory.SearchInput{
		TenantID:   tenant,
		ProjectID:  project,
		Query:      params.Query,
		FilterTags: params.FilterTags,
		FilterMeta: params.FilterMeta,
		Limit:      params.Limit,
	})
	if err != nil {
		return nil, nil, err
	}

	return textResult(hits)
}

func textResult(v any) (*mcp.CallToolResult, any, error) {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode tool result: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(body)},
		},
	}, nil, nil
}

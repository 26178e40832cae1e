// Package mcp exposes the hunting engine as MCP tools so an agent can
// trigger catalog runs and read back results over a stdio transport.
package mcp

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"huntbook/internal/catalog"
	"huntbook/internal/hunt"
	"huntbook/internal/orchestrate"
	"huntbook/internal/store"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Options configures the server. CatalogDir holds the per-kind catalog
// files (device-queries.json, user-queries.json); History is optional.
type Options struct {
	CatalogDir string
	ReportDir  string
	ExportDir  string
	Workers    int
	Timeout    time.Duration
	History    *store.Store
	Version    string
}

// Server wraps the MCP SDK server around one hunting backend.
type Server struct {
	MCPServer *sdkmcp.Server

	backend hunt.Backend
	opts    Options

	// mu serializes run_hunt calls: concurrent runs would race on the
	// catalog file.
	mu sync.Mutex
}

// NewServer creates an MCP server exposing run_hunt, list_catalog and
// get_history over the given backend.
func NewServer(backend hunt.Backend, opts Options) *Server {
	if opts.CatalogDir == "" {
		opts.CatalogDir = "."
	}
	if opts.ReportDir == "" {
		opts.ReportDir = "Reports"
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	s := &Server{backend: backend, opts: opts}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "huntbook", Version: opts.Version},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "run_hunt",
		Description: "Run the query catalog for one entity. Executes every definition, updates hit counts, writes CSV extracts on request and renders the HTML report.",
	}, s.handleRunHunt)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_catalog",
		Description: "List the catalog definitions for an entity kind with their last recorded hit counts.",
	}, s.handleListCatalog)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_history",
		Description: "Read past catalog runs from the local history store, newest first.",
	}, s.handleGetHistory)
}

// --- Tool input/output types ---

type runHuntInput struct {
	EntityKind string `json:"entity_kind" jsonschema:"entity kind (Device or User)"`
	EntityID   string `json:"entity_id" jsonschema:"device ID (40 hex chars) or user principal name"`
	TimeFrame  string `json:"time_frame,omitempty" jsonschema:"time frame substituted into queries (default 7d)"`
	Catalog    string `json:"catalog,omitempty" jsonschema:"explicit catalog file path; defaults to <kind>-queries.json in the catalog directory"`
	Export     bool   `json:"export,omitempty" jsonschema:"write a CSV extract per query with hits"`
}

type runHuntOutcome struct {
	Name       string `json:"name"`
	Hits       int    `json:"hits"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

type runHuntOutput struct {
	ReportPath string           `json:"report_path,omitempty"`
	TotalHits  int              `json:"total_hits"`
	Failed     int              `json:"failed"`
	Outcomes   []runHuntOutcome `json:"outcomes"`
}

type listCatalogInput struct {
	EntityKind string `json:"entity_kind,omitempty" jsonschema:"entity kind (Device or User); default Device"`
	Catalog    string `json:"catalog,omitempty" jsonschema:"explicit catalog file path"`
}

type catalogEntry struct {
	Name        string `json:"name"`
	Source      string `json:"source,omitempty"`
	ResultCount int    `json:"result_count"`
	Query       string `json:"query"`
}

type listCatalogOutput struct {
	Path    string         `json:"path"`
	Entries []catalogEntry `json:"entries"`
}

type getHistoryInput struct {
	EntityKind string `json:"entity_kind,omitempty" jsonschema:"filter by entity kind (Device or User)"`
	Limit      int    `json:"limit,omitempty" jsonschema:"max runs to return (default 20)"`
}

type historyRun struct {
	ID            int64  `json:"id"`
	EntityKind    string `json:"entity_kind"`
	EntityID      string `json:"entity_id"`
	TimeFrame     string `json:"time_frame"`
	StartedAt     string `json:"started_at"`
	TotalHits     int    `json:"total_hits"`
	QueriesRun    int    `json:"queries_run"`
	QueriesFailed int    `json:"queries_failed"`
}

type getHistoryOutput struct {
	Runs []historyRun `json:"runs"`
}

// --- Tool handlers ---

func (s *Server) handleRunHunt(ctx context.Context, _ *sdkmcp.CallToolRequest, input runHuntInput) (*sdkmcp.CallToolResult, runHuntOutput, error) {
	kind, err := parseKind(input.EntityKind)
	if err != nil {
		return nil, runHuntOutput{}, err
	}
	if input.EntityID == "" {
		return nil, runHuntOutput{}, fmt.Errorf("entity_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cat, err := catalog.Load(s.catalogPath(kind, input.Catalog))
	if err != nil {
		return nil, runHuntOutput{}, err
	}

	hctx := hunt.Context{TimeFrame: input.TimeFrame, Export: input.Export}
	switch kind {
	case hunt.KindDevice:
		hctx.DeviceID = input.EntityID
	case hunt.KindUser:
		hctx.UserPrincipalName = input.EntityID
	}

	runner := orchestrate.NewRunner(s.backend, orchestrate.Options{
		Workers:   s.opts.Workers,
		Timeout:   s.opts.Timeout,
		Out:       io.Discard, // stdout belongs to the transport
		ExportDir: s.opts.ExportDir,
		ReportDir: s.opts.ReportDir,
		History:   s.opts.History,
	})
	summary, err := runner.Run(ctx, cat, kind, hctx)
	if err != nil {
		return nil, runHuntOutput{}, fmt.Errorf("run_hunt: %w", err)
	}

	out := runHuntOutput{
		ReportPath: summary.ReportPath,
		TotalHits:  summary.TotalHits,
		Failed:     summary.Failed,
	}
	for _, o := range summary.Outcomes {
		ho := runHuntOutcome{Name: o.Name, Hits: o.HitCount, DurationMS: o.Duration.Milliseconds()}
		if o.Err != nil {
			ho.Error = o.Err.Error()
		}
		out.Outcomes = append(out.Outcomes, ho)
	}
	return nil, out, nil
}

func (s *Server) handleListCatalog(ctx context.Context, _ *sdkmcp.CallToolRequest, input listCatalogInput) (*sdkmcp.CallToolResult, listCatalogOutput, error) {
	kind := hunt.KindDevice
	if input.EntityKind != "" {
		var err error
		if kind, err = parseKind(input.EntityKind); err != nil {
			return nil, listCatalogOutput{}, err
		}
	}

	path := s.catalogPath(kind, input.Catalog)
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, listCatalogOutput{}, err
	}

	out := listCatalogOutput{Path: path, Entries: make([]catalogEntry, 0, len(cat.Defs))}
	for _, def := range cat.Defs {
		out.Entries = append(out.Entries, catalogEntry{
			Name:        def.Name,
			Source:      def.Source,
			ResultCount: def.ResultCount,
			Query:       def.Query,
		})
	}
	return nil, out, nil
}

func (s *Server) handleGetHistory(ctx context.Context, _ *sdkmcp.CallToolRequest, input getHistoryInput) (*sdkmcp.CallToolResult, getHistoryOutput, error) {
	if s.opts.History == nil {
		return nil, getHistoryOutput{}, fmt.Errorf("no history store configured")
	}
	kindFilter := ""
	if input.EntityKind != "" {
		kind, err := parseKind(input.EntityKind)
		if err != nil {
			return nil, getHistoryOutput{}, err
		}
		kindFilter = string(kind)
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	runs, err := s.opts.History.ListRuns(kindFilter, limit)
	if err != nil {
		return nil, getHistoryOutput{}, fmt.Errorf("get_history: %w", err)
	}

	out := getHistoryOutput{Runs: make([]historyRun, 0, len(runs))}
	for _, r := range runs {
		out.Runs = append(out.Runs, historyRun{
			ID:            r.ID,
			EntityKind:    r.EntityKind,
			EntityID:      r.EntityID,
			TimeFrame:     r.TimeFrame,
			StartedAt:     r.StartedAt,
			TotalHits:     r.TotalHits,
			QueriesRun:    r.QueriesRun,
			QueriesFailed: r.QueriesFailed,
		})
	}
	return nil, out, nil
}

// catalogPath resolves the catalog file for a kind: an explicit path
// wins, otherwise <kind>-queries.json under the catalog directory.
func (s *Server) catalogPath(kind hunt.Kind, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return filepath.Join(s.opts.CatalogDir, strings.ToLower(string(kind))+"-queries.json")
}

func parseKind(v string) (hunt.Kind, error) {
	switch strings.ToLower(v) {
	case "device":
		return hunt.KindDevice, nil
	case "user":
		return hunt.KindUser, nil
	default:
		return "", fmt.Errorf("unknown entity kind %q (want Device or User)", v)
	}
}

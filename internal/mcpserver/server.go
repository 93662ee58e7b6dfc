// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes manifold repository tools for LLM integration via
// stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/okvist/manifold/internal/codec"
	"github.com/okvist/manifold/internal/format"
	"github.com/okvist/manifold/internal/repo"
)

// Server wraps the MCP server with manifold repository tools.
type Server struct {
	mcp   *server.MCPServer
	store *repo.Store
	kinds []string
}

// New creates a new MCP server with all repository tools registered.
// kinds is the set of record collections the tools may operate on.
func New(store *repo.Store, kinds []string) *Server {
	s := &Server{store: store, kinds: kinds}

	s.mcp = server.NewMCPServer(
		"Manifold",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	kindDesc := fmt.Sprintf("Record collection (one of: %s)", strings.Join(kinds, ", "))

	s.mcp.AddTool(mcp.NewTool("list_records",
		mcp.WithDescription("List all record paths in a collection."),
		mcp.WithString("kind", mcp.Required(), mcp.Description(kindDesc)),
	), s.listRecords)

	s.mcp.AddTool(mcp.NewTool("read_record",
		mcp.WithDescription("Read a record and return its decoded content as JSON. "+
			"Records are stored as XML plists or YAML; the format is detected automatically."),
		mcp.WithString("kind", mcp.Required(), mcp.Description(kindDesc)),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the record (e.g. site_default or apps/Firefox-128.0)")),
	), s.readRecord)

	s.mcp.AddTool(mcp.NewTool("create_record",
		mcp.WithDescription("Create a new record. With empty content a default skeleton "+
			"for the collection is written; otherwise content must be valid YAML or XML plist text."),
		mcp.WithString("kind", mcp.Required(), mcp.Description(kindDesc)),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new record")),
		mcp.WithString("content", mcp.Description("Optional initial content (YAML or XML plist)")),
	), s.createRecord)

	s.mcp.AddTool(mcp.NewTool("record_format",
		mcp.WithDescription("Report the detected on-disk format (plist or yaml) of a record."),
		mcp.WithString("kind", mcp.Required(), mcp.Description(kindDesc)),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the record")),
	), s.recordFormat)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) requireKind(req mcp.CallToolRequest) (string, error) {
	kind, err := req.RequireString("kind")
	if err != nil {
		return "", err
	}
	for _, k := range s.kinds {
		if k == kind {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown collection: %s", kind)
}

func (s *Server) listRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := s.requireKind(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	records, err := s.store.List(ctx, kind)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(records) == 0 {
		return mcp.NewToolResultText("no records found"), nil
	}
	return mcp.NewToolResultText(strings.Join(records, "\n")), nil
}

func (s *Server) readRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := s.requireKind(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.store.Read(ctx, kind, path)
	if err != nil {
		if errors.Is(err, repo.ErrDoesNotExist) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s/%s", kind, path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := s.requireKind(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	content := req.GetString("content", "")

	var written string
	if strings.TrimSpace(content) != "" {
		res := codec.Decode([]byte(content), format.Detect(path, []byte(content)))
		if res.Degraded {
			return mcp.NewToolResultError("content parsed as neither YAML nor plist"), nil
		}
		written, err = s.store.Create(ctx, kind, path, "mcp", res.Doc)
	} else {
		written, err = s.store.Create(ctx, kind, path, "mcp", nil)
	}
	if err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			return mcp.NewToolResultError(fmt.Sprintf("record already exists: %s/%s", kind, path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created %s/%s:\n%s", kind, path, written)), nil
}

func (s *Server) recordFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := s.requireKind(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	info, err := s.store.FormatInfo(ctx, kind, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(info, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

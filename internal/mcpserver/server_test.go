package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/okvist/manifold/internal/repo"
)

func testServer(t *testing.T) (*Server, *repo.Store) {
	t.Helper()

	store, err := repo.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	srv := New(store, []string{"manifests", "pkgsinfo"})
	return srv, store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handler functions
	// are exercised directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_records":
		result, err = srv.listRecords(ctx, req)
	case "read_record":
		result, err = srv.readRecord(ctx, req)
	case "create_record":
		result, err = srv.createRecord(ctx, req)
	case "record_format":
		result, err = srv.recordFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadRecord(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_record", map[string]interface{}{
		"kind": "manifests",
		"path": "site_default",
	})
	if r.IsError {
		t.Fatalf("create failed: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "created manifests/site_default") {
		t.Errorf("create result = %q", resultText(r))
	}

	r = callTool(t, srv, "read_record", map[string]interface{}{
		"kind": "manifests",
		"path": "site_default",
	})
	if r.IsError {
		t.Fatalf("read failed: %s", resultText(r))
	}
	text := resultText(r)
	// The manifest skeleton is a JSON object with the standard list sections.
	if !strings.Contains(text, `"managed_installs": []`) {
		t.Errorf("read result = %q", text)
	}
}

func TestCreateRecord_WithContent(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_record", map[string]interface{}{
		"kind":    "pkgsinfo",
		"path":    "apps/Firefox.yaml",
		"content": "name: Firefox\nversion: '128.0'\n",
	})
	if r.IsError {
		t.Fatalf("create failed: %s", resultText(r))
	}

	r = callTool(t, srv, "read_record", map[string]interface{}{
		"kind": "pkgsinfo",
		"path": "apps/Firefox.yaml",
	})
	if !strings.Contains(resultText(r), `"name": "Firefox"`) {
		t.Errorf("read result = %q", resultText(r))
	}
}

func TestCreateRecord_Duplicate(t *testing.T) {
	srv, _ := testServer(t)

	callTool(t, srv, "create_record", map[string]interface{}{
		"kind": "manifests",
		"path": "site_default",
	})
	r := callTool(t, srv, "create_record", map[string]interface{}{
		"kind": "manifests",
		"path": "site_default",
	})
	if !r.IsError {
		t.Error("expected error for duplicate record")
	}
}

func TestListRecords(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "list_records", map[string]interface{}{"kind": "manifests"})
	if resultText(r) != "no records found" {
		t.Errorf("empty list result = %q", resultText(r))
	}

	callTool(t, srv, "create_record", map[string]interface{}{
		"kind": "manifests",
		"path": "groups/lab",
	})
	r = callTool(t, srv, "list_records", map[string]interface{}{"kind": "manifests"})
	if resultText(r) != "groups/lab" {
		t.Errorf("list result = %q", resultText(r))
	}
}

func TestUnknownKindRejected(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "list_records", map[string]interface{}{"kind": "secrets"})
	if !r.IsError {
		t.Error("expected error for unknown collection")
	}
}

func TestRecordFormat(t *testing.T) {
	srv, _ := testServer(t)

	callTool(t, srv, "create_record", map[string]interface{}{
		"kind": "manifests",
		"path": "site_default",
	})
	r := callTool(t, srv, "record_format", map[string]interface{}{
		"kind": "manifests",
		"path": "site_default",
	})
	if !strings.Contains(resultText(r), `"format": "plist"`) {
		t.Errorf("format result = %q", resultText(r))
	}
}

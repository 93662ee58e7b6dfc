package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/okvist/manifold/internal/status"
	"github.com/okvist/manifold/internal/testutil"
)

var testKinds = []string{"manifests", "pkgsinfo", "catalogs"}

func testRouter(t *testing.T) (chi.Router, *status.DB) {
	t.Helper()
	_, store := testutil.TestRepo(t)
	db := testutil.TestStatusDB(t)
	return NewRouter(store, db, testKinds, nil), db
}

func doRequest(t *testing.T, r chi.Router, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestCreateAndGetRecord(t *testing.T) {
	r, _ := testRouter(t)

	w := doRequest(t, r, http.MethodPost, "/manifests/site_default", "", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["path"] != "site_default" {
		t.Errorf("path = %v", body["path"])
	}
	if !strings.HasPrefix(body["content"].(string), "<?xml") {
		t.Errorf("content = %v, want plist", body["content"])
	}

	w = doRequest(t, r, http.MethodGet, "/manifests/site_default", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	doc := decodeBody(t, w)
	if _, ok := doc["catalogs"]; !ok {
		t.Errorf("skeleton missing catalogs: %v", doc)
	}
}

func TestCreateRecord_Conflict(t *testing.T) {
	r, _ := testRouter(t)

	if w := doRequest(t, r, http.MethodPost, "/manifests/site_default", "", nil); w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	w := doRequest(t, r, http.MethodPost, "/manifests/site_default", "", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestCreateRecord_WithBody(t *testing.T) {
	r, _ := testRouter(t)

	w := doRequest(t, r, http.MethodPost, "/pkgsinfo/apps/Firefox.yaml",
		"name: Firefox\nversion: '128.0'\n", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, r, http.MethodGet, "/pkgsinfo/apps/Firefox.yaml", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	doc := decodeBody(t, w)
	if doc["name"] != "Firefox" {
		t.Errorf("name = %v, want Firefox", doc["name"])
	}
}

func TestCreateRecord_UnparseableBody(t *testing.T) {
	r, _ := testRouter(t)

	w := doRequest(t, r, http.MethodPost, "/pkgsinfo/apps/bad", "name: [unclosed\n", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestGetRecord_NotFound(t *testing.T) {
	r, _ := testRouter(t)
	w := doRequest(t, r, http.MethodGet, "/manifests/missing", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetRecord_FormatInfo(t *testing.T) {
	r, _ := testRouter(t)

	if w := doRequest(t, r, http.MethodPost, "/manifests/site_default", "", nil); w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	w := doRequest(t, r, http.MethodGet, "/manifests/site_default?format=info", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	info := decodeBody(t, w)
	if info["format"] != "plist" {
		t.Errorf("format = %v, want plist", info["format"])
	}
}

func TestListRecords(t *testing.T) {
	r, _ := testRouter(t)

	for _, p := range []string{"/manifests/site_default", "/manifests/groups/lab"} {
		if w := doRequest(t, r, http.MethodPost, p, "", nil); w.Code != http.StatusCreated {
			t.Fatalf("create %s: status = %d", p, w.Code)
		}
	}

	w := doRequest(t, r, http.MethodGet, "/manifests", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decodeBody(t, w)
	if body["total"] != float64(2) {
		t.Errorf("total = %v, want 2", body["total"])
	}
	records := body["records"].([]any)
	if len(records) != 2 {
		t.Errorf("records = %v", records)
	}
}

func TestWriteRecord(t *testing.T) {
	r, _ := testRouter(t)

	text := "name: Chrome\n"
	w := doRequest(t, r, http.MethodPut, "/pkgsinfo/apps/Chrome.yaml", text, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, r, http.MethodGet, "/pkgsinfo/apps/Chrome.yaml", "", nil)
	doc := decodeBody(t, w)
	if doc["name"] != "Chrome" {
		t.Errorf("name = %v, want Chrome", doc["name"])
	}
}

func TestWriteRecord_EmptyBody(t *testing.T) {
	r, _ := testRouter(t)
	w := doRequest(t, r, http.MethodPut, "/pkgsinfo/apps/x", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestDeleteRecord(t *testing.T) {
	r, _ := testRouter(t)

	if w := doRequest(t, r, http.MethodPost, "/manifests/gone", "", nil); w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	w := doRequest(t, r, http.MethodDelete, "/manifests/gone", "", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	w = doRequest(t, r, http.MethodDelete, "/manifests/gone", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestUnknownCollection(t *testing.T) {
	r, _ := testRouter(t)
	w := doRequest(t, r, http.MethodGet, "/icons", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestProcessStatus(t *testing.T) {
	r, db := testRouter(t)

	w := doRequest(t, r, http.MethodGet, "/process/manifests_list_process", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}

	db.Report("manifests_list_process", "Scanning groups...")

	w = doRequest(t, r, http.MethodGet, "/process/manifests_list_process", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	row := decodeBody(t, w)
	if row["message"] != "Scanning groups..." {
		t.Errorf("message = %v", row["message"])
	}
}

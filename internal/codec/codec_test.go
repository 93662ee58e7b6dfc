package codec

import (
	"errors"
	"strings"
	"testing"

	"github.com/okvist/manifold/internal/document"
	"github.com/okvist/manifold/internal/format"
)

func sampleDoc() *document.Document {
	m := document.NewMapping()
	m.Set("name", document.NewString("Firefox"))
	m.Set("version", document.NewString("128.0"))
	m.Set("managed", document.NewBool(true))
	m.Set("size", document.NewInt(1024))
	m.Set("catalogs", document.NewSequence(
		document.NewString("production"),
		document.NewString("testing"),
	))
	return m
}

func TestRoundTrip_YAML(t *testing.T) {
	doc := sampleDoc()
	data, err := Encode(doc, format.YAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := Decode(data, format.YAML)
	if res.Degraded {
		t.Fatal("round-trip decode degraded")
	}
	if res.Format != format.YAML {
		t.Errorf("format = %v, want YAML", res.Format)
	}
	if !res.Doc.Equal(doc) {
		t.Errorf("round-trip document differs:\n%s", data)
	}
	// Key order is contractual for YAML.
	keys := res.Doc.Keys()
	if keys[0] != "name" || keys[4] != "catalogs" {
		t.Errorf("key order not preserved: %v", keys)
	}
}

func TestRoundTrip_Plist(t *testing.T) {
	doc := sampleDoc()
	data, err := Encode(doc, format.Plist)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(string(data), "<?xml") {
		t.Errorf("plist output missing xml declaration:\n%s", data)
	}

	res := Decode(data, format.Plist)
	if res.Degraded {
		t.Fatal("round-trip decode degraded")
	}
	if res.Format != format.Plist {
		t.Errorf("format = %v, want Plist", res.Format)
	}
	if !res.Doc.Equal(doc) {
		t.Errorf("round-trip document differs:\n%s", data)
	}
}

func TestDecode_FallbackToOtherFormat(t *testing.T) {
	// YAML content hinted as plist still decodes, via the fallback chain.
	res := Decode([]byte("name: Firefox\ncatalogs:\n  - production\n"), format.Plist)
	if res.Degraded {
		t.Fatal("decode degraded")
	}
	if res.Format != format.YAML {
		t.Errorf("format = %v, want YAML", res.Format)
	}
	v, ok := res.Doc.Get("name")
	if !ok || v.StringValue() != "Firefox" {
		t.Errorf("name = %v", v)
	}
}

func TestDecode_UnparseableDegradesToEmptyMapping(t *testing.T) {
	res := Decode([]byte("name: [unclosed\n"), format.Unknown)
	if !res.Degraded {
		t.Fatal("expected degraded decode")
	}
	if res.Format != format.Unknown {
		t.Errorf("format = %v, want Unknown", res.Format)
	}
	if !res.Doc.IsMapping() || res.Doc.Len() != 0 {
		t.Errorf("degraded doc = %v, want empty mapping", res.Doc.Kind())
	}
}

func TestDecode_EmptyContentIsNull(t *testing.T) {
	res := Decode([]byte("   \n"), format.Unknown)
	if res.Degraded {
		t.Fatal("empty content should not degrade")
	}
	if res.Doc.Kind() != document.Null {
		t.Errorf("kind = %v, want Null", res.Doc.Kind())
	}
}

func TestDecode_YAMLRejectedByPlistGuard(t *testing.T) {
	// Raw YAML must never be accepted by the plist decoder, which would
	// otherwise read it as an OpenStep text plist.
	if _, err := decodePlist([]byte("name: Firefox\n")); err == nil {
		t.Error("plist decoder accepted YAML content")
	}
}

func TestEncode_UnknownTargetFails(t *testing.T) {
	_, err := Encode(sampleDoc(), format.Unknown)
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("err = %v, want ErrUnknownFormat", err)
	}
}

func TestEncode_YAMLIndentation(t *testing.T) {
	m := document.NewMapping()
	inner := document.NewMapping()
	inner.Set("key", document.NewString("value"))
	m.Set("outer", inner)

	data, err := Encode(m, format.YAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "outer:\n  key: value\n"
	if string(data) != want {
		t.Errorf("yaml = %q, want %q", data, want)
	}
}

// Package codec encodes and decodes records in the two supported
// serializations: YAML and Apple property lists.
package codec

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
	"howett.net/plist"

	"github.com/okvist/manifold/internal/document"
	"github.com/okvist/manifold/internal/format"
)

// ErrUnknownFormat is returned by Encode for a target that is neither YAML
// nor plist.
var ErrUnknownFormat = errors.New("codec: unknown target format")

// DecodeResult is the outcome of a decode attempt.
//
// Decode never fails: a record that cannot be parsed in either format
// degrades to an empty mapping with Degraded set, so that browsing a
// repository with a stray corrupt file never aborts a listing or preview.
type DecodeResult struct {
	// Doc is the decoded document, or an empty mapping when Degraded.
	Doc *document.Document
	// Format is the encoding that actually parsed the content. Unknown when
	// Degraded.
	Format format.Tag
	// Degraded is true when both decoders failed.
	Degraded bool
}

// Decode parses content, trying the hinted format first and the other one on
// failure. Callers needing to observe the degraded case check Degraded.
func Decode(content []byte, hint format.Tag) DecodeResult {
	order := []format.Tag{format.Plist, format.YAML}
	if hint == format.YAML {
		order = []format.Tag{format.YAML, format.Plist}
	}
	for _, tag := range order {
		if doc, err := decodeOne(content, tag); err == nil {
			return DecodeResult{Doc: doc, Format: tag}
		}
	}
	return DecodeResult{Doc: document.NewMapping(), Format: format.Unknown, Degraded: true}
}

func decodeOne(content []byte, tag format.Tag) (*document.Document, error) {
	if tag == format.YAML {
		return decodeYAML(content)
	}
	return decodePlist(content)
}

func decodeYAML(content []byte) (*document.Document, error) {
	// An empty stream produces no document; yaml.safe_load semantics are a
	// null value, not an error.
	if len(bytes.TrimSpace(content)) == 0 {
		return document.NewNull(), nil
	}
	doc := &document.Document{}
	if err := yaml.Unmarshal(content, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodePlist(content []byte) (*document.Document, error) {
	// Only binary and XML property lists count; without this guard the
	// decoder would accept OpenStep text plists and misread YAML input as a
	// bare string, defeating the fallback ordering.
	trimmed := bytes.TrimSpace(content)
	if !bytes.HasPrefix(content, []byte("bplist")) && !bytes.HasPrefix(trimmed, []byte("<")) {
		return nil, errors.New("codec: not a binary or XML property list")
	}
	var raw interface{}
	if _, err := plist.Unmarshal(content, &raw); err != nil {
		return nil, err
	}
	return document.FromNative(raw)
}

// Encode serializes a document in the target format. Unlike Decode, encode
// failures propagate: a write must never silently produce empty output.
func Encode(doc *document.Document, target format.Tag) ([]byte, error) {
	switch target {
	case format.YAML:
		return encodeYAML(doc)
	case format.Plist:
		return encodePlist(doc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, target)
	}
}

// encodeYAML emits block-style YAML with two-space indentation, preserving
// mapping key insertion order.
func encodeYAML(doc *document.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("codec: encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("codec: encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// encodePlist emits an XML property list. Dictionary key order follows the
// encoder's own rules; order is contractual for YAML only.
func encodePlist(doc *document.Document) ([]byte, error) {
	out, err := plist.MarshalIndent(doc.ToNative(), plist.XMLFormat, "\t")
	if err != nil {
		return nil, fmt.Errorf("codec: encode plist: %w", err)
	}
	return append(out, '\n'), nil
}

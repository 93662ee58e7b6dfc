// Package format classifies record files as YAML or property-list encoded.
//
// Detection is a heuristic: the repository stores both encodings side by side
// with no per-file metadata, so classification relies on the path suffix
// first and a small content sample second. Callers tolerate the occasional
// misread by decoding with a fallback chain rather than trusting the tag.
package format

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Tag identifies a record's on-disk encoding.
type Tag string

const (
	YAML    Tag = "yaml"
	Plist   Tag = "plist"
	Unknown Tag = "unknown"
)

// sniffLimit caps how much content Detect inspects.
const sniffLimit = 1000

// sniffLines caps how many non-blank lines the scoring pass looks at.
const sniffLines = 10

// IsYAMLPath reports whether the path carries a YAML suffix.
func IsYAMLPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// IsPlistPath reports whether the path carries a plist suffix.
func IsPlistPath(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".plist"
}

// Detect classifies a record by path suffix, falling back to content
// sniffing when the suffix is not decisive. A nil content sample with no
// decisive suffix yields Unknown.
func Detect(path string, content []byte) Tag {
	switch {
	case IsYAMLPath(path):
		return YAML
	case IsPlistPath(path):
		return Plist
	case content == nil:
		return Unknown
	case LikelyYAML(content):
		return YAML
	default:
		return Plist
	}
}

// LikelyYAML inspects up to the first 1000 bytes of content and reports
// whether it reads more like YAML than like an XML property list.
func LikelyYAML(content []byte) bool {
	if len(content) > sniffLimit {
		content = content[:sniffLimit]
	}
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return false
	}
	if bytes.HasPrefix(trimmed, []byte("---")) {
		return true
	}
	if bytes.HasPrefix(trimmed, []byte("<?xml")) || bytes.HasPrefix(trimmed, []byte("<plist")) {
		return false
	}

	yamlLike, xmlLike := 0, 0
	seen := 0
	for _, raw := range strings.Split(string(trimmed), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		seen++
		if seen > sniffLines {
			break
		}
		if strings.Contains(line, ":") && !strings.HasPrefix(line, "<") {
			yamlLike++
		}
		if strings.HasPrefix(line, "<") && strings.HasSuffix(line, ">") {
			xmlLike++
		}
	}
	return yamlLike > xmlLike
}

// Info describes how a record file is encoded.
type Info struct {
	Format    Tag    `json:"format"`
	Extension string `json:"extension"`
}

// DescribeFile returns format information for a path and content sample.
func DescribeFile(path string, content []byte) Info {
	return Info{
		Format:    Detect(path, content),
		Extension: strings.ToLower(filepath.Ext(path)),
	}
}

// Package repo implements the record store: CRUD over kind-rooted
// collections of dual-format (YAML / property-list) record files.
package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/okvist/manifold/internal/codec"
	"github.com/okvist/manifold/internal/document"
	"github.com/okvist/manifold/internal/format"
	"github.com/okvist/manifold/internal/status"
	"github.com/okvist/manifold/internal/vcs"
)

// Store is the CRUD layer over a repository directory. Each collection
// ("kind") maps to a subdirectory of the root; a record is exactly one file
// at root/kind/relative-path.
//
// The store holds no locks: concurrent writers to the same record race at
// the filesystem level and the last completed write wins.
type Store struct {
	root          string // absolute path to the repository root
	defaultFormat format.Tag
	notifier      vcs.Notifier
	reporter      status.Reporter
	logger        *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithNotifier sets the version-control collaborator.
func WithNotifier(n vcs.Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithReporter sets the progress-reporting collaborator.
func WithReporter(r status.Reporter) Option {
	return func(s *Store) { s.reporter = r }
}

// WithDefaultFormat sets the repository-wide format preference used when
// neither the path suffix nor the caller decides.
func WithDefaultFormat(t format.Tag) Option {
	return func(s *Store) { s.defaultFormat = t }
}

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a Store rooted at the given directory. The directory must
// already exist. Collaborators default to no-ops and the format preference
// to plist.
func NewStore(root string, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("repo: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("repo: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repo: root is not a directory: %s", abs)
	}
	s := &Store{
		root:          abs,
		defaultFormat: format.Plist,
		notifier:      vcs.Nop{},
		reporter:      status.Nop{},
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.defaultFormat != format.YAML {
		s.defaultFormat = format.Plist
	}
	return s, nil
}

// Root returns the absolute repository root.
func (s *Store) Root() string { return s.root }

// FullPath resolves a record's absolute path without touching the disk.
func (s *Store) FullPath(kind, rel string) (string, error) {
	return s.safePath(kind, rel)
}

// safePath resolves kind/rel against the repository root and rejects any
// result that escapes the kind's subdirectory (directory traversal).
func (s *Store) safePath(kind, rel string) (string, error) {
	if kind == "" || kind != filepath.Base(kind) || strings.HasPrefix(kind, ".") {
		return "", fmt.Errorf("repo: invalid kind %q", kind)
	}
	if rel == "" {
		return "", fmt.Errorf("repo: empty record path")
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("repo: absolute paths not allowed: %s", rel)
	}
	base := filepath.Join(s.root, kind)
	abs := filepath.Join(base, cleaned)
	// Ensure the resolved path is still under the kind directory.
	if !strings.HasPrefix(abs, base+string(os.PathSeparator)) {
		return "", fmt.Errorf("repo: path escapes %s: %s", kind, rel)
	}
	return abs, nil
}

// resolveFormat applies the format-preference precedence: path suffix, then
// the caller's explicit preference, then the repository default, then plist.
func (s *Store) resolveFormat(rel string, pref format.Tag) format.Tag {
	switch {
	case format.IsYAMLPath(rel):
		return format.YAML
	case format.IsPlistPath(rel):
		return format.Plist
	case pref == format.YAML || pref == format.Plist:
		return pref
	default:
		return s.defaultFormat
	}
}

// List walks the kind's subdirectory recursively and returns record paths
// relative to it, in traversal order. Dot-prefixed directories are not
// descended into and dot-prefixed files are not reported. A missing kind
// directory yields an empty list. Progress is reported per visited
// subdirectory under the tag "<kind>_list_process".
func (s *Store) List(_ context.Context, kind string) ([]string, error) {
	if kind == "" || kind != filepath.Base(kind) || strings.HasPrefix(kind, ".") {
		return nil, fileErr(ErrRead, kind, "", fmt.Errorf("repo: invalid kind %q", kind))
	}
	base := filepath.Join(s.root, kind)
	if _, err := os.Stat(base); errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}

	out := []string{}
	err := filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		name := d.Name()
		if d.IsDir() {
			if p != base && strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			sub, relErr := filepath.Rel(base, p)
			if relErr != nil {
				return relErr
			}
			if sub == "." {
				sub = ""
			}
			s.reporter.Report(kind+"_list_process", fmt.Sprintf("Scanning %s...", filepath.ToSlash(sub)))
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		rel, relErr := filepath.Rel(base, p)
		if relErr != nil {
			return relErr
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fileErr(ErrRead, kind, "", err)
	}
	return out, nil
}

// Create materializes a new record. It fails when a file already exists at
// the target path. A nil document produces the kind's default skeleton. The
// target format follows the suffix > repository default > plist precedence.
// Returns the textual content that was written.
func (s *Store) Create(ctx context.Context, kind, rel, actor string, doc *document.Document) (string, error) {
	abs, err := s.safePath(kind, rel)
	if err != nil {
		return "", fileErr(ErrWrite, kind, rel, err)
	}
	if _, err := os.Stat(abs); err == nil {
		return "", fileErr(ErrAlreadyExists, kind, rel, nil)
	}
	if doc == nil {
		doc = skeleton(kind)
	}
	target := s.resolveFormat(rel, format.Unknown)
	data, err := codec.Encode(doc, target)
	if err != nil {
		return "", fileErr(ErrWrite, kind, rel, err)
	}
	if err := s.writeFile(abs, data); err != nil {
		return "", fileErr(ErrWrite, kind, rel, err)
	}
	s.logger.Info("record created",
		slog.String("kind", kind),
		slog.String("path", rel),
		slog.String("format", string(target)),
		slog.String("actor", actor))
	s.notifyAdd(ctx, abs, kind, rel, actor)
	return string(data), nil
}

// Read loads a record, detects its format, and decodes it. Content that
// parses in neither format degrades to an empty mapping rather than failing;
// the degradation is logged.
func (s *Store) Read(_ context.Context, kind, rel string) (*document.Document, error) {
	abs, err := s.safePath(kind, rel)
	if err != nil {
		return nil, fileErr(ErrRead, kind, rel, err)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fileErr(ErrDoesNotExist, kind, rel, nil)
		}
		return nil, fileErr(ErrRead, kind, rel, err)
	}
	res := codec.Decode(content, format.Detect(rel, content))
	if res.Degraded {
		s.logger.Warn("record parsed in neither format, degrading to empty mapping",
			slog.String("kind", kind),
			slog.String("path", rel))
	}
	return res.Doc, nil
}

// WriteText writes pre-serialized record text verbatim, creating the record
// and any missing intermediate directories if needed.
func (s *Store) WriteText(ctx context.Context, kind, rel, actor, text string) error {
	abs, err := s.safePath(kind, rel)
	if err != nil {
		return fileErr(ErrWrite, kind, rel, err)
	}
	if err := s.writeFile(abs, []byte(text)); err != nil {
		return fileErr(ErrWrite, kind, rel, err)
	}
	s.logger.Info("record written",
		slog.String("kind", kind),
		slog.String("path", rel),
		slog.String("actor", actor))
	s.notifyAdd(ctx, abs, kind, rel, actor)
	return nil
}

// WriteDocument encodes and writes a document, creating the record if
// needed. The target format follows the suffix > explicit preference >
// repository default > plist precedence; pass format.Unknown for no explicit
// preference.
func (s *Store) WriteDocument(ctx context.Context, kind, rel, actor string, doc *document.Document, pref format.Tag) error {
	abs, err := s.safePath(kind, rel)
	if err != nil {
		return fileErr(ErrWrite, kind, rel, err)
	}
	target := s.resolveFormat(rel, pref)
	data, err := codec.Encode(doc, target)
	if err != nil {
		return fileErr(ErrWrite, kind, rel, err)
	}
	if err := s.writeFile(abs, data); err != nil {
		return fileErr(ErrWrite, kind, rel, err)
	}
	s.logger.Info("record written",
		slog.String("kind", kind),
		slog.String("path", rel),
		slog.String("format", string(target)),
		slog.String("actor", actor))
	s.notifyAdd(ctx, abs, kind, rel, actor)
	return nil
}

// Delete removes a record. It fails when the record does not exist.
func (s *Store) Delete(ctx context.Context, kind, rel, actor string) error {
	abs, err := s.safePath(kind, rel)
	if err != nil {
		return fileErr(ErrDelete, kind, rel, err)
	}
	if _, err := os.Stat(abs); errors.Is(err, fs.ErrNotExist) {
		return fileErr(ErrDoesNotExist, kind, rel, nil)
	}
	if err := os.Remove(abs); err != nil {
		return fileErr(ErrDelete, kind, rel, err)
	}
	s.logger.Info("record deleted",
		slog.String("kind", kind),
		slog.String("path", rel),
		slog.String("actor", actor))
	if actor == "" {
		return nil
	}
	if err := s.notifier.DeleteFileAtPath(ctx, abs, actor); err != nil {
		// Advisory: the delete already succeeded on disk.
		s.logger.Warn("version control delete failed",
			slog.String("path", rel),
			slog.String("error", err.Error()))
	}
	return nil
}

// FormatInfo returns detection info for a record. A missing record reports
// the Unknown format rather than an error.
func (s *Store) FormatInfo(_ context.Context, kind, rel string) (format.Info, error) {
	abs, err := s.safePath(kind, rel)
	if err != nil {
		return format.Info{}, fileErr(ErrRead, kind, rel, err)
	}
	f, err := os.Open(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return format.DescribeFile(rel, nil), nil
		}
		return format.Info{}, fileErr(ErrRead, kind, rel, err)
	}
	defer f.Close()
	sample, err := io.ReadAll(io.LimitReader(f, 1000))
	if err != nil {
		return format.Info{}, fileErr(ErrRead, kind, rel, err)
	}
	return format.DescribeFile(rel, sample), nil
}

// writeFile atomically writes content: mkdir -p, tmp file, fsync, rename.
func (s *Store) writeFile(abs string, content []byte) error {
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("repo: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".manifold-tmp-*")
	if err != nil {
		return fmt.Errorf("repo: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("repo: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("repo: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("repo: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("repo: rename: %w", err)
	}
	success = true
	return nil
}

// notifyAdd informs version control about a write. The notification is
// advisory: the write has already succeeded and its outcome is not revisited.
func (s *Store) notifyAdd(ctx context.Context, abs, kind, rel, actor string) {
	if actor == "" {
		return
	}
	if err := s.notifier.AddFileAtPath(ctx, abs, actor); err != nil {
		s.logger.Warn("version control add failed",
			slog.String("kind", kind),
			slog.String("path", rel),
			slog.String("error", err.Error()))
	}
}

package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driven"
	"github.com/custodia-labs/qms-rag/internal/logger"
	"github.com/custodia-labs/qms-rag/internal/normalisers"
)

// LoadResult is the output of reading and normalising a set of source files.
type LoadResult struct {
	// Documents are the normalised documents in source order.
	Documents []domain.Document

	// Sources are the files that produced documents, in build order.
	Sources []string

	// Skipped are files no normaliser handles.
	Skipped []string

	// Digest is the SHA-256 over the bytes of Sources.
	Digest string
}

// SourceLoader expands input paths and normalises each file by MIME type.
type SourceLoader struct {
	registry driven.NormaliserRegistry
	readFile func(string) ([]byte, error)
}

// NewSourceLoader creates a loader dispatching to registry.
func NewSourceLoader(registry driven.NormaliserRegistry) *SourceLoader {
	return &SourceLoader{registry: registry, readFile: os.ReadFile}
}

// Load reads every file named by paths. Files, directories and doublestar
// patterns such as "docs/**/*.pdf" are accepted.
func (l *SourceLoader) Load(ctx context.Context, paths []string) (*LoadResult, error) {
	files, err := ExpandPaths(paths)
	if err != nil {
		return nil, err
	}

	result := &LoadResult{}
	digest := sha256.New()
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		mimeType, ok := normalisers.MIMETypeForPath(path)
		if !ok {
			logger.Warn("skipping %s: unsupported file type", path)
			result.Skipped = append(result.Skipped, path)
			continue
		}

		content, err := l.readFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", domain.ErrConfiguration, path, err)
		}

		raw := &domain.RawDocument{
			URI:      path,
			MIMEType: mimeType,
			Content:  content,
			Metadata: map[string]any{domain.MetaFormat: strings.TrimPrefix(filepath.Ext(path), ".")},
		}
		res, err := l.registry.Normalise(ctx, raw)
		if errors.Is(err, domain.ErrUnsupportedType) {
			logger.Warn("skipping %s: %v", path, err)
			result.Skipped = append(result.Skipped, path)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("normalise %s: %w", path, err)
		}

		logger.Debug("Loaded %s (%s): %d document(s)", path, mimeType, len(res.Documents))
		result.Documents = append(result.Documents, res.Documents...)
		result.Sources = append(result.Sources, path)
		writeDigest(digest, content)
	}

	result.Digest = hex.EncodeToString(digest.Sum(nil))
	return result, nil
}

// Digest recomputes the source digest for files. A missing file yields an error.
func (l *SourceLoader) Digest(files []string) (string, error) {
	digest := sha256.New()
	for _, path := range files {
		content, err := l.readFile(path)
		if err != nil {
			return "", err
		}
		writeDigest(digest, content)
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}

// writeDigest feeds the per-file hash so file boundaries are unambiguous.
func writeDigest(h hash.Hash, content []byte) {
	sum := sha256.Sum256(content)
	h.Write(sum[:])
}

// ExpandPaths resolves files, directories and glob patterns into a
// deduplicated list of files. Directories are walked recursively and
// contribute only files with a supported extension; explicit files are
// kept as given so unsupported ones can be reported.
func ExpandPaths(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no source paths given", domain.ErrConfiguration)
	}

	seen := make(map[string]struct{})
	var out []string
	add := func(path string) {
		path = filepath.Clean(path)
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}

	for _, p := range paths {
		if isPattern(p) {
			matches, err := doublestar.FilepathGlob(p, doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("%w: bad pattern %q: %w", domain.ErrConfiguration, p, err)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("%w: no files match %q", domain.ErrConfiguration, p)
			}
			sort.Strings(matches)
			for _, m := range matches {
				add(m)
			}
			continue
		}

		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
		}
		if !info.IsDir() {
			add(p)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if _, ok := normalisers.MIMETypeForPath(path); ok {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", p, err)
		}
	}
	return out, nil
}

func isPattern(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

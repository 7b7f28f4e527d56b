// Package files manages the upload, OCR cache and output directories.
package files

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Manager owns the three working directories of the pipeline.
type Manager struct {
	inputDir  string
	cacheDir  string
	outputDir string
	log       *slog.Logger
	now       func() time.Time
}

// NewManager creates the directories if they do not exist.
func NewManager(inputDir, cacheDir, outputDir string, log *slog.Logger) (*Manager, error) {
	for _, dir := range []string{inputDir, cacheDir, outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &Manager{
		inputDir:  inputDir,
		cacheDir:  cacheDir,
		outputDir: outputDir,
		log:       log,
		now:       time.Now,
	}, nil
}

// NewDocumentID derives a document id from the upload's file name and the
// current time: "{name}_{unix seconds}". A random suffix is added if an
// upload with that id is already on disk.
func (m *Manager) NewDocumentID(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	slug := Slugify(base)
	if slug == "" {
		slug = "document"
	}
	id := fmt.Sprintf("%s_%d", slug, m.now().Unix())
	if _, err := os.Stat(m.PDFPath(id)); err == nil {
		id += "-" + uuid.NewString()[:8]
	}
	return id
}

// PDFPath is where the upload for id is stored.
func (m *Manager) PDFPath(id string) string {
	return filepath.Join(m.inputDir, id+".pdf")
}

// SavePDF writes the upload to disk and returns its path.
func (m *Manager) SavePDF(id string, data []byte) (string, error) {
	path := m.PDFPath(id)
	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("save pdf %s: %w", id, err)
	}
	return path, nil
}

// ReadPDF loads the stored upload for id.
func (m *Manager) ReadPDF(id string) ([]byte, error) {
	return os.ReadFile(m.PDFPath(id))
}

// CleanupPDF removes the upload for id. A missing file is not an error.
func (m *Manager) CleanupPDF(id string) {
	err := os.Remove(m.PDFPath(id))
	switch {
	case err == nil:
		m.log.Info("removed upload", "doc_id", id)
	case !errors.Is(err, fs.ErrNotExist):
		m.log.Warn("remove upload failed", "doc_id", id, "error", err)
	}
}

func (m *Manager) cachePath(id string) string {
	return filepath.Join(m.cacheDir, id+"_ocr_cache.json")
}

// LoadCache returns the cached OCR response for id. The bool is false when
// nothing is cached.
func (m *Manager) LoadCache(id string) ([]byte, bool, error) {
	data, err := os.ReadFile(m.cachePath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// SaveCache stores the raw OCR response for id.
func (m *Manager) SaveCache(id string, data []byte) error {
	return writeFileAtomic(m.cachePath(id), data)
}

// OutputPath is the path of the "{id}_{suffix}.json" artifact, or
// "{id}.json" when suffix is empty.
func (m *Manager) OutputPath(id, suffix string) string {
	name := id + ".json"
	if suffix != "" {
		name = id + "_" + suffix + ".json"
	}
	return filepath.Join(m.outputDir, name)
}

// WriteOutput writes v as indented JSON to the artifact path for id and
// suffix.
func (m *Manager) WriteOutput(id, suffix string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s output: %w", suffix, err)
	}
	path := m.OutputPath(id, suffix)
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// Slugify converts a string to a path-safe slug of at most 50 bytes.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugInvalid.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = strings.TrimRight(s[:50], "-")
	}
	return s
}

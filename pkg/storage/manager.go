// Package storage persists fetch batches as JSON files on disk.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	errs "xscraper/pkg/errors"
	"xscraper/pkg/logger"
	"xscraper/pkg/normalize"
)

var unsafeLabelChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Batch is the on-disk shape of one saved fetch.
type Batch struct {
	Timestamp string             `json:"timestamp"`
	Kind      string             `json:"kind"`
	Target    string             `json:"target"`
	Records   []normalize.Record `json:"records"`
}

// Manager writes batches under a base directory.
type Manager struct {
	baseDir string
	logger  logger.Logger
	now     func() time.Time
}

// NewManager creates a storage manager rooted at baseDir.
func NewManager(baseDir string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Manager{baseDir: baseDir, logger: log, now: time.Now}
}

// BaseDir returns the root output directory.
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// SaveBatch writes records to a timestamped JSON file named after the
// label and returns the file path. The write goes through a temp file
// and rename so readers never observe a partial batch.
func (m *Manager) SaveBatch(kind, target string, records []normalize.Record) (string, error) {
	if err := os.MkdirAll(m.baseDir, 0o755); err != nil {
		return "", errs.New(errs.ErrorTypeConfig,
			fmt.Sprintf("creating output directory %s: %v", m.baseDir, err), 0)
	}

	ts := m.now().UTC()
	batch := Batch{
		Timestamp: ts.Format(time.RFC3339),
		Kind:      kind,
		Target:    target,
		Records:   records,
	}
	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding batch: %w", err)
	}

	name := fmt.Sprintf("%s_%s_%s.json", kind, safeLabel(target), ts.Format("20060102_150405"))
	path := filepath.Join(m.baseDir, name)

	tmp, err := os.CreateTemp(m.baseDir, ".batch-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("writing batch: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("closing batch file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("finalizing batch file: %w", err)
	}

	m.logger.InfoWithFields("batch saved", map[string]interface{}{
		"path":    path,
		"records": len(records),
	})
	return path, nil
}

// LoadBatch reads a previously saved batch.
func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch: %w", err)
	}
	var batch Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, errs.New(errs.ErrorTypeParsing, fmt.Sprintf("decoding batch %s: %v", path, err), 0)
	}
	return &batch, nil
}

// safeLabel makes a target usable as a filename fragment.
func safeLabel(target string) string {
	label := unsafeLabelChars.ReplaceAllString(strings.TrimSpace(target), "_")
	label = strings.Trim(label, "_")
	if label == "" {
		return "batch"
	}
	if len(label) > 60 {
		label = label[:60]
	}
	return label
}

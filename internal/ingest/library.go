// Package ingest turns uploaded clinic documents into the clinic directory
// and the retrieval index.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

var supportedExtensions = map[string]struct{}{
	".pdf": {},
	".txt": {},
}

// Document describes one stored upload.
type Document struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified_at"`
}

// Library stores uploaded documents in a flat directory.
type Library struct {
	dir    string
	logger *logging.Logger
}

// NewLibrary opens dir, creating it if needed.
func NewLibrary(dir string, logger *logging.Logger) (*Library, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("ingest: upload directory is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ingest: create upload dir: %w", err)
	}
	return &Library{dir: dir, logger: logger}, nil
}

// CleanName validates an upload name and returns it without surrounding space.
func CleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") ||
		filepath.Base(name) != name {
		return "", ErrInvalidName
	}
	if _, ok := supportedExtensions[strings.ToLower(filepath.Ext(name))]; !ok {
		return "", ErrUnsupportedFile
	}
	return name, nil
}

// Path returns where a document with the given name is stored.
func (l *Library) Path(name string) string {
	return filepath.Join(l.dir, name)
}

// Save writes r under name, replacing any document with the same name.
func (l *Library) Save(name string, r io.Reader) (Document, error) {
	name, err := CleanName(name)
	if err != nil {
		return Document{}, err
	}

	tmp, err := os.CreateTemp(l.dir, ".upload-*")
	if err != nil {
		return Document{}, fmt.Errorf("ingest: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return Document{}, fmt.Errorf("ingest: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return Document{}, fmt.Errorf("ingest: write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), l.Path(name)); err != nil {
		return Document{}, fmt.Errorf("ingest: store %s: %w", name, err)
	}

	info, err := os.Stat(l.Path(name))
	if err != nil {
		return Document{}, fmt.Errorf("ingest: stat %s: %w", name, err)
	}
	l.logger.Info("document stored", "document", name, "bytes", info.Size())
	return Document{Name: name, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// List returns the supported documents sorted by name.
func (l *Library) List() ([]Document, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("ingest: read upload dir: %w", err)
	}
	docs := make([]Document, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := CleanName(e.Name()); err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("ingest: stat %s: %w", e.Name(), err)
		}
		docs = append(docs, Document{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// Has reports whether a document with the given name is stored.
func (l *Library) Has(name string) bool {
	name, err := CleanName(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(l.Path(name))
	return err == nil
}

// Remove deletes a stored document.
func (l *Library) Remove(name string) error {
	name, err := CleanName(name)
	if err != nil {
		return err
	}
	if err := os.Remove(l.Path(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("ingest: remove %s: %w", name, err)
	}
	l.logger.Info("document removed", "document", name)
	return nil
}

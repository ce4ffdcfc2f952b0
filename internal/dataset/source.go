package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when an index or dataset document does not exist.
var ErrNotFound = errors.New("dataset not found")

// ErrSuperseded is returned when a later load replaced this one before it
// reached the player.
var ErrSuperseded = errors.New("dataset load superseded")

// Source loads index and dataset documents.
type Source interface {
	Index(ctx context.Context) (Index, error)
	Load(ctx context.Context, dataType, name string) (*Graph, error)
}

// DirSource reads documents from a local directory laid out as
// <root>/index.json and <root>/<type>/<name>.json.
type DirSource struct {
	Root string
}

// NewDirSource creates a source rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{Root: dir}
}

// Index reads <root>/index.json.
func (s *DirSource) Index(ctx context.Context) (Index, error) {
	data, err := s.read(ctx, "index.json")
	if err != nil {
		return nil, err
	}
	return DecodeIndex(data)
}

// Load reads <root>/<type>/<name>.json. An empty type reads <root>/<name>.json,
// matching the legacy single-directory layout.
func (s *DirSource) Load(ctx context.Context, dataType, name string) (*Graph, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if dataType != "" {
		if err := validName(dataType); err != nil {
			return nil, err
		}
	}
	data, err := s.read(ctx, documentPath(dataType, name))
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

func (s *DirSource) read(ctx context.Context, rel string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.Root, filepath.FromSlash(rel)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", rel, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	return data, nil
}

// documentPath returns the slash-separated relative path of a dataset document.
func documentPath(dataType, name string) string {
	if dataType == "" || dataType == LegacyType {
		return name + ".json"
	}
	return dataType + "/" + name + ".json"
}

// validName rejects names that would escape the data root.
func validName(name string) error {
	if name == "" {
		return fmt.Errorf("empty dataset name: %w", ErrNotFound)
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid dataset name %q", name)
	}
	return nil
}

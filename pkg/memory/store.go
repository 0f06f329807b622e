package memory

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store persists a knowledge graph snapshot.
type Store interface {
	Load(ctx context.Context) (Graph, error)
	Save(ctx context.Context, g Graph) error
	Close() error
}

// Store kinds accepted by NewStore.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// NewStore builds a store by kind. path is ignored for the memory store.
func NewStore(kind, path string) (Store, error) {
	switch strings.ToLower(kind) {
	case "", StoreMemory:
		return NewMemoryStore(), nil
	case StoreFile:
		if path == "" {
			return nil, fmt.Errorf("file store requires a path")
		}
		return NewFileStore(path), nil
	case StoreSQLite:
		if path == "" {
			return nil, fmt.Errorf("sqlite store requires a path")
		}
		return NewSQLiteStore(path)
	}
	return nil, fmt.Errorf("unknown memory store %q (supported: memory, file, sqlite)", kind)
}

// MemoryStore keeps nothing; the graph lives only as long as the process.
type MemoryStore struct{}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (*MemoryStore) Load(context.Context) (Graph, error) { return Graph{}, nil }
func (*MemoryStore) Save(context.Context, Graph) error   { return nil }
func (*MemoryStore) Close() error                        { return nil }

// FileStore writes the graph as JSON lines, one entity or relation per line,
// each tagged with "type". The layout matches @modelcontextprotocol/server-memory's
// MEMORY_FILE_PATH file so the two can share data.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

type fileLine struct {
	Type string `json:"type"`
	Entity
	Relation
}

type entityLine struct {
	Type string `json:"type"`
	Entity
}

type relationLine struct {
	Type string `json:"type"`
	Relation
}

func (s *FileStore) Load(ctx context.Context) (Graph, error) {
	g := Graph{Entities: []Entity{}, Relations: []Relation{}}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return g, nil
		}
		return g, fmt.Errorf("failed to read memory file: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var fl fileLine
		if err := json.Unmarshal(line, &fl); err != nil {
			return g, fmt.Errorf("memory file line %d: %w", lineNo, err)
		}
		switch fl.Type {
		case "entity":
			if fl.Entity.Observations == nil {
				fl.Entity.Observations = []string{}
			}
			g.Entities = append(g.Entities, fl.Entity)
		case "relation":
			g.Relations = append(g.Relations, fl.Relation)
		default:
			return g, fmt.Errorf("memory file line %d: unknown type %q", lineNo, fl.Type)
		}
	}
	if err := scanner.Err(); err != nil {
		return g, fmt.Errorf("failed to scan memory file: %w", err)
	}
	return g, nil
}

func (s *FileStore) Save(ctx context.Context, g Graph) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range g.Entities {
		if err := enc.Encode(entityLine{Type: "entity", Entity: e}); err != nil {
			return fmt.Errorf("failed to encode entity %s: %w", e.Name, err)
		}
	}
	for _, r := range g.Relations {
		if err := enc.Encode(relationLine{Type: "relation", Relation: r}); err != nil {
			return fmt.Errorf("failed to encode relation: %w", err)
		}
	}

	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write memory file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Close() error { return nil }

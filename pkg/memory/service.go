package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrEntityNotFound is returned when an operation names an unknown entity.
var ErrEntityNotFound = errors.New("entity not found")

// KnowledgeGraph holds entities and relations and persists every mutation
// through its Store.
type KnowledgeGraph struct {
	store Store

	mu    sync.RWMutex
	graph Graph
}

// NewKnowledgeGraph loads the graph from store. A nil store keeps the graph
// in memory only.
func NewKnowledgeGraph(ctx context.Context, store Store) (*KnowledgeGraph, error) {
	if store == nil {
		store = NewMemoryStore()
	}
	g, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge graph: %w", err)
	}
	if g.Entities == nil {
		g.Entities = []Entity{}
	}
	if g.Relations == nil {
		g.Relations = []Relation{}
	}
	return &KnowledgeGraph{store: store, graph: g}, nil
}

// Close releases the underlying store.
func (kg *KnowledgeGraph) Close() error {
	return kg.store.Close()
}

// CreateEntities adds entities whose names are not yet present and returns
// the ones that were added. The batch is applied only if every entity is
// valid and the store accepts the result.
func (kg *KnowledgeGraph) CreateEntities(ctx context.Context, entities []Entity) ([]Entity, error) {
	for _, e := range entities {
		if e.Name == "" {
			return nil, fmt.Errorf("entity name is required")
		}
	}

	kg.mu.Lock()
	defer kg.mu.Unlock()

	next := kg.graph.clone()
	created := []Entity{}
	for _, e := range entities {
		if next.indexOf(e.Name) >= 0 {
			continue
		}
		if e.Observations == nil {
			e.Observations = []string{}
		}
		next.Entities = append(next.Entities, e.clone())
		created = append(created, e.clone())
	}
	if err := kg.commit(ctx, next); err != nil {
		return nil, err
	}
	return created, nil
}

// CreateRelations adds relations not already present (by full triple).
func (kg *KnowledgeGraph) CreateRelations(ctx context.Context, relations []Relation) ([]Relation, error) {
	for _, r := range relations {
		if r.From == "" || r.To == "" || r.RelationType == "" {
			return nil, fmt.Errorf("relation requires from, to and relationType")
		}
	}

	kg.mu.Lock()
	defer kg.mu.Unlock()

	next := kg.graph.clone()
	created := []Relation{}
	for _, r := range relations {
		if next.hasRelation(r) {
			continue
		}
		next.Relations = append(next.Relations, r)
		created = append(created, r)
	}
	if err := kg.commit(ctx, next); err != nil {
		return nil, err
	}
	return created, nil
}

// AddObservations appends new observations to existing entities. Nothing is
// added when any named entity is unknown.
func (kg *KnowledgeGraph) AddObservations(ctx context.Context, additions []ObservationAddition) ([]ObservationResult, error) {
	kg.mu.Lock()
	defer kg.mu.Unlock()

	for _, add := range additions {
		if kg.graph.indexOf(add.EntityName) < 0 {
			return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, add.EntityName)
		}
	}

	next := kg.graph.clone()
	results := []ObservationResult{}
	for _, add := range additions {
		entity := &next.Entities[next.indexOf(add.EntityName)]
		added := []string{}
		for _, obs := range add.Contents {
			if contains(entity.Observations, obs) {
				continue
			}
			entity.Observations = append(entity.Observations, obs)
			added = append(added, obs)
		}
		results = append(results, ObservationResult{EntityName: add.EntityName, AddedObservations: added})
	}
	if err := kg.commit(ctx, next); err != nil {
		return nil, err
	}
	return results, nil
}

// DeleteEntities removes entities and every relation touching them.
// Unknown names are ignored.
func (kg *KnowledgeGraph) DeleteEntities(ctx context.Context, names []string) error {
	kg.mu.Lock()
	defer kg.mu.Unlock()

	doomed := make(map[string]bool, len(names))
	for _, n := range names {
		doomed[n] = true
	}

	next := kg.graph.clone()
	entities := next.Entities[:0]
	for _, e := range next.Entities {
		if !doomed[e.Name] {
			entities = append(entities, e)
		}
	}
	next.Entities = entities

	relations := next.Relations[:0]
	for _, r := range next.Relations {
		if !doomed[r.From] && !doomed[r.To] {
			relations = append(relations, r)
		}
	}
	next.Relations = relations

	return kg.commit(ctx, next)
}

// DeleteObservations removes specific observations. Unknown entities are ignored.
func (kg *KnowledgeGraph) DeleteObservations(ctx context.Context, deletions []ObservationDeletion) error {
	kg.mu.Lock()
	defer kg.mu.Unlock()

	next := kg.graph.clone()
	for _, del := range deletions {
		idx := next.indexOf(del.EntityName)
		if idx < 0 {
			continue
		}
		entity := &next.Entities[idx]
		kept := []string{}
		for _, obs := range entity.Observations {
			if !contains(del.Observations, obs) {
				kept = append(kept, obs)
			}
		}
		entity.Observations = kept
	}
	return kg.commit(ctx, next)
}

// DeleteRelations removes the given relations.
func (kg *KnowledgeGraph) DeleteRelations(ctx context.Context, relations []Relation) error {
	kg.mu.Lock()
	defer kg.mu.Unlock()

	drop := make(map[Relation]bool, len(relations))
	for _, r := range relations {
		drop[r] = true
	}
	next := kg.graph.clone()
	kept := next.Relations[:0]
	for _, r := range next.Relations {
		if !drop[r] {
			kept = append(kept, r)
		}
	}
	next.Relations = kept
	return kg.commit(ctx, next)
}

// ReadGraph returns a copy of the whole graph.
func (kg *KnowledgeGraph) ReadGraph() Graph {
	kg.mu.RLock()
	defer kg.mu.RUnlock()
	return kg.graph.clone()
}

// SearchNodes returns entities whose name, type or observations contain
// query (case-insensitive), plus the relations between them.
func (kg *KnowledgeGraph) SearchNodes(query string) Graph {
	kg.mu.RLock()
	defer kg.mu.RUnlock()

	q := strings.ToLower(query)
	matched := []Entity{}
	for _, e := range kg.graph.Entities {
		if matchesEntity(e, q) {
			matched = append(matched, e.clone())
		}
	}
	return kg.subgraph(matched)
}

// OpenNodes returns the named entities and the relations between them.
func (kg *KnowledgeGraph) OpenNodes(names []string) Graph {
	kg.mu.RLock()
	defer kg.mu.RUnlock()

	matched := []Entity{}
	for _, e := range kg.graph.Entities {
		if contains(names, e.Name) {
			matched = append(matched, e.clone())
		}
	}
	return kg.subgraph(matched)
}

func (kg *KnowledgeGraph) subgraph(entities []Entity) Graph {
	names := make(map[string]bool, len(entities))
	for _, e := range entities {
		names[e.Name] = true
	}
	relations := []Relation{}
	for _, r := range kg.graph.Relations {
		if names[r.From] && names[r.To] {
			relations = append(relations, r)
		}
	}
	return Graph{Entities: entities, Relations: relations}
}

// commit persists next and only then makes it the current graph.
func (kg *KnowledgeGraph) commit(ctx context.Context, next Graph) error {
	if err := kg.store.Save(ctx, next); err != nil {
		return fmt.Errorf("failed to save knowledge graph: %w", err)
	}
	kg.graph = next
	return nil
}

func matchesEntity(e Entity, q string) bool {
	if strings.Contains(strings.ToLower(e.Name), q) || strings.Contains(strings.ToLower(e.EntityType), q) {
		return true
	}
	for _, obs := range e.Observations {
		if strings.Contains(strings.ToLower(obs), q) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

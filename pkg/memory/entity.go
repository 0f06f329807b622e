package memory

// Entity is a named node of the knowledge graph.
type Entity struct {
	Name         string   `json:"name"`
	EntityType   string   `json:"entityType"`
	Observations []string `json:"observations"`
}

// Relation is a directed, typed edge between two entities.
// Relations are stored in active voice ("from" uses "to").
type Relation struct {
	From         string `json:"from"`
	To           string `json:"to"`
	RelationType string `json:"relationType"`
}

// Graph is a snapshot of the knowledge graph.
type Graph struct {
	Entities  []Entity   `json:"entities"`
	Relations []Relation `json:"relations"`
}

// ObservationAddition lists observations to append to one entity.
type ObservationAddition struct {
	EntityName string   `json:"entityName"`
	Contents   []string `json:"contents"`
}

// ObservationResult reports the observations actually added.
type ObservationResult struct {
	EntityName        string   `json:"entityName"`
	AddedObservations []string `json:"addedObservations"`
}

// ObservationDeletion lists observations to remove from one entity.
type ObservationDeletion struct {
	EntityName   string   `json:"entityName"`
	Observations []string `json:"observations"`
}

func (e Entity) clone() Entity {
	e.Observations = append([]string{}, e.Observations...)
	return e
}

func (g Graph) clone() Graph {
	out := Graph{
		Entities:  make([]Entity, 0, len(g.Entities)),
		Relations: append([]Relation{}, g.Relations...),
	}
	for _, e := range g.Entities {
		out.Entities = append(out.Entities, e.clone())
	}
	return out
}

func (g Graph) indexOf(name string) int {
	for i, e := range g.Entities {
		if e.Name == name {
			return i
		}
	}
	return -1
}

func (g Graph) hasRelation(r Relation) bool {
	for _, existing := range g.Relations {
		if existing == r {
			return true
		}
	}
	return false
}

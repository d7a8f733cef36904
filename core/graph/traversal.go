package graph

import (
	"context"

	"github.com/evan-ryan-york/memograph/model"
	"github.com/google/uuid"
)

// EntityGetter loads single entities for traversal
type EntityGetter interface {
	SelectEntity(id uuid.UUID) (*model.Entity, error)
}

// EdgeGetter loads the edges touching one entity
type EdgeGetter interface {
	SelectEdgesForEntity(entityID uuid.UUID) ([]*model.Edge, error)
}

// TraversalResult contains an entity and its distance from the source
type TraversalResult struct {
	Entity   *model.Entity
	Distance int
	Path     []uuid.UUID // Path from source to this entity
}

// followable reports whether an edge passes the kind and weight filters.
// An empty kind list follows every kind.
func followable(edge *model.Edge, kinds []model.EdgeKind, minWeight float64) bool {
	if edge.Weight < minWeight {
		return false
	}
	if len(kinds) == 0 {
		return true
	}
	for _, kind := range kinds {
		if edge.Kind == kind {
			return true
		}
	}
	return false
}

// otherEnd returns the far endpoint of an edge. Edges are traversed in
// both directions; a relationship is a connection, not an arrow.
func otherEnd(edge *model.Edge, id uuid.UUID) uuid.UUID {
	if edge.FromID == id {
		return edge.ToID
	}
	return edge.FromID
}

// BFS performs breadth-first search from a source entity
func BFS(ctx context.Context, entities EntityGetter, edges EdgeGetter, sourceID uuid.UUID, maxHops int, kinds []model.EdgeKind, minWeight float64) ([]*TraversalResult, error) {
	source, err := entities.SelectEntity(sourceID)
	if err != nil {
		return nil, err
	}

	visited := map[uuid.UUID]bool{sourceID: true}
	queue := []TraversalResult{{
		Entity:   source,
		Distance: 0,
		Path:     []uuid.UUID{sourceID},
	}}

	var results []*TraversalResult
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current := queue[0]
		queue = queue[1:]

		results = append(results, &current)

		if current.Distance >= maxHops {
			continue
		}

		touching, err := edges.SelectEdgesForEntity(current.Entity.ID)
		if err != nil {
			return nil, err
		}

		for _, edge := range touching {
			if !followable(edge, kinds, minWeight) {
				continue
			}

			targetID := otherEnd(edge, current.Entity.ID)
			if visited[targetID] {
				continue
			}

			target, err := entities.SelectEntity(targetID)
			if err != nil {
				continue // skip dangling endpoints
			}

			visited[targetID] = true

			newPath := make([]uuid.UUID, len(current.Path))
			copy(newPath, current.Path)
			newPath = append(newPath, targetID)

			queue = append(queue, TraversalResult{
				Entity:   target,
				Distance: current.Distance + 1,
				Path:     newPath,
			})
		}
	}

	return results, nil
}

// DFS performs depth-first search from a source entity
func DFS(ctx context.Context, entities EntityGetter, edges EdgeGetter, sourceID uuid.UUID, maxHops int, kinds []model.EdgeKind, minWeight float64) ([]*TraversalResult, error) {
	source, err := entities.SelectEntity(sourceID)
	if err != nil {
		return nil, err
	}

	visited := map[uuid.UUID]bool{}
	var results []*TraversalResult
	dfsRecursive(ctx, entities, edges, source, 0, maxHops, []uuid.UUID{sourceID}, kinds, minWeight, visited, &results)

	return results, ctx.Err()
}

// dfsRecursive is the recursive helper for DFS
func dfsRecursive(
	ctx context.Context,
	entities EntityGetter,
	edges EdgeGetter,
	current *model.Entity,
	distance int,
	maxHops int,
	path []uuid.UUID,
	kinds []model.EdgeKind,
	minWeight float64,
	visited map[uuid.UUID]bool,
	results *[]*TraversalResult,
) {
	if ctx.Err() != nil {
		return
	}

	visited[current.ID] = true

	pathCopy := make([]uuid.UUID, len(path))
	copy(pathCopy, path)
	*results = append(*results, &TraversalResult{
		Entity:   current,
		Distance: distance,
		Path:     pathCopy,
	})

	if distance >= maxHops {
		return
	}

	touching, err := edges.SelectEdgesForEntity(current.ID)
	if err != nil {
		return
	}

	for _, edge := range touching {
		if !followable(edge, kinds, minWeight) {
			continue
		}

		targetID := otherEnd(edge, current.ID)
		if visited[targetID] {
			continue
		}

		target, err := entities.SelectEntity(targetID)
		if err != nil {
			continue // skip dangling endpoints
		}

		newPath := make([]uuid.UUID, len(path))
		copy(newPath, path)
		newPath = append(newPath, targetID)

		dfsRecursive(ctx, entities, edges, target, distance+1, maxHops, newPath, kinds, minWeight, visited, results)
	}
}

// Neighbors retrieves the immediate (1-hop) neighbors of an entity
func Neighbors(ctx context.Context, entities EntityGetter, edges EdgeGetter, entityID uuid.UUID, kinds []model.EdgeKind, minWeight float64) ([]*model.Entity, error) {
	results, err := BFS(ctx, entities, edges, entityID, 1, kinds, minWeight)
	if err != nil {
		return nil, err
	}

	// Skip the source entity itself (first result)
	neighbors := make([]*model.Entity, 0, len(results)-1)
	for i := 1; i < len(results); i++ {
		neighbors = append(neighbors, results[i].Entity)
	}

	return neighbors, nil
}

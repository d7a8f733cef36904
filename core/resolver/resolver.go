package resolver

import (
	"fmt"
	"strings"

	"github.com/evan-ryan-york/memograph/helper"
	"github.com/evan-ryan-york/memograph/model"
	"github.com/google/uuid"
)

// EntityStore is the slice of the entities handler the resolver needs
type EntityStore interface {
	GetOrCreateEntity(entity *model.Entity) (bool, error)
	SelectEntity(id uuid.UUID) (*model.Entity, error)
	SelectEntityByTitle(normalizedTitle string, entityType model.EntityType) (*model.Entity, error)
	SelectEntitiesByType(entityType model.EntityType) ([]*model.Entity, error)
	SetEntityPromoted(id uuid.UUID, promoted bool) error
}

// TitleResolver resolves a surface title and type to an entity ID.
// The mention ledger satisfies this with its in-process cache.
type TitleResolver interface {
	EntityIDFor(title string, entityType model.EntityType) (uuid.UUID, bool)
}

// selfPronouns are surface forms that refer to the owner of the graph
var selfPronouns = map[string]bool{
	"i":      true,
	"me":     true,
	"my":     true,
	"myself": true,
	"self":   true,
}

// Resolver maps extracted references to graph entities. It owns the self
// entity: the single core identity node that first-person references
// resolve to. There is at most one self entity per graph.
type Resolver struct {
	entities EntityStore
	self     *model.Entity
}

// NewResolver creates a reference resolver over the entities store
func NewResolver(entities EntityStore) (*Resolver, error) {
	if entities == nil {
		return nil, helper.NewError("entities handler validation", fmt.Errorf("entities handler is nil"))
	}

	return &Resolver{entities: entities}, nil
}

// SelfEntity returns the designated self entity, loading it from the
// store on first use. The observation hint, when present, overrides the
// stored designation for that lookup.
func (r *Resolver) SelfEntity(hint *uuid.UUID) (*model.Entity, error) {
	if hint != nil {
		entity, err := r.entities.SelectEntity(*hint)
		if err != nil {
			return nil, helper.NewError("select self entity by hint", err)
		}
		return entity, nil
	}

	if r.self != nil {
		return r.self, nil
	}

	candidates, err := r.entities.SelectEntitiesByType(model.EntityTypeCoreIdentity)
	if err != nil {
		return nil, helper.NewError("select core identity entities", err)
	}
	if len(candidates) == 0 {
		return nil, helper.NewError("self entity lookup", fmt.Errorf("no self entity designated"))
	}
	if len(candidates) > 1 {
		return nil, helper.NewError("self entity lookup", fmt.Errorf("multiple core identity entities found, expected at most one"))
	}

	r.self = candidates[0]
	return r.self, nil
}

// DesignateSelf creates or loads the core identity entity with the given
// title and marks it as the self entity. Designation fails when a
// different core identity entity already exists.
func (r *Resolver) DesignateSelf(title string, observationID uuid.UUID) (*model.Entity, error) {
	if strings.TrimSpace(title) == "" {
		return nil, helper.NewError("self designation", fmt.Errorf("self entity title is empty"))
	}

	existing, err := r.entities.SelectEntitiesByType(model.EntityTypeCoreIdentity)
	if err != nil {
		return nil, helper.NewError("select core identity entities", err)
	}
	for _, candidate := range existing {
		if candidate.NormalizedTitle != model.NormalizeTitle(title) {
			return nil, helper.NewError("self designation", fmt.Errorf("self entity already designated as %q", candidate.Title))
		}
	}

	entity := &model.Entity{
		Type:                model.EntityTypeCoreIdentity,
		Title:               strings.TrimSpace(title),
		Metadata:            model.Metadata{},
		SourceObservationID: &observationID,
	}
	_, err = r.entities.GetOrCreateEntity(entity)
	if err != nil {
		return nil, helper.NewError("get or create self entity", err)
	}

	// The self entity is always promoted
	if !entity.Promoted {
		err = r.entities.SetEntityPromoted(entity.ID, true)
		if err != nil {
			return nil, helper.NewError("promote self entity", err)
		}
		entity.Promoted = true
	}

	r.self = entity
	return entity, nil
}

// IsSelfReference reports whether a surface form is a first-person
// reference to the graph owner
func IsSelfReference(title string) bool {
	return selfPronouns[model.NormalizeTitle(title)]
}

// Resolve maps a candidate reference to an entity ID. First-person
// references resolve to the self entity; everything else resolves by
// normalized title and type through the mention cache.
func (r *Resolver) Resolve(title string, entityType model.EntityType, cache TitleResolver, hint *uuid.UUID) (uuid.UUID, error) {
	if IsSelfReference(title) {
		self, err := r.SelfEntity(hint)
		if err != nil {
			return uuid.Nil, err
		}
		return self.ID, nil
	}

	if cache != nil {
		if id, ok := cache.EntityIDFor(title, entityType); ok {
			return id, nil
		}
	}

	entity, err := r.entities.SelectEntityByTitle(model.NormalizeTitle(title), entityType)
	if err != nil {
		return uuid.Nil, helper.NewError("resolve reference", err)
	}

	return entity.ID, nil
}

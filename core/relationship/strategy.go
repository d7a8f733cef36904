package relationship

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/evan-ryan-york/memograph/model"
	"github.com/google/uuid"
)

// ResolveFunc maps a candidate title to a promoted entity ID. Titles come
// from relationship candidates, which carry no type information; the
// caller resolves them against the entities of the same observation.
type ResolveFunc func(title string) (uuid.UUID, bool)

// StrategyInput carries the context one strategy pass works on
type StrategyInput struct {
	Observation *model.Observation
	Entities    []*model.Entity
	Candidates  []*model.CandidateRelationship
	Resolve     ResolveFunc
}

// Strategy proposes edges from one angle on the graph. Strategies never
// write; the engine applies their proposals through the edge store.
type Strategy interface {
	Name() string
	Propose(ctx context.Context, input *StrategyInput) ([]*model.Edge, error)
}

// knownKinds are the relationship kinds the extraction collaborator may
// propose; anything else is coerced to relates_to
var knownKinds = map[model.EdgeKind]bool{
	model.EdgeKindBelongsTo:   true,
	model.EdgeKindModifies:    true,
	model.EdgeKindMentions:    true,
	model.EdgeKindInforms:     true,
	model.EdgeKindBlocks:      true,
	model.EdgeKindContradicts: true,
	model.EdgeKindRelatesTo:   true,
	model.EdgeKindRoleAt:      true,
}

// SemanticStrategy turns the extraction collaborator's relationship
// candidates into edges. Candidates whose endpoints do not resolve to
// promoted entities are skipped.
type SemanticStrategy struct{}

// NewSemanticStrategy creates a new semantic strategy
func NewSemanticStrategy() *SemanticStrategy {
	return &SemanticStrategy{}
}

func (s *SemanticStrategy) Name() string { return "semantic" }

// Propose converts resolvable relationship candidates into edges
func (s *SemanticStrategy) Propose(ctx context.Context, input *StrategyInput) ([]*model.Edge, error) {
	if input.Resolve == nil {
		return nil, nil
	}

	var edges []*model.Edge
	for _, candidate := range input.Candidates {
		fromID, ok := input.Resolve(candidate.FromTitle)
		if !ok {
			continue
		}
		toID, ok := input.Resolve(candidate.ToTitle)
		if !ok {
			continue
		}
		if fromID == toID {
			continue
		}

		kind := candidate.Kind
		if !knownKinds[kind] {
			kind = model.EdgeKindRelatesTo
		}

		edge := &model.Edge{
			FromID:      fromID,
			ToID:        toID,
			Kind:        kind,
			Confidence:  candidate.Confidence,
			Description: candidate.Description,
			ValidFrom:   candidate.StartDate,
			ValidTo:     candidate.EndDate,
		}
		if input.Observation != nil {
			edge.SourceObservationID = &input.Observation.ID
		}
		edges = append(edges, edge)
	}

	return edges, nil
}

// PatternStrategy finds explicit relationship phrasing in the raw note
// text. A person mentioned "at" a company within one clause yields a
// role_at edge; keyword signals between any two entities yield their
// mapped kinds.
type PatternStrategy struct{}

// keywordSignals map clause-level phrases between two entity titles to
// an edge kind. swap flips the edge direction for passive phrasing
// ("A blocked by B" means B blocks A).
var keywordSignals = []struct {
	phrase string
	kind   model.EdgeKind
	swap   bool
}{
	{`renamed?`, model.EdgeKindModifies, false},
	{`part\s+of`, model.EdgeKindBelongsTo, false},
	{`blocked\s+by`, model.EdgeKindBlocks, true},
}

// NewPatternStrategy creates a new pattern strategy
func NewPatternStrategy() *PatternStrategy {
	return &PatternStrategy{}
}

func (s *PatternStrategy) Name() string { return "pattern" }

const patternConfidence = 0.8

// Propose scans the observation content for "<person> ... at <company>"
func (s *PatternStrategy) Propose(ctx context.Context, input *StrategyInput) ([]*model.Edge, error) {
	if input.Observation == nil || input.Observation.Content == "" {
		return nil, nil
	}

	var persons, companies []*model.Entity
	for _, entity := range input.Entities {
		switch entity.Type {
		case model.EntityTypePerson:
			persons = append(persons, entity)
		case model.EntityTypeCompany:
			companies = append(companies, entity)
		}
	}

	var edges []*model.Edge
	for _, person := range persons {
		for _, company := range companies {
			pattern, err := regexp.Compile(
				`(?i)` + regexp.QuoteMeta(person.Title) + `[^.!?\n]{0,40}\bat\b[^.!?\n]{0,40}` + regexp.QuoteMeta(company.Title),
			)
			if err != nil {
				continue
			}
			if !pattern.MatchString(input.Observation.Content) {
				continue
			}

			edge := &model.Edge{
				FromID:              person.ID,
				ToID:                company.ID,
				Kind:                model.EdgeKindRoleAt,
				Confidence:          patternConfidence,
				Description:         "role statement in note",
				SourceObservationID: &input.Observation.ID,
			}
			edges = append(edges, edge)
		}
	}

	for i := 0; i < len(input.Entities); i++ {
		for j := 0; j < len(input.Entities); j++ {
			if i == j {
				continue
			}
			a, b := input.Entities[i], input.Entities[j]

			for _, signal := range keywordSignals {
				pattern, err := regexp.Compile(
					`(?i)` + regexp.QuoteMeta(a.Title) + `[^.!?\n]{0,40}\b` + signal.phrase + `\b[^.!?\n]{0,40}` + regexp.QuoteMeta(b.Title),
				)
				if err != nil {
					continue
				}
				if !pattern.MatchString(input.Observation.Content) {
					continue
				}

				fromID, toID := a.ID, b.ID
				if signal.swap {
					fromID, toID = toID, fromID
				}

				edges = append(edges, &model.Edge{
					FromID:              fromID,
					ToID:                toID,
					Kind:                signal.kind,
					Confidence:          patternConfidence,
					Description:         "explicit phrasing in note",
					SourceObservationID: &input.Observation.ID,
				})
			}
		}
	}

	return edges, nil
}

// EmbeddingStrategy links entities whose embeddings sit close together.
// Near-identical pairs of the same type are skipped as duplicate suspects
// rather than linked.
type EmbeddingStrategy struct {
	entities  EntityStore
	threshold float64
	limit     int
}

// duplicateSuspectSimilarity is the similarity above which two same-type
// entities look like the same concept rather than related concepts
const duplicateSuspectSimilarity = 0.95

// NewEmbeddingStrategy creates a new embedding similarity strategy
func NewEmbeddingStrategy(entities EntityStore, threshold float64, limit int) *EmbeddingStrategy {
	return &EmbeddingStrategy{entities: entities, threshold: threshold, limit: limit}
}

func (s *EmbeddingStrategy) Name() string { return "embedding" }

// Propose links similar entity pairs with semantically_related edges
func (s *EmbeddingStrategy) Propose(ctx context.Context, input *StrategyInput) ([]*model.Edge, error) {
	pairs, err := s.entities.SelectSimilarEntityPairs(s.threshold, s.limit)
	if err != nil {
		return nil, err
	}

	var edges []*model.Edge
	for _, pair := range pairs {
		if pair.Similarity > duplicateSuspectSimilarity {
			from, err := s.entities.SelectEntity(pair.FromID)
			if err != nil {
				continue
			}
			to, err := s.entities.SelectEntity(pair.ToID)
			if err != nil {
				continue
			}
			if from.Type == to.Type {
				continue
			}
		}

		edges = append(edges, &model.Edge{
			FromID:      pair.FromID,
			ToID:        pair.ToID,
			Kind:        model.EdgeKindSemanticNear,
			Confidence:  pair.Similarity,
			Description: "embedding similarity",
			Metadata:    model.Metadata{"similarity": pair.Similarity},
		})
	}

	return edges, nil
}

// TemporalStrategy links entities whose validity windows intersect.
// Entities without start or end date metadata are left alone; confidence
// grows with the length of the shared period.
type TemporalStrategy struct {
	entities EntityStore
	window   time.Duration
	limit    int
}

// Sentinel bounds for open validity windows
var (
	validityFloor   = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	validityCeiling = time.Date(2099, 12, 31, 0, 0, 0, 0, time.UTC)
)

// NewTemporalStrategy creates a new temporal overlap strategy
func NewTemporalStrategy(entities EntityStore, window time.Duration, limit int) *TemporalStrategy {
	return &TemporalStrategy{entities: entities, window: window, limit: limit}
}

func (s *TemporalStrategy) Name() string { return "temporal" }

// Propose links recently touched entities whose validity windows overlap
func (s *TemporalStrategy) Propose(ctx context.Context, input *StrategyInput) ([]*model.Edge, error) {
	since := time.Now().Add(-s.window)
	recent, err := s.entities.SelectEntitiesUpdatedSince(since, s.limit)
	if err != nil {
		return nil, err
	}

	type bounded struct {
		entity *model.Entity
		start  time.Time
		end    time.Time
		open   bool
	}

	var windows []bounded
	for _, entity := range recent {
		start, end, ok := entity.Metadata.ValidityWindow()
		if !ok {
			continue
		}
		w := bounded{entity: entity, start: validityFloor, end: validityCeiling, open: end == nil}
		if start != nil {
			w.start = *start
		}
		if end != nil {
			w.end = *end
		}
		windows = append(windows, w)
	}
	if len(windows) < 2 {
		return nil, nil
	}

	// Stable pair order regardless of store iteration order
	sort.Slice(windows, func(i, j int) bool {
		if !windows[i].start.Equal(windows[j].start) {
			return windows[i].start.Before(windows[j].start)
		}
		return windows[i].entity.Title < windows[j].entity.Title
	})

	var edges []*model.Edge
	for i := 0; i < len(windows); i++ {
		for j := i + 1; j < len(windows); j++ {
			a, b := windows[i], windows[j]
			if a.start.After(b.end) || b.start.After(a.end) {
				continue
			}

			overlapStart := a.start
			if b.start.After(overlapStart) {
				overlapStart = b.start
			}
			overlapEnd := a.end
			if b.end.Before(overlapEnd) {
				overlapEnd = b.end
			}
			open := a.open && b.open
			overlapDays := int(overlapEnd.Sub(overlapStart).Hours() / 24)

			description := fmt.Sprintf("co-occurred %s to %s",
				overlapStart.Format("2006-01-02"), overlapEnd.Format("2006-01-02"))
			if open {
				description = fmt.Sprintf("co-occurred from %s onwards", overlapStart.Format("2006-01-02"))
			}

			validFrom := overlapStart
			edge := &model.Edge{
				FromID:      a.entity.ID,
				ToID:        b.entity.ID,
				Kind:        model.EdgeKindTemporal,
				Confidence:  temporalConfidence(overlapDays),
				Description: description,
				ValidFrom:   &validFrom,
				Metadata:    model.Metadata{"overlap_days": overlapDays},
			}
			if !open {
				validTo := overlapEnd
				edge.ValidTo = &validTo
			}
			edges = append(edges, edge)
		}
	}

	return edges, nil
}

// temporalConfidence maps the length of the shared period to edge
// confidence: over a year of overlap is a strong tie, over a quarter a
// moderate one
func temporalConfidence(overlapDays int) float64 {
	switch {
	case overlapDays > 365:
		return 0.8
	case overlapDays > 90:
		return 0.7
	default:
		return 0.6
	}
}

// TwoHopStrategy infers connections between entities that share a strong
// neighbor but have no direct edge yet
type TwoHopStrategy struct {
	entities EntityStore
	edges    EdgeStore
	window   time.Duration
	limit    int
}

const inferredConfidence = 0.5

// NewTwoHopStrategy creates a new two-hop inference strategy
func NewTwoHopStrategy(entities EntityStore, edges EdgeStore, window time.Duration, limit int) *TwoHopStrategy {
	return &TwoHopStrategy{entities: entities, edges: edges, window: window, limit: limit}
}

func (s *TwoHopStrategy) Name() string { return "two_hop" }

// Propose walks two hops out from recently touched entities
func (s *TwoHopStrategy) Propose(ctx context.Context, input *StrategyInput) ([]*model.Edge, error) {
	since := time.Now().Add(-s.window)
	seeds, err := s.entities.SelectEntitiesUpdatedSince(since, s.limit)
	if err != nil {
		return nil, err
	}

	var proposals []*model.Edge
	proposed := map[[2]uuid.UUID]bool{}

	for _, seed := range seeds {
		direct, err := s.edges.SelectEdgesForEntity(seed.ID)
		if err != nil {
			return nil, err
		}

		neighbors := map[uuid.UUID]bool{}
		for _, edge := range direct {
			neighbors[otherEnd(edge, seed.ID)] = true
		}

		for neighbor := range neighbors {
			hops, err := s.edges.SelectEdgesForEntity(neighbor)
			if err != nil {
				return nil, err
			}

			for _, edge := range hops {
				target := otherEnd(edge, neighbor)
				if target == seed.ID || neighbors[target] {
					continue
				}

				key := pairKey(seed.ID, target)
				if proposed[key] {
					continue
				}
				proposed[key] = true

				proposals = append(proposals, &model.Edge{
					FromID:      seed.ID,
					ToID:        target,
					Kind:        model.EdgeKindInferred,
					Confidence:  inferredConfidence,
					Description: "shared neighbor",
				})
			}
		}
	}

	return proposals, nil
}

func otherEnd(edge *model.Edge, id uuid.UUID) uuid.UUID {
	if edge.FromID == id {
		return edge.ToID
	}
	return edge.FromID
}

// pairKey orders a pair of IDs so both directions collapse to one key
func pairKey(a, b uuid.UUID) [2]uuid.UUID {
	if a.String() < b.String() {
		return [2]uuid.UUID{a, b}
	}
	return [2]uuid.UUID{b, a}
}

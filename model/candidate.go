package model

import "time"

// CandidateEntity is an entity proposed by the extraction collaborator,
// not yet promoted into the graph
type CandidateEntity struct {
	Title            string     `json:"title"`
	Type             EntityType `json:"type"`
	Summary          string     `json:"summary,omitempty"`
	Confidence       float64    `json:"confidence"`
	IsPrimarySubject bool       `json:"is_primary_subject"`
}

// CandidateRelationship is a relationship proposed by the extraction
// collaborator, expressed in entity titles because the collaborator has
// no knowledge of graph ids
type CandidateRelationship struct {
	FromTitle   string     `json:"from_title"`
	ToTitle     string     `json:"to_title"`
	Kind        EdgeKind   `json:"kind"`
	Confidence  float64    `json:"confidence"`
	Description string     `json:"description,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

// ExtractionResult is the full response of one collaborator call.
// On collaborator failure both slices are empty, never nil pipelines.
type ExtractionResult struct {
	Entities      []*CandidateEntity       `json:"entities"`
	Relationships []*CandidateRelationship `json:"relationships"`
}

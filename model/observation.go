package model

import (
	"time"

	"github.com/google/uuid"
)

// ObservationStatus represents the processing state of an observation
type ObservationStatus string

const (
	ObservationStatusReady     ObservationStatus = "ready"
	ObservationStatusProcessed ObservationStatus = "processed"
	ObservationStatusWarnings  ObservationStatus = "processed_with_warnings"
	ObservationStatusError     ObservationStatus = "error"
)

// Observation represents one raw captured unit entering the system.
// The engine only ever transitions Status; removal goes through the
// deletion coordinator.
type Observation struct {
	ID             uuid.UUID         `json:"id"`
	Source         string            `json:"source"`
	Content        string            `json:"content"`
	Status         ObservationStatus `json:"status"`
	SelfEntityHint *uuid.UUID        `json:"self_entity_hint,omitempty"`
	Metadata       Metadata          `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

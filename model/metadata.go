package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/evan-ryan-york/memograph/helper"
)

// Metadata represents JSONB metadata stored in PostgreSQL
type Metadata map[string]interface{}

// Value implements the driver.Valuer interface for database storage
func (m Metadata) Value() (driver.Value, error) {
	return m.Marshal()
}

// Scan implements the sql.Scanner interface for database retrieval
func (m *Metadata) Scan(value interface{}) error {
	return m.Unmarshal(value)
}

// Marshal converts Metadata to JSON bytes
func (m Metadata) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal converts JSON bytes or Metadata to Metadata
func (m *Metadata) Unmarshal(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}

	if s, ok := value.(Metadata); ok {
		*m = Metadata(s)
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return helper.NewError("byte assertion", errors.New("type assertion to []byte failed"))
	}

	return json.Unmarshal(b, m)
}

// Known metadata keys. Aliases and the user importance override are the
// only genuinely variable attributes; everything else lives in typed
// columns.
const (
	MetadataKeyAliases        = "aliases"
	MetadataKeyUserImportance = "user_importance"
	MetadataKeyDemotionReason = "demotion_reason"
	MetadataKeyStartDate      = "start_date"
	MetadataKeyEndDate        = "end_date"
)

// validityDateLayouts are the accepted layouts for validity metadata,
// most specific first
var validityDateLayouts = []string{"2006-01-02", "2006-01", "2006"}

func parseValidityDate(raw interface{}) *time.Time {
	s, ok := raw.(string)
	if !ok || s == "" {
		return nil
	}
	for _, layout := range validityDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// ValidityWindow returns the validity bounds recorded for an entity.
// A missing or unparseable bound comes back nil; ok is false when
// neither bound is usable.
func (m Metadata) ValidityWindow() (start, end *time.Time, ok bool) {
	start = parseValidityDate(m[MetadataKeyStartDate])
	end = parseValidityDate(m[MetadataKeyEndDate])
	return start, end, start != nil || end != nil
}

// Aliases returns the recorded surface forms for an entity
func (m Metadata) Aliases() []string {
	raw, ok := m[MetadataKeyAliases]
	if !ok {
		return nil
	}

	var aliases []string
	switch v := raw.(type) {
	case []string:
		aliases = v
	case []interface{}:
		for _, a := range v {
			if s, ok := a.(string); ok {
				aliases = append(aliases, s)
			}
		}
	}
	return aliases
}

// AddAlias records a surface form if it is not already present
func (m Metadata) AddAlias(alias string) bool {
	for _, a := range m.Aliases() {
		if a == alias {
			return false
		}
	}
	m[MetadataKeyAliases] = append(m.Aliases(), alias)
	return true
}

// UserImportance returns the explicit user override ("high", "low" or "")
func (m Metadata) UserImportance() string {
	if s, ok := m[MetadataKeyUserImportance].(string); ok {
		return s
	}
	return ""
}

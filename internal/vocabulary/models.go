// Package vocabulary stores per-scope status vocabulary overrides in MongoDB and
// merges them over the built-in vocabulary for each import run.
package vocabulary

import "time"

// Entry maps one source label to a canonical status name. Entries are stored as a
// list so labels containing '.' or '$' remain valid document content.
type Entry struct {
	Text   string `bson:"text" json:"text"`
	Status string `bson:"status" json:"status"`
}

type Override struct {
	ScopeID       string    `bson:"_id" json:"scope_id"`
	Entries       []Entry   `bson:"entries" json:"entries"`
	DefaultStatus string    `bson:"default_status,omitempty" json:"default_status,omitempty"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}

type UpdateRequest struct {
	Entries       map[string]string `json:"entries"`
	DefaultStatus string            `json:"default_status,omitempty"`
}

package inventory

import "time"

// ChangeEvent is one classified, immutable difference for one code between two imports.
// FromImportID is nil only for the first import of a scope.
type ChangeEvent struct {
	ID           string            `json:"id"`
	ScopeID      string            `json:"scope_id"`
	FromImportID *string           `json:"from_import_id"`
	ToImportID   string            `json:"to_import_id"`
	Code         string            `json:"code"`
	ChangeType   ChangeType        `json:"change_type"`
	Severity     Severity          `json:"severity" swaggertype:"string" enums:"INFO,WARN,BLOCK"`
	Field        string            `json:"field,omitempty"`
	OldValue     *string           `json:"old_value,omitempty"`
	NewValue     *string           `json:"new_value,omitempty"`
	Payload      map[string]string `json:"payload,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Outcome is the result of classifying one difference.
type Outcome struct {
	ChangeType ChangeType `json:"change_type"`
	Severity   Severity   `json:"severity"`
}

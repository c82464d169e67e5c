package normalizer

import (
	"sort"
	"strings"

	"cablesync/internal/inventory"
)

// Vocabulary translates free-text source statuses into the closed status enum.
// Lookups ignore case, surrounding spaces, and '_'/'-' separators.
type Vocabulary struct {
	entries       map[string]inventory.Status
	defaultStatus inventory.Status
}

var defaultEntries = map[inventory.Status][]string{
	inventory.StatusFree: {
		"free", "available", "pending", "libre", "disponible", "pendiente", "sin tender",
	},
	inventory.StatusReserved: {
		"reserved", "allocated", "reservado", "asignado",
	},
	inventory.StatusInTransit: {
		"in transit", "intransit", "in progress", "pulling",
		"en transito", "en tránsito", "en curso", "tendiendo",
	},
	inventory.StatusBlocked: {
		"blocked", "on hold", "hold", "bloqueado", "detenido", "en espera",
	},
	inventory.StatusDone: {
		"done", "completed", "complete", "laid", "ok",
		"terminado", "completado", "tendido", "finalizado",
	},
	inventory.StatusEliminated: {
		"eliminated", "removed", "deleted", "cancelled", "canceled",
		"eliminado", "anulado", "borrado", "cancelado",
	},
}

func NewVocabulary(entries map[string]inventory.Status, defaultStatus inventory.Status) *Vocabulary {
	v := &Vocabulary{
		entries:       make(map[string]inventory.Status, len(entries)),
		defaultStatus: defaultStatus,
	}
	for text, status := range entries {
		if key := vocabularyKey(text); key != "" {
			v.entries[key] = status
		}
	}
	return v
}

// DefaultVocabulary knows the canonical status names plus common English and Spanish labels.
func DefaultVocabulary() *Vocabulary {
	entries := make(map[string]inventory.Status)
	for status, labels := range defaultEntries {
		entries[status.String()] = status
		for _, label := range labels {
			entries[label] = status
		}
	}
	return NewVocabulary(entries, inventory.StatusFree)
}

// Merge returns a new vocabulary with overrides layered on top. A nil default
// keeps the current default status.
func (v *Vocabulary) Merge(overrides map[string]inventory.Status, defaultStatus *inventory.Status) *Vocabulary {
	merged := make(map[string]inventory.Status, len(v.entries)+len(overrides))
	for key, status := range v.entries {
		merged[key] = status
	}
	for text, status := range overrides {
		if key := vocabularyKey(text); key != "" {
			merged[key] = status
		}
	}

	def := v.defaultStatus
	if defaultStatus != nil {
		def = *defaultStatus
	}

	return &Vocabulary{entries: merged, defaultStatus: def}
}

func (v *Vocabulary) WithDefault(status inventory.Status) *Vocabulary {
	return v.Merge(nil, &status)
}

// Translate returns false when the text is not in the vocabulary.
func (v *Vocabulary) Translate(text string) (inventory.Status, bool) {
	status, ok := v.entries[vocabularyKey(text)]
	return status, ok
}

func (v *Vocabulary) Default() inventory.Status {
	return v.defaultStatus
}

func (v *Vocabulary) Len() int {
	return len(v.entries)
}

// Labels returns the known source labels in sorted order.
func (v *Vocabulary) Labels() []string {
	labels := make([]string, 0, len(v.entries))
	for key := range v.entries {
		labels = append(labels, key)
	}
	sort.Strings(labels)
	return labels
}

func vocabularyKey(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.NewReplacer("_", " ", "-", " ").Replace(text)
	return strings.Join(strings.Fields(text), " ")
}

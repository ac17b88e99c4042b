package completion

import "cif-onboarding/internal/models"

// Board statuses.
const (
	StatusSigned       = "signed"
	StatusGenerated    = "generated"
	StatusNotGenerated = "not_generated"
)

// BoardEntry is one line of a client's document board.
type BoardEntry struct {
	Type           DocumentType `json:"type"`
	Label          string       `json:"label"`
	Status         string       `json:"status"`
	DocumentID     string       `json:"documentId,omitempty"`
	FileName       string       `json:"fileName,omitempty"`
	GeneratedAt    string       `json:"generatedAt,omitempty"`
	Mandatory      bool         `json:"mandatory"`
	RegisteredType bool         `json:"registeredType"`
}

// DocumentBoard lists every existing document first, then one
// not_generated entry per registered type that has no document yet.
func DocumentBoard(existing []models.Document, reg *Registry) []BoardEntry {
	if reg == nil {
		reg = DefaultRegistry()
	}

	board := make([]BoardEntry, 0, len(existing)+len(reg.defs))
	covered := make(map[DocumentType]struct{}, len(existing))

	for _, doc := range existing {
		t := DocumentType(doc.TypeDocument)
		covered[t] = struct{}{}

		status := StatusGenerated
		if doc.Signe {
			status = StatusSigned
		}

		entry := BoardEntry{
			Type:           t,
			Label:          reg.Label(t),
			Status:         status,
			DocumentID:     doc.ID,
			FileName:       doc.NomFichier,
			GeneratedAt:    doc.DateGeneration,
			RegisteredType: reg.Has(t),
		}
		if def, err := reg.Definition(t); err == nil {
			entry.Mandatory = def.Mandatory
		}
		board = append(board, entry)
	}

	for _, def := range reg.defs {
		if _, ok := covered[def.Type]; ok {
			continue
		}
		board = append(board, BoardEntry{
			Type:           def.Type,
			Label:          def.Label,
			Status:         StatusNotGenerated,
			Mandatory:      def.Mandatory,
			RegisteredType: true,
		})
	}

	return board
}

// LatestByType keeps one entry per type, the one generated last. Entries
// keep the position of the first entry of their type. GeneratedAt is an
// ISO timestamp, so string order is time order; ties keep the earlier entry.
func LatestByType(board []BoardEntry) []BoardEntry {
	out := make([]BoardEntry, 0, len(board))
	pos := make(map[DocumentType]int, len(board))
	for _, e := range board {
		i, seen := pos[e.Type]
		if !seen {
			pos[e.Type] = len(out)
			out = append(out, e)
			continue
		}
		if e.GeneratedAt > out[i].GeneratedAt {
			out[i] = e
		}
	}
	return out
}

// MissingTypes returns the registered types with a not_generated entry.
func MissingTypes(board []BoardEntry) []DocumentType {
	var out []DocumentType
	for _, e := range board {
		if e.Status == StatusNotGenerated {
			out = append(out, e.Type)
		}
	}
	return out
}

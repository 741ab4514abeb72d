package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrEmptyRef is returned when a reference carries no identifier.
var ErrEmptyRef = errors.New("catalog: empty reference")

// ID is the canonical identifier form used inside the pricing core.
type ID string

// NormalizeID trims the value and renders UUIDs in canonical lower-case form.
func NormalizeID(raw string) ID {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if parsed, err := uuid.Parse(trimmed); err == nil {
		return ID(parsed.String())
	}
	return ID(trimmed)
}

// String returns the raw identifier.
func (id ID) String() string { return string(id) }

// Empty reports whether the identifier is unset.
func (id ID) Empty() bool { return id == "" }

// NormalizeIDs canonicalises and de-duplicates ids, preserving first-seen order.
func NormalizeIDs(raw []string) []ID {
	seen := make(map[ID]struct{}, len(raw))
	out := make([]ID, 0, len(raw))
	for _, r := range raw {
		id := NormalizeID(r)
		if id.Empty() {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// RefKind tags how a reference was supplied.
type RefKind uint8

const (
	// RefBare is a plain identifier.
	RefBare RefKind = iota
	// RefDocument is a partially populated record carrying an identifier.
	RefDocument
)

// Ref is a product or variant reference as it arrives at the pricing
// boundary: either a bare identifier or a partial document. It is normalised
// once and exposes only the canonical ID afterwards.
type Ref struct {
	kind RefKind
	id   ID
}

// RefOf builds a bare reference.
func RefOf(raw string) Ref {
	return Ref{kind: RefBare, id: NormalizeID(raw)}
}

// DocumentRef builds a reference from a partially populated record.
func DocumentRef(raw string) Ref {
	return Ref{kind: RefDocument, id: NormalizeID(raw)}
}

// ID returns the canonical identifier.
func (r Ref) ID() ID { return r.id }

// Kind reports the shape the reference was supplied in.
func (r Ref) Kind() RefKind { return r.kind }

// Valid reports whether the reference resolved to a non-empty identifier.
func (r Ref) Valid() bool { return !r.id.Empty() }

type refDocument struct {
	ID    *string `json:"id"`
	MgoID *string `json:"_id"`
}

// UnmarshalJSON accepts `"abc"`, `{"id":"abc"}` or `{"_id":"abc"}`.
func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Ref{}
		return nil
	}
	switch data[0] {
	case '"':
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*r = RefOf(raw)
	case '{':
		var doc refDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return err
		}
		switch {
		case doc.ID != nil && strings.TrimSpace(*doc.ID) != "":
			*r = DocumentRef(*doc.ID)
		case doc.MgoID != nil:
			*r = DocumentRef(*doc.MgoID)
		default:
			return ErrEmptyRef
		}
	default:
		return fmt.Errorf("catalog: unsupported reference %s", string(data))
	}
	if !r.Valid() {
		return ErrEmptyRef
	}
	return nil
}

// MarshalJSON renders the canonical identifier.
func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(r.id))
}

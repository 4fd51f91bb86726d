package store

import "fmt"

// ErrorKind discriminates store failure modes.
type ErrorKind string

const (
	// KindDuplicateKey is returned by Create when a record with the same
	// identifier already exists in the schema.
	KindDuplicateKey ErrorKind = "duplicate-key"
	// KindNotFound is returned by Update when no record has the given id.
	KindNotFound ErrorKind = "not-found"
	// KindMissingID is returned by Create when the record omits the
	// identifier field and auto-assignment is disabled for the schema.
	KindMissingID ErrorKind = "missing-identifier"
)

// Error is the store's typed error. Callers switch on Kind rather than
// string-matching messages.
type Error struct {
	Kind   ErrorKind
	Schema string
	ID     any
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindDuplicateKey:
		return fmt.Sprintf("schema %q: record with id %v already exists", e.Schema, e.ID)
	case KindNotFound:
		return fmt.Sprintf("schema %q: record with id %v not found", e.Schema, e.ID)
	case KindMissingID:
		return fmt.Sprintf("schema %q: record is missing identifier field and auto-id is disabled", e.Schema)
	default:
		return fmt.Sprintf("schema %q: store error", e.Schema)
	}
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	se, ok := err.(*Error)
	return ok && se.Kind == kind
}

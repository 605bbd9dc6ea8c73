// Package queryid generates the globally-unique identifier stamped onto
// every Query produced by the fragmenter.
package queryid

import uuid "github.com/satori/go.uuid"

// QueryID is a globally unique, opaque identifier for a single fragmented
// query. It is compared by equality and used as a hash key; its internal
// representation is not otherwise meaningful.
type QueryID string

// New mints a fresh QueryID from a random 128-bit value, mirroring the
// upstream scheduler's `Uuid::new_v4().to_string()`.
func New() QueryID {
	return QueryID(uuid.NewV4().String())
}

// String implements fmt.Stringer.
func (q QueryID) String() string {
	return string(q)
}

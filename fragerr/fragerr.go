// Package fragerr declares the error taxonomy used by the plan fragmenter.
//
// Errors are modeled as go-errors.v1 Kinds, the same pattern the auth
// package uses for ErrNotAuthorized/ErrNoPermission: a closed, inspectable
// set of error classes that callers can match with Kind.Is instead of
// string comparison.
package fragerr

import "gopkg.in/src-d/go-errors.v1"

var (
	// ErrMalformedPlan covers every structural defect in the input plan
	// tree: an exchange with arity != 1, a non-exchange node carrying a
	// stage reference, a missing schema, or a node type that cannot root
	// a stage.
	ErrMalformedPlan = errors.NewKind("malformed plan: %s")

	// ErrEmptyCluster is returned when the worker node manager reports
	// zero live workers while a non-root stage is being constructed.
	ErrEmptyCluster = errors.NewKind("cannot build stage %d: worker node manager reports zero workers")

	// ErrDuplicateStageID signals that add_node was called twice for the
	// same StageId. This should be unreachable if stage ids are assigned
	// by Fragmenter.nextStageID; it exists as an internal-bug signal.
	ErrDuplicateStageID = errors.NewKind("internal error: duplicate stage id %d")

	// ErrMissingStageID signals that a stage id was referenced (as a link
	// endpoint, or via Query.Parents) before it was added to the graph.
	ErrMissingStageID = errors.NewKind("internal error: stage id %d not found")
)

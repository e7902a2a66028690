package model

import "errors"

var (
	// ErrMalformedFragment is returned when a fragment misses required keys or has wrong types.
	ErrMalformedFragment = errors.New("ontograph: malformed fragment")

	// ErrDanglingReference marks a relationship endpoint absent from its fragment.
	ErrDanglingReference = errors.New("ontograph: dangling reference")

	// ErrSchemaConflict marks a property datatype disagreement.
	ErrSchemaConflict = errors.New("ontograph: schema conflict")

	// ErrAmbiguousPlacement marks an entity that could not be placed in the hierarchy.
	ErrAmbiguousPlacement = errors.New("ontograph: ambiguous placement")

	// ErrExternalLookup is returned when the reference knowledge base cannot be reached.
	ErrExternalLookup = errors.New("ontograph: external lookup failed")

	// ErrEmptyGraph is returned by operations that need at least one node.
	ErrEmptyGraph = errors.New("ontograph: empty graph")
)

type DiagnosticKind string

const (
	KindMalformedFragment     DiagnosticKind = "malformed_fragment"
	KindDanglingReference     DiagnosticKind = "dangling_reference"
	KindSchemaConflict        DiagnosticKind = "schema_conflict"
	KindAmbiguousPlacement    DiagnosticKind = "ambiguous_placement"
	KindExternalLookupFailure DiagnosticKind = "external_lookup_failure"
	KindSelfLoop              DiagnosticKind = "self_loop"
	KindMergeSelfLoop         DiagnosticKind = "merge_self_loop"
	KindOntologyMismatch      DiagnosticKind = "ontology_mismatch"
	KindPropertyConflict      DiagnosticKind = "property_conflict"
	KindDuplicateEntity       DiagnosticKind = "duplicate_entity"
)

// Diagnostic records a condition that was repaired or tolerated rather than
// failing the run.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Stage   string         `json:"stage"`
	Subject string         `json:"subject"`
	Message string         `json:"message"`
}

type Diagnostics []Diagnostic

func (d *Diagnostics) Add(kind DiagnosticKind, stage, subject, message string) {
	*d = append(*d, Diagnostic{Kind: kind, Stage: stage, Subject: subject, Message: message})
}

func (d Diagnostics) Count(kind DiagnosticKind) int {
	n := 0
	for _, x := range d {
		if x.Kind == kind {
			n++
		}
	}
	return n
}

func (d Diagnostics) Of(kind DiagnosticKind) Diagnostics {
	var out Diagnostics
	for _, x := range d {
		if x.Kind == kind {
			out = append(out, x)
		}
	}
	return out
}

package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: serial already issued or reserved for its partition
// - ErrStale: compare-and-swap lost the race, caller should re-read and retry
// - ErrExhausted: partition counter has no serials left to issue
// - ErrUnavailable: storage collaborator temporarily unavailable
//
// For validation errors (bad input, out-of-range fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrStale       = errors.New("stale")
	ErrExhausted   = errors.New("exhausted")
	ErrUnavailable = errors.New("unavailable")
)

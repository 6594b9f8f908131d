// Package validation checks candidate component records against the domain
// constraints before any serial is minted. The engine is a pure check: it
// never allocates and never mutates state. Every defect is reported in one
// call so a batch caller can surface all problems to the operator at once.
package validation

import (
	"context"
	"fmt"
	"time"

	"trackmark/pkg/domain"
	dErrors "trackmark/pkg/domain-errors"
)

// Severity grades a field error. Warnings flag vocabulary gaps (a division
// the registry does not list yet); whether they reject is caller policy.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// FieldError is one defect found in a candidate record.
type FieldError struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Result aggregates every defect from a single Validate call.
type Result struct {
	Errors []FieldError `json:"errors,omitempty"`
}

// OK reports whether the record has no error-severity defects. Warnings do
// not fail the record.
func (r Result) OK() bool {
	for _, e := range r.Errors {
		if e.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Warnings returns the warning-severity defects.
func (r Result) Warnings() []FieldError {
	var out []FieldError
	for _, e := range r.Errors {
		if e.Severity == SeverityWarning {
			out = append(out, e)
		}
	}
	return out
}

// Err folds error-severity defects into a single coded domain error, or nil.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	msg := ""
	for _, e := range r.Errors {
		if e.Severity != SeverityError {
			continue
		}
		if msg != "" {
			msg += "; "
		}
		msg += e.Field + ": " + e.Message
	}
	return dErrors.New(dErrors.CodeValidation, msg)
}

// RawComponent is a candidate record before any serial is minted. Serial is
// optional: zero means auto-allocation, anything else is a manually supplied
// serial that must not collide with its partition's ledger.
type RawComponent struct {
	Region        string
	Division      string
	TrackID       int
	KMMarker      int
	ComponentType string
	Year          int
	Serial        int
}

// SerialReader is the read-only view of the serial ledger the engine needs
// for manual-serial conflict checks. Reads never mutate the ledger.
type SerialReader interface {
	Peek(ctx context.Context, key domain.PartitionKey) (lastIssued int, err error)
	ReservedSerials(ctx context.Context, key domain.PartitionKey) (map[int]struct{}, error)
}

// Engine validates candidate records against the registry vocabulary.
type Engine struct {
	registry *Registry
	serials  SerialReader
	now      func() time.Time
}

// Option configures the engine.
type Option func(*Engine)

// WithSerialReader enables manual-serial conflict checks.
func WithSerialReader(r SerialReader) Option {
	return func(e *Engine) { e.serials = r }
}

// WithClock overrides the time source. Tests pin the year bound with it.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New constructs a validation engine over the given registry.
func New(registry *Registry, opts ...Option) (*Engine, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	e := &Engine{registry: registry, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Validate checks every constraint independently and reports all defects in
// one result. The returned error is infrastructure-only (the ledger read for
// a manual serial failed); defects never surface as errors.
func (e *Engine) Validate(ctx context.Context, raw RawComponent) (Result, error) {
	var res Result
	add := func(field, msg string, sev Severity) {
		res.Errors = append(res.Errors, FieldError{Field: field, Message: msg, Severity: sev})
	}

	regionKnown := e.registry.KnownRegion(raw.Region)
	if !regionKnown {
		add("region", fmt.Sprintf("unknown region %q", raw.Region), SeverityError)
	}

	if len(raw.Division) < 2 || len(raw.Division) > 6 {
		add("division", fmt.Sprintf("division must be 2-6 letters, got %q", raw.Division), SeverityError)
	} else if regionKnown && !e.registry.KnownDivision(raw.Region, raw.Division) {
		// Not fatal: divisions are added to the registry over time and a
		// stale table must not block the field crews.
		add("division", fmt.Sprintf("division %q not listed for region %q (registry %s)",
			raw.Division, raw.Region, e.registry.Version), SeverityWarning)
	}

	if raw.TrackID < domain.MinTrackID || raw.TrackID > domain.MaxTrackID {
		add("track_id", fmt.Sprintf("track id must be %d-%d, got %d",
			domain.MinTrackID, domain.MaxTrackID, raw.TrackID), SeverityError)
	}

	if raw.KMMarker < domain.MinKMMarker || raw.KMMarker > domain.MaxKMMarker {
		add("km_marker", fmt.Sprintf("km marker must be %d-%d, got %d",
			domain.MinKMMarker, domain.MaxKMMarker, raw.KMMarker), SeverityError)
	}

	componentType := domain.ComponentType(raw.ComponentType)
	if !componentType.Known() {
		add("component_type", fmt.Sprintf("unknown component type %q", raw.ComponentType), SeverityError)
	}

	maxYear := e.now().Year() + 1
	if raw.Year < domain.MinYear || raw.Year > maxYear {
		add("year", fmt.Sprintf("year must be %d-%d, got %d", domain.MinYear, maxYear, raw.Year), SeverityError)
	}

	if raw.Serial != 0 {
		if raw.Serial < domain.MinSerial || raw.Serial > domain.MaxSerial {
			add("serial", fmt.Sprintf("serial must be %d-%d, got %d",
				domain.MinSerial, domain.MaxSerial, raw.Serial), SeverityError)
		} else if e.serials != nil && res.OK() {
			// Conflict check only makes sense once the partition fields are
			// themselves valid.
			key := domain.PartitionKey{
				Region:        raw.Region,
				Division:      raw.Division,
				ComponentType: componentType,
				Year:          raw.Year,
			}
			issued, err := e.alreadyIssued(ctx, key, raw.Serial)
			if err != nil {
				return res, dErrors.Wrap(err, dErrors.CodeUnavailable, "serial conflict check failed")
			}
			if issued {
				add("serial", fmt.Sprintf("serial %d already issued for partition %s", raw.Serial, key), SeverityError)
			}
		}
	}

	return res, nil
}

func (e *Engine) alreadyIssued(ctx context.Context, key domain.PartitionKey, serial int) (bool, error) {
	last, err := e.serials.Peek(ctx, key)
	if err != nil {
		return false, err
	}
	if serial <= last {
		return true, nil
	}
	reserved, err := e.serials.ReservedSerials(ctx, key)
	if err != nil {
		return false, err
	}
	_, ok := reserved[serial]
	return ok, nil
}

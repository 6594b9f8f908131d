package handler

import (
	"strings"

	"trackmark/internal/validation"
	"trackmark/pkg/domain"
	dErrors "trackmark/pkg/domain-errors"
)

// RegisterRequest is the HTTP request body for POST /components.
type RegisterRequest struct {
	Region        string `json:"region"`
	Division      string `json:"division"`
	TrackID       int    `json:"track_id"`
	KMMarker      int    `json:"km_marker"`
	ComponentType string `json:"component_type"`
	Year          int    `json:"year"`
	Serial        int    `json:"serial,omitempty"`
}

// Validate normalizes casing and rejects empty required strings. Field
// semantics are the validation engine's job so every defect can be
// reported in one pass.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Region = strings.ToUpper(strings.TrimSpace(r.Region))
	r.Division = strings.ToUpper(strings.TrimSpace(r.Division))
	r.ComponentType = strings.ToUpper(strings.TrimSpace(r.ComponentType))
	if r.Region == "" {
		return dErrors.New(dErrors.CodeValidation, "region is required")
	}
	if r.Division == "" {
		return dErrors.New(dErrors.CodeValidation, "division is required")
	}
	if r.ComponentType == "" {
		return dErrors.New(dErrors.CodeValidation, "component_type is required")
	}
	return nil
}

// Raw converts the request to the validation engine's input.
func (r *RegisterRequest) Raw() validation.RawComponent {
	return validation.RawComponent{
		Region:        r.Region,
		Division:      r.Division,
		TrackID:       r.TrackID,
		KMMarker:      r.KMMarker,
		ComponentType: r.ComponentType,
		Year:          r.Year,
		Serial:        r.Serial,
	}
}

// StatusRequest is the HTTP request body for PATCH /components/{id}/status.
type StatusRequest struct {
	Status string `json:"status"`

	parsed domain.Status
}

func (r *StatusRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	status, err := domain.ParseStatus(r.Status)
	if err != nil {
		return err
	}
	r.parsed = status
	return nil
}

// ParsedStatus returns the validated status.
func (r *StatusRequest) ParsedStatus() domain.Status {
	return r.parsed
}

// DecodeRequest is the HTTP request body for POST /identifiers/decode.
type DecodeRequest struct {
	Identifier string `json:"identifier"`
}

func (r *DecodeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Identifier = strings.TrimSpace(r.Identifier)
	if r.Identifier == "" {
		return dErrors.New(dErrors.CodeValidation, "identifier is required")
	}
	return nil
}

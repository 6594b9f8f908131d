package handler

import (
	"strings"

	"trackmark/pkg/domain"
	dErrors "trackmark/pkg/domain-errors"
)

// ReserveRequest is the HTTP request body for POST /admin/serials/reserve.
type ReserveRequest struct {
	Region        string `json:"region"`
	Division      string `json:"division"`
	ComponentType string `json:"component_type"`
	Year          int    `json:"year"`
	Serial        int    `json:"serial"`

	parsedType domain.ComponentType
}

func (r *ReserveRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Region = strings.ToUpper(strings.TrimSpace(r.Region))
	r.Division = strings.ToUpper(strings.TrimSpace(r.Division))
	if r.Region == "" {
		return dErrors.New(dErrors.CodeValidation, "region is required")
	}
	if r.Division == "" {
		return dErrors.New(dErrors.CodeValidation, "division is required")
	}
	componentType, err := domain.ParseComponentType(r.ComponentType)
	if err != nil {
		return err
	}
	r.parsedType = componentType
	if r.Year < domain.MinYear {
		return dErrors.New(dErrors.CodeValidation, "year is out of range")
	}
	if r.Serial < domain.MinSerial || r.Serial > domain.MaxSerial {
		return dErrors.New(dErrors.CodeValidation, "serial is out of range")
	}
	return nil
}

// Partition returns the validated partition key.
func (r *ReserveRequest) Partition() domain.PartitionKey {
	return domain.PartitionKey{
		Region:        r.Region,
		Division:      r.Division,
		ComponentType: r.parsedType,
		Year:          r.Year,
	}
}

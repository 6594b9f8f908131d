// Package component registers physical track components: it validates the
// submission, allocates or reserves the serial, and persists the record
// under its encoded identifier.
package component

import (
	"time"

	"trackmark/pkg/domain"
)

// Record is a registered component keyed by its encoded identifier.
type Record struct {
	Identifier domain.ComponentIdentifier `json:"identifier"`
	Encoded    string                     `json:"encoded"`
	Status     domain.Status              `json:"status"`
	Warnings   []string                   `json:"warnings,omitempty"`
	CreatedAt  time.Time                  `json:"created_at"`
	UpdatedAt  time.Time                  `json:"updated_at"`
}

// SearchFilter narrows record listings. Zero values match everything.
type SearchFilter struct {
	Region        string
	Division      string
	ComponentType domain.ComponentType
	Year          int
	Status        domain.Status
	Limit         int
	Offset        int
}

// Stats summarizes the registry for the operator dashboard.
type Stats struct {
	Total    int                          `json:"total"`
	ByType   map[domain.ComponentType]int `json:"by_type"`
	ByRegion map[string]int               `json:"by_region"`
	ByStatus map[domain.Status]int        `json:"by_status"`
	ByYear   map[int]int                  `json:"by_year"`
}

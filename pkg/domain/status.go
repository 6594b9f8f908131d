package domain

import (
	"fmt"
	"strings"

	dErrors "trackmark/pkg/domain-errors"
)

// Status is the lifecycle state of an installed component. Replacement or
// retirement never frees the component's serial; the ledger is append-only.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusReplaced Status = "REPLACED"
	StatusRetired  Status = "RETIRED"
)

// ParseStatus validates a raw lifecycle status string.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusActive, StatusReplaced, StatusRetired:
		return st, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown status %q", s))
	}
}

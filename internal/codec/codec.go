// Package codec encodes and decodes the structured component identifier
// string. It is pure and stateless; vocabulary checks beyond the component
// type enum (known regions, divisions per region) belong to internal/validation.
package codec

import (
	"fmt"
	"strconv"
	"strings"

	"trackmark/pkg/domain"
)

// Prefix is the fixed first field of every identifier.
const Prefix = "IR"

const fieldCount = 8

// DecodeError reports every grammar violation found in one pass so callers
// can surface all defects at once.
type DecodeError struct {
	Input   string
	Reasons []string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q: %s", e.Input, strings.Join(e.Reasons, "; "))
}

// Encode assembles the canonical identifier string. It is total for
// well-formed identifiers; calling it with out-of-range fields is a
// programming error and yields a string Decode will reject.
//
// Grammar: IR-{region:2}-{division:2-6}-{track:3d}-{km:6d}-{type}-{year:4d}-{serial:6d}
func Encode(id domain.ComponentIdentifier) string {
	return fmt.Sprintf("%s-%s-%s-%03d-%06d-%s-%04d-%06d",
		Prefix, id.Region, id.Division, id.TrackID, id.KMMarker,
		id.ComponentType, id.Year, id.Serial)
}

// Decode parses an identifier string, reporting every grammar violation.
// It is the exact inverse of Encode for every value Encode can produce.
func Decode(s string) (domain.ComponentIdentifier, error) {
	parts := strings.Split(s, "-")
	if len(parts) != fieldCount {
		return domain.ComponentIdentifier{}, &DecodeError{
			Input:   s,
			Reasons: []string{fmt.Sprintf("expected %d '-'-delimited fields, got %d", fieldCount, len(parts))},
		}
	}

	var reasons []string
	fail := func(format string, args ...any) {
		reasons = append(reasons, fmt.Sprintf(format, args...))
	}

	if parts[0] != Prefix {
		fail("prefix must be %q, got %q", Prefix, parts[0])
	}

	region := parts[1]
	if len(region) != 2 || !isUpperAlpha(region) {
		fail("region must be exactly 2 letters, got %q", region)
	}

	division := parts[2]
	if len(division) < 2 || len(division) > 6 || !isUpperAlpha(division) {
		fail("division must be 2-6 letters, got %q", division)
	}

	trackID, ok := fixedDigits(parts[3], 3)
	if !ok {
		fail("track id must be exactly 3 digits, got %q", parts[3])
	}

	kmMarker, ok := fixedDigits(parts[4], 6)
	if !ok {
		fail("km marker must be exactly 6 digits, got %q", parts[4])
	}

	componentType := domain.ComponentType(parts[5])
	if !componentType.Known() {
		fail("unknown component type %q", parts[5])
	}

	year, ok := fixedDigits(parts[6], 4)
	if !ok {
		fail("year must be exactly 4 digits, got %q", parts[6])
	}

	serial, ok := fixedDigits(parts[7], 6)
	if !ok {
		fail("serial must be exactly 6 digits, got %q", parts[7])
	}

	if len(reasons) > 0 {
		return domain.ComponentIdentifier{}, &DecodeError{Input: s, Reasons: reasons}
	}

	return domain.ComponentIdentifier{
		Region:        region,
		Division:      division,
		TrackID:       trackID,
		KMMarker:      kmMarker,
		ComponentType: componentType,
		Year:          year,
		Serial:        serial,
	}, nil
}

// fixedDigits parses a zero-padded numeric field of exactly width digits.
func fixedDigits(s string, width int) (int, bool) {
	if len(s) != width {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isUpperAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return len(s) > 0
}

package domain

import "fmt"

// Serial space per partition. The ledger never reuses a serial, so once a
// partition reaches MaxSerial it is exhausted for good.
const (
	MinSerial = 1
	MaxSerial = 999999
)

// Field ranges enforced by validation and the codec.
const (
	MinTrackID  = 1
	MaxTrackID  = 999
	MinKMMarker = 0
	MaxKMMarker = 999999
	MinYear     = 2000
)

// ComponentIdentifier is the immutable identity of one physical track fitting.
// The serial is unique only within the identifier's partition, never globally.
type ComponentIdentifier struct {
	Region        string
	Division      string
	TrackID       int
	KMMarker      int
	ComponentType ComponentType
	Year          int
	Serial        int
}

// Partition returns the key that scopes this identifier's serial uniqueness.
func (id ComponentIdentifier) Partition() PartitionKey {
	return PartitionKey{
		Region:        id.Region,
		Division:      id.Division,
		ComponentType: id.ComponentType,
		Year:          id.Year,
	}
}

// PartitionKey scopes serial allocation: (region, division, componentType, year).
type PartitionKey struct {
	Region        string
	Division      string
	ComponentType ComponentType
	Year          int
}

// String renders the key in the canonical storage form. Grammar fields are
// letters and digits only, so ':' can never collide with field content.
func (k PartitionKey) String() string {
	return fmt.Sprintf("%s:%s:%s:%04d", k.Region, k.Division, k.ComponentType, k.Year)
}

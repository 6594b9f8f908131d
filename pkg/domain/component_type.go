package domain

import (
	"fmt"
	"strings"

	dErrors "trackmark/pkg/domain-errors"
)

// ComponentType identifies the kind of track fitting an identifier belongs to.
type ComponentType string

const (
	TypeBolt    ComponentType = "BOLT"
	TypeClip    ComponentType = "CLIP"
	TypePlate   ComponentType = "PLATE"
	TypeSleeper ComponentType = "SLEEPER"
	TypeFish    ComponentType = "FISH"
	TypeAnchor  ComponentType = "ANCHOR"
	TypeSpike   ComponentType = "SPIKE"
	TypeWasher  ComponentType = "WASHER"
)

// componentTypes maps each known type to its human-readable description.
var componentTypes = map[ComponentType]string{
	TypeBolt:    "Track Bolt",
	TypeClip:    "Rail Clip",
	TypePlate:   "Base Plate",
	TypeSleeper: "Railway Sleeper",
	TypeFish:    "Fish Plate",
	TypeAnchor:  "Rail Anchor",
	TypeSpike:   "Rail Spike",
	TypeWasher:  "Rail Washer",
}

// markingSizeMm holds the default physical marking size per component type.
// Small fittings leave less surface for the laser, so the rendered code must
// carry more pixels per module to stay legible (see internal/quality).
var markingSizeMm = map[ComponentType]float64{
	TypeBolt:    5,
	TypeClip:    8,
	TypePlate:   12,
	TypeSleeper: 15,
	TypeFish:    12,
	TypeAnchor:  10,
	TypeSpike:   6,
	TypeWasher:  4,
}

// ParseComponentType validates a raw component type string.
func ParseComponentType(s string) (ComponentType, error) {
	ct := ComponentType(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := componentTypes[ct]; !ok {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown component type %q", s))
	}
	return ct, nil
}

// Known reports whether the type is part of the vocabulary.
func (c ComponentType) Known() bool {
	_, ok := componentTypes[c]
	return ok
}

// Description returns the human-readable name, or the raw value if unknown.
func (c ComponentType) Description() string {
	if d, ok := componentTypes[c]; ok {
		return d
	}
	return string(c)
}

// MarkingSizeMm returns the default physical marking size for the type.
// Unknown types fall back to the smallest size so scoring stays conservative.
func (c ComponentType) MarkingSizeMm() float64 {
	if mm, ok := markingSizeMm[c]; ok {
		return mm
	}
	return 4
}

// ComponentTypes returns the known vocabulary in stable order.
func ComponentTypes() []ComponentType {
	return []ComponentType{
		TypeBolt, TypeClip, TypePlate, TypeSleeper,
		TypeFish, TypeAnchor, TypeSpike, TypeWasher,
	}
}

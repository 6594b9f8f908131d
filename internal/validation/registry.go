package validation

import (
	"encoding/json"
	"fmt"
	"io"

	_ "embed"
)

// Registry is the versioned lookup table of known regions and their
// divisions. It is plain data handed to the engine at construction so new
// divisions ship as a data change, never a logic change.
type Registry struct {
	Version string                `json:"version"`
	Regions map[string]RegionInfo `json:"regions"`
}

// RegionInfo describes one zonal railway and its operating divisions.
type RegionInfo struct {
	Name      string   `json:"name"`
	Divisions []string `json:"divisions"`
}

//go:embed registry.json
var defaultRegistryJSON []byte

// DefaultRegistry returns the registry bundled with the binary.
func DefaultRegistry() *Registry {
	reg, err := LoadRegistry(nil)
	if err != nil {
		// The embedded table is validated by tests; failing to parse it is
		// a build defect, not a runtime condition.
		panic(fmt.Sprintf("embedded registry invalid: %v", err))
	}
	return reg
}

// LoadRegistry reads a registry from r, falling back to the embedded table
// when r is nil.
func LoadRegistry(r io.Reader) (*Registry, error) {
	data := defaultRegistryJSON
	if r != nil {
		var err error
		data, err = io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read registry: %w", err)
		}
	}

	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	if reg.Version == "" {
		return nil, fmt.Errorf("registry missing version")
	}
	if len(reg.Regions) == 0 {
		return nil, fmt.Errorf("registry has no regions")
	}
	return &reg, nil
}

// KnownRegion reports whether code names a region in this registry.
func (r *Registry) KnownRegion(code string) bool {
	_, ok := r.Regions[code]
	return ok
}

// KnownDivision reports whether division is listed for region. Divisions not
// yet in the table are tolerated at warning level by the engine, so this only
// answers for regions the registry knows.
func (r *Registry) KnownDivision(region, division string) bool {
	info, ok := r.Regions[region]
	if !ok {
		return false
	}
	for _, d := range info.Divisions {
		if d == division {
			return true
		}
	}
	return false
}

// Package render implements the rendering and decoding collaborators around
// the core: turning encoded identifier strings into QR rasters for marking,
// and reading rasters back for the readability check.
package render

import (
	"fmt"
	"image"

	qr "github.com/skip2/go-qrcode"
)

// Level selects the QR error-correction level. Outdoor laser marking wears,
// so the default is the highest level.
type Level string

const (
	LevelLow     Level = "L"
	LevelMedium  Level = "M"
	LevelHigh    Level = "Q"
	LevelHighest Level = "H"
)

// Config tunes the renderer.
type Config struct {
	// ModulePx is the rendered pixel size of one module.
	ModulePx int

	// ErrorCorrection is the QR error-correction level.
	ErrorCorrection Level

	// DisableBorder drops the quiet zone. Only useful for tests; scanners
	// need the border.
	DisableBorder bool
}

// DefaultConfig matches the marking pipeline defaults.
func DefaultConfig() Config {
	return Config{
		ModulePx:        15,
		ErrorCorrection: LevelHighest,
	}
}

// Renderer produces QR rasters from encoded identifier strings.
type Renderer struct {
	cfg Config
}

// NewRenderer constructs a renderer.
func NewRenderer(cfg Config) *Renderer {
	if cfg.ModulePx <= 0 {
		cfg.ModulePx = DefaultConfig().ModulePx
	}
	if cfg.ErrorCorrection == "" {
		cfg.ErrorCorrection = LevelHighest
	}
	return &Renderer{cfg: cfg}
}

// Render returns the code for an encoded identifier as an in-memory image.
func (r *Renderer) Render(encoded string) (image.Image, error) {
	q, err := r.build(encoded)
	if err != nil {
		return nil, err
	}
	// Negative size renders at a fixed pixel count per module.
	return q.Image(-r.cfg.ModulePx), nil
}

// RenderPNG returns the code as PNG bytes for saving or HTTP responses.
func (r *Renderer) RenderPNG(encoded string) ([]byte, error) {
	q, err := r.build(encoded)
	if err != nil {
		return nil, err
	}
	png, err := q.PNG(-r.cfg.ModulePx)
	if err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return png, nil
}

func (r *Renderer) build(encoded string) (*qr.QRCode, error) {
	q, err := qr.New(encoded, recoveryLevel(r.cfg.ErrorCorrection))
	if err != nil {
		return nil, fmt.Errorf("render %q: %w", encoded, err)
	}
	q.DisableBorder = r.cfg.DisableBorder
	return q, nil
}

func recoveryLevel(l Level) qr.RecoveryLevel {
	switch l {
	case LevelLow:
		return qr.Low
	case LevelMedium:
		return qr.Medium
	case LevelHigh:
		return qr.High
	default:
		return qr.Highest
	}
}

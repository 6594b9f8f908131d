// Package quality scores rendered identifier codes for laser-marking
// legibility. Every sub-score is a deterministic, explainable numeric
// function; there is no learned model anywhere in the pipeline.
package quality

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"

	"trackmark/internal/quality/metrics"
)

// Decoder is the decoding collaborator used by readability scoring: it
// attempts to extract the encoded string from a raster image.
type Decoder interface {
	Decode(ctx context.Context, img image.Image) (text string, ok bool)
}

// Engine computes quality reports. It is stateless and safe for any number
// of concurrent callers.
type Engine struct {
	decoder Decoder
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures the engine.
type Option func(*Engine)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New constructs a scoring engine. The decoder is required; scoring without
// a readability check cannot produce a PASS.
func New(decoder Decoder, cfg Config, opts ...Option) (*Engine, error) {
	if decoder == nil {
		return nil, fmt.Errorf("decoder is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid quality config: %w", err)
	}
	e := &Engine{decoder: decoder, cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Score evaluates one rendered image against the identifier string it is
// supposed to carry. It never fails for a structurally valid image: an
// undecodable code simply scores 0 on readability and the verdict logic
// takes it from there.
func (e *Engine) Score(ctx context.Context, img image.Image, declaredSizeMm float64, expected string) Report {
	g := toGray(img)

	finders := detectFinders(g)

	// Pixels per module, estimated from the finder patterns. Without any
	// finder, fall back to the smallest grid a code can have so the size
	// check stays conservative rather than vacuous.
	modulePx := 0.0
	for _, f := range finders {
		modulePx += f.module
	}
	if len(finders) > 0 {
		modulePx /= float64(len(finders))
	} else if g.w > 0 && g.h > 0 {
		modulePx = float64(min(g.w, g.h)) / 21
	}

	report := Report{
		SizeScore:      sizeScore(modulePx, declaredSizeMm, e.cfg),
		ContrastScore:  contrastScore(g, modulePx, e.cfg),
		SharpnessScore: sharpnessScore(g, e.cfg),
		AlignmentScore: alignmentScore(finders, e.cfg),
	}

	if text, ok := e.decoder.Decode(ctx, img); ok && text == expected {
		report.ReadabilityScore = 100
	}

	w := e.cfg.Weights
	overall := report.SizeScore*w.Size +
		report.ContrastScore*w.Contrast +
		report.SharpnessScore*w.Sharpness +
		report.AlignmentScore*w.Alignment +
		report.ReadabilityScore*w.Readability
	report.OverallScore = math.Round(overall*100) / 100
	report.Verdict = verdict(report.OverallScore, report.ReadabilityScore, e.cfg)
	report.Suggestions = report.suggestions()

	if e.metrics != nil {
		e.metrics.Verdicts.WithLabelValues(string(report.Verdict)).Inc()
		e.metrics.OverallScore.Observe(report.OverallScore)
	}
	if e.logger != nil && report.Verdict != VerdictPass {
		e.logger.WarnContext(ctx, "quality verdict below pass",
			"verdict", report.Verdict,
			"overall", report.OverallScore,
			"readability", report.ReadabilityScore,
			"expected", expected,
		)
	}
	return report
}

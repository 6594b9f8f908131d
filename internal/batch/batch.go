// Package batch registers components in bulk from CSV manifests. Rows are
// isolated: one bad row never aborts the batch.
package batch

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"trackmark/internal/component"
	"trackmark/internal/validation"
	dErrors "trackmark/pkg/domain-errors"
)

// defaultWorkers bounds concurrent registrations per batch.
const defaultWorkers = 4

// manifestHeader is the required CSV column order. The serial column is
// optional; blank or absent means auto-allocation.
var manifestHeader = []string{
	"region", "division", "track_id", "km_marker", "component_type", "year", "serial",
}

// Registrar is the slice of the component service the processor needs.
type Registrar interface {
	Register(ctx context.Context, raw validation.RawComponent) (component.Record, error)
}

// RowResult is the outcome for one manifest row.
type RowResult struct {
	Line     int      `json:"line"`
	Encoded  string   `json:"encoded,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Report summarizes one processed batch.
type Report struct {
	BatchID   string      `json:"batch_id"`
	Total     int         `json:"total"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Results   []RowResult `json:"results"`
	Duration  string      `json:"duration"`
}

// Processor runs batches against the registrar with a bounded worker pool.
type Processor struct {
	registrar Registrar
	logger    *slog.Logger
	workers   int
}

// Option configures the processor.
type Option func(*Processor)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

// WithWorkers bounds batch concurrency. Values below one are ignored.
func WithWorkers(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

// New constructs a batch processor.
func New(registrar Registrar, opts ...Option) (*Processor, error) {
	if registrar == nil {
		return nil, errors.New("registrar is required")
	}
	p := &Processor{
		registrar: registrar,
		logger:    slog.Default(),
		workers:   defaultWorkers,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ProcessCSV reads a manifest and registers every row. The returned report
// lists results in manifest order. Only unreadable manifests fail the call
// as a whole; row-level failures land in the report.
func (p *Processor) ProcessCSV(ctx context.Context, r io.Reader) (Report, error) {
	start := time.Now()
	batchID := uuid.NewString()[:8]

	rows, results, err := p.readManifest(r)
	if err != nil {
		return Report{}, err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i := range rows {
		g.Go(func() error {
			record, err := p.registrar.Register(ctx, rows[i].raw)
			if err != nil {
				results[rows[i].index].Error = err.Error()
				return nil
			}
			results[rows[i].index].Encoded = record.Encoded
			results[rows[i].index].Warnings = record.Warnings
			return nil
		})
	}
	// Workers never return errors; Wait only propagates ctx cancellation.
	if err := g.Wait(); err != nil {
		return Report{}, dErrors.Wrap(err, dErrors.CodeInternal, "batch interrupted")
	}

	report := Report{
		BatchID:  batchID,
		Total:    len(results),
		Results:  results,
		Duration: time.Since(start).Round(time.Millisecond).String(),
	}
	for _, res := range results {
		if res.Error == "" {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}

	p.logger.InfoContext(ctx, "batch processed",
		"batch_id", batchID,
		"total", report.Total,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

// parsedRow pairs a manifest row with its slot in the result slice. Rows
// that fail to parse occupy a result slot but are never dispatched.
type parsedRow struct {
	index int
	raw   validation.RawComponent
}

func (p *Processor) readManifest(r io.Reader) ([]parsedRow, []RowResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, dErrors.New(dErrors.CodeBadRequest, "manifest is empty or unreadable")
	}
	if err := checkHeader(header); err != nil {
		return nil, nil, err
	}
	hasSerial := len(header) == len(manifestHeader)

	var (
		rows    []parsedRow
		results []RowResult
	)
	for line := 2; ; line++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		result := RowResult{Line: line}
		if err != nil {
			result.Error = fmt.Sprintf("unreadable row: %v", err)
			results = append(results, result)
			continue
		}
		raw, err := parseRow(fields, hasSerial)
		if err != nil {
			result.Error = err.Error()
			results = append(results, result)
			continue
		}
		rows = append(rows, parsedRow{index: len(results), raw: raw})
		results = append(results, result)
	}
	return rows, results, nil
}

func checkHeader(header []string) error {
	want := manifestHeader
	if len(header) == len(manifestHeader)-1 {
		want = manifestHeader[:len(manifestHeader)-1]
	}
	if len(header) != len(want) {
		return dErrors.New(dErrors.CodeBadRequest, "manifest header must be: "+strings.Join(manifestHeader, ","))
	}
	for i, col := range header {
		if !strings.EqualFold(strings.TrimSpace(col), want[i]) {
			return dErrors.New(dErrors.CodeBadRequest, "manifest header must be: "+strings.Join(manifestHeader, ","))
		}
	}
	return nil
}

func parseRow(fields []string, hasSerial bool) (validation.RawComponent, error) {
	want := len(manifestHeader)
	if !hasSerial {
		want--
	}
	if len(fields) != want {
		return validation.RawComponent{}, fmt.Errorf("expected %d columns, got %d", want, len(fields))
	}

	raw := validation.RawComponent{
		Region:        strings.ToUpper(strings.TrimSpace(fields[0])),
		Division:      strings.ToUpper(strings.TrimSpace(fields[1])),
		ComponentType: strings.ToUpper(strings.TrimSpace(fields[4])),
	}
	var err error
	if raw.TrackID, err = atoiField("track_id", fields[2]); err != nil {
		return validation.RawComponent{}, err
	}
	if raw.KMMarker, err = atoiField("km_marker", fields[3]); err != nil {
		return validation.RawComponent{}, err
	}
	if raw.Year, err = atoiField("year", fields[5]); err != nil {
		return validation.RawComponent{}, err
	}
	if hasSerial && strings.TrimSpace(fields[6]) != "" {
		if raw.Serial, err = atoiField("serial", fields[6]); err != nil {
			return validation.RawComponent{}, err
		}
	}
	return raw, nil
}

func atoiField(name, value string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}

// WriteReportCSV renders the report in the manifest's row order.
func WriteReportCSV(w io.Writer, report Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"line", "encoded", "warnings", "error"}); err != nil {
		return err
	}
	for _, res := range report.Results {
		row := []string{
			strconv.Itoa(res.Line),
			res.Encoded,
			strings.Join(res.Warnings, "; "),
			res.Error,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

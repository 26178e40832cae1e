// Package orchestrate sequences a catalog run: render each query with
// the investigation context, execute it against the backend, normalize
// and emit artifacts, update hit counts, persist the catalog, and
// render the consolidated report.
package orchestrate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"huntbook/internal/artifact"
	"huntbook/internal/catalog"
	"huntbook/internal/format"
	"huntbook/internal/hunt"
	"huntbook/internal/logging"
	"huntbook/internal/report"
	"huntbook/internal/store"
)

// Options controls one catalog run.
type Options struct {
	Workers   int           // bounded worker pool size; <= 1 runs strictly sequentially
	Timeout   time.Duration // per-query backend timeout; 0 = none
	Out       io.Writer     // summary lines and echoed tables; defaults to os.Stdout
	ExportDir string        // CSV destination; defaults to the working directory
	ReportDir string        // defaults to "Reports"
	History   *store.Store  // optional run-history store
}

// Outcome is the result of executing one catalog definition.
type Outcome struct {
	Index    int
	Name     string
	HitCount int
	Table    *hunt.Table
	Duration time.Duration
	Err      error
}

// Summary aggregates a whole catalog run.
type Summary struct {
	Outcomes   []Outcome
	TotalHits  int
	Failed     int
	ReportPath string
}

// Runner executes a catalog against one backend.
type Runner struct {
	backend hunt.Backend
	opts    Options
	logger  *slog.Logger
}

// NewRunner returns a runner for the given backend, filling option
// defaults.
func NewRunner(backend hunt.Backend, opts Options) *Runner {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	if opts.ReportDir == "" {
		opts.ReportDir = "Reports"
	}
	return &Runner{backend: backend, opts: opts, logger: logging.New("orchestrate")}
}

// Run executes every catalog definition in file order. A failed query
// is logged and leaves its recorded hit count untouched; the remaining
// definitions still execute. After the last definition the whole
// catalog is persisted (a write failure is a warning, not an abort) and
// the report is rendered from the in-memory counts regardless of
// whether persistence succeeded.
//
// On cancellation, in-flight queries abort and the completed subset is
// still persisted and reported; the context error is returned alongside
// the partial summary.
func (r *Runner) Run(ctx context.Context, cat *catalog.Catalog, kind hunt.Kind, hctx hunt.Context) (*Summary, error) {
	for _, w := range hctx.Validate() {
		r.logger.Warn(w)
	}

	started := time.Now()
	outcomes := r.execute(ctx, cat, hctx)

	// A single writer applies hit counts and emits artifacts in
	// catalog order, whatever order the workers finished in.
	summary := &Summary{Outcomes: outcomes}
	for i, o := range outcomes {
		def := cat.Defs[i]
		if o.Err != nil {
			summary.Failed++
			r.logger.Warn("query failed", "query", def.Name, "error", o.Err)
			continue
		}
		def.ResultCount = o.HitCount
		summary.TotalHits += o.HitCount
		r.emit(o, def, hctx)
	}

	if err := cat.Save(); err != nil {
		r.logger.Warn("catalog not persisted; hit counts kept in memory only", "error", err)
	}

	reportPath, reportErr := report.Write(cat, kind, hctx, r.opts.ReportDir, time.Now())
	if reportErr != nil {
		r.logger.Error("report rendering failed", "error", reportErr)
	} else {
		summary.ReportPath = reportPath
		fmt.Fprintf(r.opts.Out, "Report: %s\n", reportPath)
	}

	r.recordHistory(kind, hctx, summary, started)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return summary, ctxErr
	}
	return summary, reportErr
}

// execute runs all definitions and returns one outcome per definition,
// index-aligned with the catalog.
func (r *Runner) execute(ctx context.Context, cat *catalog.Catalog, hctx hunt.Context) []Outcome {
	outcomes := make([]Outcome, len(cat.Defs))

	if r.opts.Workers <= 1 {
		for i, def := range cat.Defs {
			if err := ctx.Err(); err != nil {
				outcomes[i] = Outcome{Index: i, Name: def.Name, Err: err}
				continue
			}
			outcomes[i] = r.execOne(ctx, i, def, hctx)
		}
		return outcomes
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, def := range cat.Defs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i] = Outcome{Index: i, Name: def.Name, Err: err}
				return nil
			}
			outcomes[i] = r.execOne(gctx, i, def, hctx)
			// Failures live in the outcome; one bad query must not
			// cancel its siblings.
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// execOne renders, executes and normalizes a single definition.
func (r *Runner) execOne(ctx context.Context, index int, def *catalog.Definition, hctx hunt.Context) Outcome {
	qctx := ctx
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	begin := time.Now()
	rows, err := r.backend.Hunt(qctx, hunt.RenderQuery(def.Query, hctx), hunt.Lookback)
	o := Outcome{Index: index, Name: def.Name, Duration: time.Since(begin)}
	if err != nil {
		o.Err = err
		return o
	}
	o.Table = hunt.Normalize(rows)
	o.HitCount = len(o.Table.Rows)
	return o
}

// emit prints the per-query summary line and writes the optional
// artifacts for one successful outcome.
func (r *Runner) emit(o Outcome, def *catalog.Definition, hctx hunt.Context) {
	fmt.Fprintf(r.opts.Out, "[%s] %s (%s)\n", format.HitBadge(o.HitCount), def.Name, format.FmtDuration(o.Duration))

	if hctx.Echo {
		artifact.Echo(r.opts.Out, o.Table)
	}
	if hctx.Export {
		if _, err := artifact.ExportCSV(o.Table, def.Name, r.opts.ExportDir); err != nil {
			r.logger.Warn("csv export failed", "query", def.Name, "error", err)
		}
	}
}

// recordHistory appends the run to the history store when one is wired.
func (r *Runner) recordHistory(kind hunt.Kind, hctx hunt.Context, summary *Summary, started time.Time) {
	if r.opts.History == nil {
		return
	}
	results := make([]store.RunResult, 0, len(summary.Outcomes))
	for _, o := range summary.Outcomes {
		rr := store.RunResult{
			QueryName:  o.Name,
			HitCount:   o.HitCount,
			DurationMS: o.Duration.Milliseconds(),
		}
		if o.Err != nil {
			rr.Error = o.Err.Error()
		}
		results = append(results, rr)
	}
	_, err := r.opts.History.RecordRun(&store.Run{
		EntityKind:    string(kind),
		EntityID:      hctx.EntityID(kind),
		TimeFrame:     hctx.TimeFrame,
		StartedAt:     started.UTC().Format(time.RFC3339),
		TotalHits:     summary.TotalHits,
		QueriesRun:    len(summary.Outcomes),
		QueriesFailed: summary.Failed,
	}, results)
	if err != nil {
		r.logger.Warn("run history not recorded", "error", err)
	}
}

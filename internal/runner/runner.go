// Package runner executes cleaning jobs: load the input, clean it, derive
// columns, write the result and optionally export it to a database.
package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"dataprep/internal/cleaning"
	"dataprep/internal/config"
	"dataprep/internal/metrics"
	"dataprep/internal/parser"
	"dataprep/internal/storage"
	"dataprep/internal/transformer"
	"dataprep/pkg/records"
)

// Runner holds the seams a job run goes through. The zero value is not
// usable; start from NewDefaultRunner.
type Runner struct {
	// Load reads the job input.
	Load func(ctx context.Context, in config.Input) (records.Dataset, error)

	// Export writes rows to a database table.
	Export func(ctx context.Context, cfg storage.Config, table string, rows []records.Row) (storage.ExportResult, error)

	// Stdout receives output for jobs without output.path.
	Stdout io.Writer

	Logger *slog.Logger

	// Workers bounds how many jobs run at once.
	Workers int

	// DSN, when set, replaces every job's storage.dsn.
	DSN string

	now func() time.Time
}

// NewDefaultRunner reads files with the parser package and exports through
// the registered storage backends.
func NewDefaultRunner() *Runner {
	return &Runner{
		Load: func(ctx context.Context, in config.Input) (records.Dataset, error) {
			return parser.ReadFile(ctx, in.Path, parser.Format(in.Format), in.Options)
		},
		Export:  storage.Export,
		Stdout:  os.Stdout,
		Logger:  slog.Default(),
		Workers: 1,
	}
}

// Report summarizes one job run.
type Report struct {
	Job    string
	Result cleaning.Result
	Output string
	Export *storage.ExportResult
}

// Run executes jobs with at most r.Workers in flight. The first failure
// cancels jobs that have not finished.
func (r *Runner) Run(ctx context.Context, jobs []config.Job) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.Workers, 1))
	for _, job := range jobs {
		g.Go(func() error {
			_, err := r.RunJob(ctx, job)
			if err != nil {
				return fmt.Errorf("job %s: %w", job.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// RunJob executes one job.
func (r *Runner) RunJob(ctx context.Context, job config.Job) (rep Report, err error) {
	log := r.logger().With("job", job.Name)
	rep.Job = job.Name
	jobStart := r.clock()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.IncCounter(metrics.JobsTotal, 1, metrics.Labels{"job": job.Name, "status": status})
		log.Info("job finished", "status", status, "duration", r.since(jobStart))
	}()

	var ds records.Dataset
	if err = r.step(ctx, log, job.Name, "load", func() error {
		ds, err = r.Load(ctx, job.Input)
		return err
	}); err != nil {
		return rep, fmt.Errorf("load %s: %w", job.Input.Path, err)
	}
	metrics.RecordRows(job.Name, "in", len(ds.Rows))

	opts := job.Clean.PipelineOptions()
	if job.Clean.AutoFill && len(opts.Fill) == 0 {
		opts.Fill = cleaning.GetAutoFillOptions(ds.Rows, ds.Headers)
		log.Debug("auto fill plan", "columns", len(opts.Fill))
	}

	var res cleaning.Result
	if err = r.step(ctx, log, job.Name, "clean", func() error {
		res, err = cleaning.RunCleanPipeline(ds, opts)
		return err
	}); err != nil {
		return rep, fmt.Errorf("clean: %w", err)
	}
	metrics.RecordRows(job.Name, "duplicates", res.Stats.DuplicatesRemoved)
	metrics.RecordRows(job.Name, "filled", res.Stats.CellsFilled)
	metrics.RecordRows(job.Name, "outliers", res.Stats.OutliersRemoved)
	log.Info("cleaned",
		"rows_in", res.Stats.RowsIn,
		"rows_out", res.Stats.RowsOut,
		"duplicates", res.Stats.DuplicatesRemoved,
		"outliers", res.Stats.OutliersRemoved)

	if job.Clean.InferTypes {
		res.Data.Rows = cleaning.InferTypes(res.Data.Rows)
	}

	if len(job.Transforms) > 0 {
		if err = r.step(ctx, log, job.Name, "transform", func() error {
			res.Data, err = applyTransforms(res.Data, job.Transforms)
			return err
		}); err != nil {
			return rep, fmt.Errorf("transform: %w", err)
		}
	}
	rep.Result = res
	metrics.RecordRows(job.Name, "out", len(res.Data.Rows))

	if err = r.step(ctx, log, job.Name, "write", func() error {
		rep.Output, err = r.writeOutput(job.Output, res)
		return err
	}); err != nil {
		return rep, fmt.Errorf("write output: %w", err)
	}

	if job.Storage.Enabled() {
		if len(res.Data.Rows) == 0 {
			log.Warn("nothing to store", "kind", job.Storage.Kind)
			return rep, nil
		}
		cfg := storage.Config{Kind: job.Storage.Kind, DSN: os.ExpandEnv(r.dsnFor(job.Storage))}
		var exp storage.ExportResult
		if err = r.step(ctx, log, job.Name, "store", func() error {
			exp, err = r.Export(ctx, cfg, job.Storage.Table, res.Data.Rows)
			return err
		}); err != nil {
			return rep, fmt.Errorf("store: %w", err)
		}
		rep.Export = &exp
		metrics.RecordRows(job.Name, "stored", int(exp.Inserted))
		log.Info("stored", "table", exp.Table, "inserted", exp.Inserted, "skipped", exp.Skipped)
	}
	return rep, nil
}

// step runs fn as a named stage, recording its outcome and duration.
func (r *Runner) step(ctx context.Context, log *slog.Logger, job, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := r.clock()
	err := fn()
	d := r.since(start)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordStep(job, name, status, d)
	log.Debug("step", "step", name, "status", status, "duration", d)
	return err
}

// applyTransforms runs specs in order. Each new column is appended to the
// headers unless already present.
func applyTransforms(ds records.Dataset, specs []transformer.Spec) (records.Dataset, error) {
	out := records.Dataset{Headers: append([]string(nil), ds.Headers...), Rows: ds.Rows}
	for i, spec := range specs {
		rows, err := transformer.ApplyTransform(out.Rows, spec)
		if err != nil {
			return records.Dataset{}, fmt.Errorf("transforms[%d]: %w", i, err)
		}
		out.Rows = rows
		if !out.HasHeader(spec.NewColumn) {
			out.Headers = append(out.Headers, spec.NewColumn)
		}
	}
	return out, nil
}

func (r *Runner) dsnFor(s config.Storage) string {
	if strings.TrimSpace(r.DSN) != "" {
		return r.DSN
	}
	return s.DSN
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Runner) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

func (r *Runner) since(t time.Time) time.Duration {
	return r.clock().Sub(t)
}

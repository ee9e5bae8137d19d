// Command clean runs one or more cleaning jobs from a JSON or YAML job file.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"dataprep/internal/config"
	"dataprep/internal/metrics"
	"dataprep/internal/metrics/datadog"
	"dataprep/internal/metrics/prompush"
	"dataprep/internal/runner"

	// register every storage backend; the job file picks one.
	_ "dataprep/internal/storage/all"
)

// jobRunner is what runMain needs from *runner.Runner.
type jobRunner interface {
	Run(ctx context.Context, jobs []config.Job) error
}

// runnerSettings carries the process-level knobs into a new runner.
type runnerSettings struct {
	Workers int
	DSN     string
	Logger  *slog.Logger
}

// metricsConfig selects and configures the metrics backend.
type metricsConfig struct {
	Backend        string
	PushgatewayURL string
	Tags           []string
}

// appDeps are the side-effecting seams of runMain.
type appDeps struct {
	env         config.Env
	readFile    func(string) ([]byte, error)
	unmarshal   func([]byte, any) error
	newRunner   func(runnerSettings) jobRunner
	initMetrics func(ctx context.Context, jobName string, m metricsConfig) (func(), error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	code := runMain(ctx, os.Args[1:], os.Stdout, os.Stderr, appDeps{
		env:       env,
		readFile:  os.ReadFile,
		unmarshal: decodeJobs,
		newRunner: func(s runnerSettings) jobRunner {
			r := runner.NewDefaultRunner()
			r.Workers = s.Workers
			r.DSN = s.DSN
			r.Logger = s.Logger
			return r
		},
		initMetrics: initMetrics,
	})
	stop()
	os.Exit(code)
}

// runMain is main without the process exits. It returns 2 for usage errors
// and 1 for everything else that fails.
func runMain(ctx context.Context, args []string, stdout, stderr io.Writer, deps appDeps) int {
	fs := flag.NewFlagSet("clean", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		cfgPath     string
		backendName string
		gatewayURL  string
		validate    bool
		verbose     bool
		workers     int
	)
	fs.StringVar(&cfgPath, "config", "", "job file path (.json, .yaml)")
	fs.StringVar(&backendName, "metrics-backend", deps.env.MetricsBackend, "metrics backend: none, pushgateway, datadog")
	fs.StringVar(&gatewayURL, "pushgateway-url", deps.env.PushgatewayURL, "Pushgateway base URL")
	fs.BoolVar(&validate, "validate", false, "validate the job file and exit")
	fs.BoolVar(&verbose, "v", false, "enable debug logs")
	fs.IntVar(&workers, "workers", deps.env.Workers, "jobs to run concurrently")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(cfgPath) == "" {
		fmt.Fprintln(stderr, "usage: clean -config <job file> [-metrics-backend none|pushgateway|datadog] [-workers n] [-validate] [-v]")
		return 2
	}

	logger := newLogger(stderr, deps.env, verbose)

	raw, err := deps.readFile(cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "read config: %v\n", err)
		return 1
	}
	var jobs []config.Job
	if err := deps.unmarshal(raw, &jobs); err != nil {
		fmt.Fprintf(stderr, "parse config: %v\n", err)
		return 1
	}
	if len(jobs) == 0 {
		fmt.Fprintf(stderr, "parse config: %s defines no jobs\n", cfgPath)
		return 1
	}

	invalid := false
	for i, j := range jobs {
		issues := config.ValidateJob(j)
		for _, iss := range issues {
			fmt.Fprintf(stderr, "jobs[%d]: %s\n", i, iss)
		}
		invalid = invalid || config.HasErrors(issues)
	}
	if invalid {
		fmt.Fprintf(stderr, "invalid config: %s\n", cfgPath)
		return 1
	}
	if validate {
		fmt.Fprintf(stdout, "config ok: %d job(s)\n", len(jobs))
		return 0
	}

	cleanup, err := deps.initMetrics(ctx, metricsJobName(jobs), metricsConfig{
		Backend:        backendName,
		PushgatewayURL: gatewayURL,
		Tags:           datadog.ParseTagsCSV(deps.env.MetricsTags),
	})
	if err != nil {
		fmt.Fprintf(stderr, "init metrics: %v\n", err)
		return 1
	}
	defer cleanup()

	r := deps.newRunner(runnerSettings{Workers: workers, DSN: deps.env.DSN, Logger: logger})
	start := time.Now()
	if err := r.Run(ctx, jobs); err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return 1
	}
	logger.Debug("completed", "jobs", len(jobs), "duration", time.Since(start).Truncate(time.Millisecond))

	fmt.Fprintln(stdout, "ok")
	return 0
}

// decodeJobs is the production unmarshal seam. v must be *[]config.Job.
// Content starting with '{' is JSON, anything else YAML.
func decodeJobs(data []byte, v any) error {
	out, ok := v.(*[]config.Job)
	if !ok {
		return fmt.Errorf("decode jobs: unsupported target %T", v)
	}
	ext := ".yaml"
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		ext = ".json"
	}
	jobs, err := config.ParseJobs(data, ext)
	if err != nil {
		return err
	}
	*out = jobs
	return nil
}

// metricsJobName is the single job's name, or "dataprep" for a batch.
func metricsJobName(jobs []config.Job) string {
	if len(jobs) == 1 && jobs[0].Name != "" {
		return jobs[0].Name
	}
	return "dataprep"
}

func newLogger(w io.Writer, env config.Env, verbose bool) *slog.Logger {
	level := env.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(env.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// metricsBackend is the lifecycle part of a backend that initMetrics owns.
type metricsBackend interface {
	Close() error
}

var (
	newDatadogBackend = func(ctx context.Context, opts datadog.Options) (metricsBackend, error) {
		return datadog.NewBackend(ctx, opts)
	}
	newPushBackend = func(jobName, url string) (metricsBackend, error) {
		return prompush.NewBackend(jobName, url)
	}
	setMetricsBackend = func(b any) {
		if mb, ok := b.(metrics.Backend); ok {
			metrics.SetBackend(mb)
		}
	}
	logPrintf = log.Printf
)

// initMetrics installs the selected backend. The returned cleanup is never
// nil; it closes the backend, which flushes whatever is still buffered.
func initMetrics(ctx context.Context, jobName string, m metricsConfig) (func(), error) {
	noop := func() {}
	switch strings.ToLower(strings.TrimSpace(m.Backend)) {
	case "", "none":
		return noop, nil

	case "pushgateway", "prom", "prometheus":
		b, err := newPushBackend(jobName, m.PushgatewayURL)
		if err != nil {
			return noop, err
		}
		setMetricsBackend(b)
		return closer("pushgateway", b), nil

	case "datadog", "dd":
		b, err := newDatadogBackend(ctx, datadog.Options{
			JobName:    jobName,
			Tags:       m.Tags,
			FlushEvery: 60 * time.Second,
		})
		if err != nil {
			return noop, err
		}
		setMetricsBackend(b)
		return closer("datadog", b), nil

	default:
		return noop, fmt.Errorf("unknown metrics backend %q (want none|datadog|pushgateway)", m.Backend)
	}
}

func closer(name string, b metricsBackend) func() {
	return func() {
		if err := b.Close(); err != nil {
			logPrintf("metrics: %s close error: %v", name, err)
		}
	}
}

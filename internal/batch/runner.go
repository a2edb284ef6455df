package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"rookery/internal/ledger"
	"rookery/internal/logging"
	"rookery/internal/nests"
	"rookery/internal/vectorio"
)

// ErrSiteYear reports an input whose site and year cannot be determined, or
// one that mixes several site/year groups.
var ErrSiteYear = errors.New("cannot determine site and year")

// ErrOutputCollision reports inputs in one batch that resolve to the same
// output file. None of them is written.
var ErrOutputCollision = errors.New("output path shared by several inputs")

// FileResult is the outcome of one input file.
type FileResult struct {
	RunID      string
	Input      string
	Output     string
	Site       string
	Year       string
	CRS        string
	Detections int
	Targets    int
	Nests      int
	Dropped    int
	Duration   time.Duration
	Err        error
}

// Report collects every file result of a batch, in input order.
type Report struct {
	BatchID string
	Results []FileResult
}

// Succeeded counts files that were written.
func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil && res.Output != "" {
			n++
		}
	}
	return n
}

// Failed counts files that returned an error.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// job carries one input between aggregation and writing.
type job struct {
	res     FileResult
	nests   []nests.Nest
	started time.Time
	logger  *slog.Logger
}

// Run processes every input with at most opts.Workers files in flight. Inputs
// are aggregated first; outputs are written only after every input has its
// path, so inputs sharing a path fail with ErrOutputCollision instead of
// overwriting each other. The returned error joins every per-file failure; a
// cancelled context stops scheduling new files and is returned as-is.
func Run(ctx context.Context, inputs []string, opts Options) (*Report, error) {
	if err := opts.Thresholds.Validate(); err != nil {
		return nil, err
	}
	logger := logging.NewComponentLogger(opts.Logger, "batch")
	report := &Report{
		BatchID: ledger.NewID(),
		Results: make([]FileResult, len(inputs)),
	}
	logger = logger.With(logging.String(logging.FieldRunID, report.BatchID))

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make([]*job, len(inputs))
	if err := forEach(ctx, len(inputs), workers, func(gctx context.Context, i int) error {
		jobs[i] = prepare(gctx, inputs[i], opts, logger)
		return canceled(jobs[i].res.Err)
	}); err != nil {
		return report, err
	}

	markCollisions(jobs)

	if err := forEach(ctx, len(jobs), workers, func(gctx context.Context, i int) error {
		if jobs[i] == nil {
			return nil
		}
		report.Results[i] = finish(gctx, jobs[i], opts, report.BatchID)
		return canceled(report.Results[i].Err)
	}); err != nil {
		return report, err
	}

	var errs []error
	for _, res := range report.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Input, res.Err))
		}
	}
	logger.Info("batch finished",
		logging.Int("files", len(inputs)),
		logging.Int("succeeded", report.Succeeded()),
		logging.Int("failed", report.Failed()),
	)
	return report, errors.Join(errs...)
}

// forEach runs fn for indexes [0, n) with at most limit in flight. Only
// cancellation stops it early.
func forEach(ctx context.Context, n, limit int, fn func(context.Context, int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error { return fn(gctx, i) })
	}
	waitErr := g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}
	return waitErr
}

func canceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// markCollisions fails every pending job whose output path another pending
// job also resolved to.
func markCollisions(jobs []*job) {
	byOutput := make(map[string][]*job)
	for _, j := range jobs {
		if j == nil || j.res.Err != nil {
			continue
		}
		byOutput[j.res.Output] = append(byOutput[j.res.Output], j)
	}
	for output, group := range byOutput {
		if len(group) < 2 {
			continue
		}
		for _, j := range group {
			var others []string
			for _, o := range group {
				if o != j {
					others = append(others, o.res.Input)
				}
			}
			j.res.Err = fmt.Errorf("%w: %s also resolved from %s", ErrOutputCollision, output, strings.Join(others, ", "))
		}
	}
}

// ProcessFile runs a single input outside a batch.
func ProcessFile(ctx context.Context, input string, opts Options) FileResult {
	logger := logging.NewComponentLogger(opts.Logger, "batch")
	batchID := ledger.NewID()
	logger = logger.With(logging.String(logging.FieldRunID, batchID))
	return finish(ctx, prepare(ctx, input, opts, logger), opts, batchID)
}

// prepare reads and aggregates input and resolves its output path. Failures
// land in res.Err.
func prepare(ctx context.Context, input string, opts Options, logger *slog.Logger) *job {
	j := &job{
		res:     FileResult{Input: input},
		started: time.Now(),
		logger:  logger.With(logging.String(logging.FieldInput, input)),
	}
	res := &j.res
	res.Err = func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		set, err := vectorio.ReadDetections(ctx, input, opts.DefaultCRS)
		if err != nil {
			return err
		}
		res.CRS = set.CRS
		res.Detections = len(set.Detections)

		res.Site, res.Year, err = resolveSiteYear(input, opts, set.Detections)
		if err != nil {
			return err
		}

		result, err := nests.Process(set.Detections, nests.Options{
			Thresholds: opts.Thresholds,
			LabelFunc:  opts.LabelFunc,
			Logger:     j.logger,
		})
		if err != nil {
			return err
		}
		res.Targets = len(result.Targets)
		res.Nests = result.Retained()
		res.Dropped = result.Dropped()
		res.Output = vectorio.OutputPath(opts.SaveDir, res.Site, res.Year, opts.Format)
		j.nests = result.Nests
		return nil
	}()
	return j
}

// finish writes a prepared job, records it in the ledger and logs the
// outcome.
func finish(ctx context.Context, j *job, opts Options, batchID string) FileResult {
	res := j.res
	if res.Err == nil {
		res.Err = vectorio.WriteNests(ctx, res.Output, j.nests, res.CRS)
	}
	res.Duration = time.Since(j.started)
	fileLogger := j.logger

	run := &ledger.Run{
		ID:            ledger.NewID(),
		BatchID:       batchID,
		Site:          res.Site,
		Year:          res.Year,
		InputPath:     res.Input,
		OutputPath:    res.Output,
		Format:        string(opts.Format),
		CRS:           res.CRS,
		MinScore:      opts.Thresholds.MinScore,
		MinDetections: opts.Thresholds.MinDetections,
		MinConsec:     opts.Thresholds.MinConsecutive,
		Detections:    res.Detections,
		Targets:       res.Targets,
		Nests:         res.Nests,
		Status:        ledger.StatusSucceeded,
		StartedAt:     j.started.UTC(),
		FinishedAt:    j.started.Add(res.Duration).UTC(),
	}
	if res.Err != nil {
		run.Status = ledger.StatusFailed
		run.Error = res.Err.Error()
	}
	res.RunID = run.ID
	if opts.Ledger != nil && !errors.Is(res.Err, context.Canceled) {
		if err := opts.Ledger.Record(context.WithoutCancel(ctx), run); err != nil {
			fileLogger.Warn("failed to record run", logging.Error(err))
		}
	}

	if res.Err != nil {
		logging.ErrorWithContext(fileLogger, "nest processing failed", "nest_process",
			logging.Error(res.Err),
			logging.String(logging.FieldErrorHint, errorHint(res.Err)),
		)
		return res
	}
	fileLogger.Info("nests written",
		logging.String(logging.FieldSite, res.Site),
		logging.String(logging.FieldYear, res.Year),
		logging.String(logging.FieldOutput, res.Output),
		logging.Int("targets", res.Targets),
		logging.Int("nests", res.Nests),
		logging.Duration("elapsed", res.Duration),
	)
	return res
}

// resolveSiteYear names the output: flags first, then the <year>/<site>
// directory layout, then the detections themselves. A file holding more than
// one site/year group is rejected whatever the source of the name.
func resolveSiteYear(input string, opts Options, detections []nests.Detection) (string, string, error) {
	keys := nests.BuildCalendar(detections).Keys()
	if len(keys) > 1 {
		return "", "", fmt.Errorf("%w: file holds %d site/year groups (%s, %s, ...)", ErrSiteYear, len(keys), keys[0], keys[1])
	}

	site, year := opts.Site, opts.Year
	if site == "" || year == "" {
		pathSite, pathYear, ok := InferSiteYear(input)
		if !ok {
			if len(keys) == 0 {
				return "", "", fmt.Errorf("%w: no detections and no <year>/<site> directory layout", ErrSiteYear)
			}
			pathSite, pathYear = keys[0].Site, keys[0].Year
		}
		if site == "" {
			site = pathSite
		}
		if year == "" {
			year = pathYear
		}
	}
	return site, year, nil
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, vectorio.ErrInvalidRow):
		return "check the detection table columns and values"
	case errors.Is(err, vectorio.ErrUnsupportedFormat):
		return "use a .gpkg, .geojson or .csv input"
	case errors.Is(err, nests.ErrContract):
		return "each target must belong to a single site and year"
	case errors.Is(err, ErrSiteYear):
		return "split the file by site and year, or pass --site and --year"
	case errors.Is(err, ErrOutputCollision):
		return "merge the inputs into one file or process them with distinct --site/--year"
	default:
		return "check logs for details"
	}
}

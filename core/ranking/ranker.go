// Package ranking scores records with the fuzzy engine and keeps the best ones.
package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"restaurant-rank/core/fuzzy"
	"restaurant-rank/core/types"
	rerrors "restaurant-rank/internal/errors"
	"restaurant-rank/internal/logging"
)

// DefaultTopK is the number of results kept when Options.TopK is zero
const DefaultTopK = 5

// Policy decides what happens when a single record fails its domain check
type Policy string

const (
	// PolicyFail aborts the whole run on the first bad record
	PolicyFail Policy = "fail"

	// PolicySkip drops the bad record and keeps going
	PolicySkip Policy = "skip"
)

// Options configures a Ranker
type Options struct {
	// TopK is how many results to keep; negative keeps everything
	TopK int

	// OnError is the per-record failure policy
	OnError Policy

	// Workers is the number of concurrent evaluations (minimum 1)
	Workers int

	// ProfileName is recorded in reports
	ProfileName string

	// Logger overrides the package logger
	Logger *zap.Logger
}

// DefaultOptions returns the single-threaded fail-fast defaults
func DefaultOptions() Options {
	return Options{
		TopK:        DefaultTopK,
		OnError:     PolicyFail,
		Workers:     1,
		ProfileName: fuzzy.ProfileStandard,
	}
}

// Ranker turns records into a ranked report
type Ranker struct {
	evaluator fuzzy.Evaluator
	opts      Options
	log       *zap.Logger
}

// NewRanker creates a ranker around an evaluator
func NewRanker(evaluator fuzzy.Evaluator, opts Options) *Ranker {
	if opts.TopK == 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.OnError == "" {
		opts.OnError = PolicyFail
	}
	log := opts.Logger
	if log == nil {
		log = logging.Named("ranking")
	}
	return &Ranker{evaluator: evaluator, opts: opts, log: log}
}

// Report is the outcome of one ranking run
type Report struct {
	// ID uniquely identifies the run
	ID string `json:"id"`

	// Profile is the engine profile used
	Profile string `json:"profile"`

	// CreatedAt is when the run finished
	CreatedAt time.Time `json:"created_at"`

	// Duration is how long scoring took
	Duration string `json:"duration"`

	// Results are the top ranked records, best first
	Results []types.RankedResult `json:"results"`

	// Skipped lists records dropped under the skip policy
	Skipped []types.SkippedRecord `json:"skipped,omitempty"`

	// Summary describes the score distribution of every scored record
	Summary Summary `json:"summary"`
}

// Rejecter is implemented by sources that drop malformed rows while reading
type Rejecter interface {
	Rejected() []types.SkippedRecord
}

// MergeRejected prepends rows a source dropped to the report's skipped list
func (r *Report) MergeRejected(rejected []types.SkippedRecord) {
	if len(rejected) == 0 {
		return
	}
	r.Skipped = append(append([]types.SkippedRecord{}, rejected...), r.Skipped...)
	r.Summary.Skipped += len(rejected)
}

type slot struct {
	result  types.RankedResult
	skipped *types.SkippedRecord
}

// Rank scores every record, sorts by descending score keeping input order
// among equal scores, and returns the top K.
func (r *Ranker) Rank(ctx context.Context, records []types.Record) (*Report, error) {
	start := time.Now()
	slots := make([]slot, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	for i := range records {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return r.score(records[i], &slots[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scored := make([]types.RankedResult, 0, len(records))
	var skipped []types.SkippedRecord
	for _, s := range slots {
		if s.skipped != nil {
			skipped = append(skipped, *s.skipped)
			continue
		}
		scored = append(scored, s.result)
	}

	summary := Summarize(scored, len(skipped))

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	top := scored
	if r.opts.TopK > 0 && len(top) > r.opts.TopK {
		top = top[:r.opts.TopK]
	}
	for i := range top {
		top[i].Rank = i + 1
	}

	report := &Report{
		ID:        uuid.New().String(),
		Profile:   r.opts.ProfileName,
		CreatedAt: time.Now().UTC(),
		Duration:  time.Since(start).String(),
		Results:   top,
		Skipped:   skipped,
		Summary:   summary,
	}

	r.log.Info("ranking complete",
		zap.String("run_id", report.ID),
		zap.Int("records", len(records)),
		zap.Int("scored", summary.Count),
		zap.Int("skipped", len(skipped)),
		zap.Int("degenerate", summary.Degenerate),
		zap.Int("returned", len(top)),
	)

	return report, nil
}

func (r *Ranker) score(rec types.Record, out *slot) error {
	if err := Validate(rec); err != nil {
		if r.opts.OnError == PolicySkip {
			r.log.Warn("skipping record", zap.String("id", rec.ID), zap.Int("row", rec.Row), zap.Error(err))
			out.skipped = &types.SkippedRecord{Record: rec, Reason: err.Error()}
			return nil
		}
		return err
	}

	ev := r.evaluator.Evaluate(rec.Service, rec.Price.InexactFloat64())
	if ev.Degenerate() {
		r.log.Debug("no rule fired, scoring 0", zap.String("id", rec.ID))
	}
	out.result = types.RankedResult{
		Record:     rec,
		Score:      ev.Score,
		Degenerate: ev.Degenerate(),
	}
	return nil
}

// Validate applies the basic numeric domain checks to a record
func Validate(rec types.Record) error {
	if math.IsNaN(rec.Service) || math.IsInf(rec.Service, 0) {
		return rerrors.Input(fmt.Sprintf("record %s: service score is not a finite number", rec.ID)).
			WithContext("row", rec.Row)
	}
	if rec.Price.IsNegative() {
		return rerrors.Input(fmt.Sprintf("record %s: price %s is negative", rec.ID, rec.Price)).
			WithContext("row", rec.Row)
	}
	return nil
}

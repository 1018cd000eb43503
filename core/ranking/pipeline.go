package ranking

//go:generate mockgen -source=pipeline.go -destination=mock_pipeline_test.go -package=ranking

import (
	"context"
	"fmt"

	"restaurant-rank/core/types"
)

// Source supplies the records of one ranking run
type Source interface {
	// Name describes the source for logs
	Name() string

	// Read returns every record in input order
	Read(ctx context.Context) ([]types.Record, error)
}

// Sink persists a finished report
type Sink interface {
	// Name describes the sink for logs
	Name() string

	// Write stores the report
	Write(ctx context.Context, report *Report) error
}

// Pipeline connects a source, the ranker and any number of sinks
type Pipeline struct {
	source Source
	ranker *Ranker
	sinks  []Sink
}

// NewPipeline creates a pipeline
func NewPipeline(source Source, ranker *Ranker, sinks ...Sink) *Pipeline {
	return &Pipeline{source: source, ranker: ranker, sinks: sinks}
}

// Run reads, ranks and writes. Sinks run in order and the first failure stops the run.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	records, err := p.source.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.source.Name(), err)
	}

	report, err := p.ranker.Rank(ctx, records)
	if err != nil {
		return nil, err
	}

	if rj, ok := p.source.(Rejecter); ok {
		report.MergeRejected(rj.Rejected())
	}

	for _, sink := range p.sinks {
		if err := sink.Write(ctx, report); err != nil {
			return report, fmt.Errorf("write %s: %w", sink.Name(), err)
		}
	}
	return report, nil
}

package ranking

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-rank/core/types"
)

func TestPipelineRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := NewMockSource(ctrl)
	first := NewMockSink(ctrl)
	second := NewMockSink(ctrl)

	source.EXPECT().Read(gomock.Any()).Return(sampleRecords(), nil)
	var written *Report
	gomock.InOrder(
		first.EXPECT().Write(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, r *Report) error {
			written = r
			return nil
		}),
		second.EXPECT().Write(gomock.Any(), gomock.Any()).Return(nil),
	)

	report, err := NewPipeline(source, newTestRanker(DefaultOptions()), first, second).Run(context.Background())
	require.NoError(t, err)
	assert.Same(t, report, written)
	assert.Len(t, report.Results, 5)
}

func TestPipelineSourceError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := NewMockSource(ctrl)
	sink := NewMockSink(ctrl)
	source.EXPECT().Read(gomock.Any()).Return(nil, errors.New("no such file"))
	source.EXPECT().Name().Return("restoran.csv")

	_, err := NewPipeline(source, newTestRanker(DefaultOptions()), sink).Run(context.Background())
	assert.EqualError(t, err, "read restoran.csv: no such file")
}

func TestPipelineSinkErrorStopsRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := NewMockSource(ctrl)
	failing := NewMockSink(ctrl)
	never := NewMockSink(ctrl)

	source.EXPECT().Read(gomock.Any()).Return(sampleRecords(), nil)
	failing.EXPECT().Write(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
	failing.EXPECT().Name().Return("peringkat.csv")

	report, err := NewPipeline(source, newTestRanker(DefaultOptions()), failing, never).Run(context.Background())
	assert.EqualError(t, err, "write peringkat.csv: disk full")
	assert.NotNil(t, report)
}

type rejectingSource struct {
	*MockSource
	rejected []types.SkippedRecord
}

func (s rejectingSource) Rejected() []types.SkippedRecord { return s.rejected }

func TestPipelineMergesRejectedRows(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mock := NewMockSource(ctrl)
	mock.EXPECT().Read(gomock.Any()).Return(sampleRecords(), nil)
	source := rejectingSource{
		MockSource: mock,
		rejected:   []types.SkippedRecord{{Record: types.Record{ID: "Z", Row: 9}, Reason: "invalid harga"}},
	}

	opts := DefaultOptions()
	opts.OnError = PolicySkip
	report, err := NewPipeline(source, newTestRanker(opts)).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "Z", report.Skipped[0].Record.ID)
	assert.Equal(t, 1, report.Summary.Skipped)
}

package tabular

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"restaurant-rank/core/output"
	"restaurant-rank/core/ranking"
)

// FileSink renders reports into a file. The file is replaced atomically.
type FileSink struct {
	path      string
	formatter output.Formatter
}

// NewFileSink creates a file sink
func NewFileSink(path string, formatter output.Formatter) *FileSink {
	return &FileSink{path: path, formatter: formatter}
}

// Name returns the destination file name
func (s *FileSink) Name() string {
	return filepath.Base(s.path)
}

// Path returns the destination path
func (s *FileSink) Path() string {
	return s.path
}

// Write renders the report to a temporary file and renames it into place
func (s *FileSink) Write(ctx context.Context, report *ranking.Report) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.formatter.Render(tmp, report); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to render %s: %w", s.formatter.Format(), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// StreamSink renders reports to a writer such as stdout
type StreamSink struct {
	w         io.Writer
	formatter output.Formatter
}

// NewStreamSink creates a stream sink
func NewStreamSink(w io.Writer, formatter output.Formatter) *StreamSink {
	return &StreamSink{w: w, formatter: formatter}
}

// Name returns the sink description
func (s *StreamSink) Name() string {
	return "stream:" + string(s.formatter.Format())
}

// Write renders the report
func (s *StreamSink) Write(ctx context.Context, report *ranking.Report) error {
	return s.formatter.Render(s.w, report)
}

var (
	_ ranking.Sink     = (*FileSink)(nil)
	_ ranking.Sink     = (*StreamSink)(nil)
	_ ranking.Source   = (*FileSource)(nil)
	_ ranking.Rejecter = (*FileSource)(nil)
)

package infra

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/fd1az/arb-engine/business/arbitrage/app"
	"github.com/fd1az/arb-engine/business/arbitrage/domain"
	"github.com/fd1az/arb-engine/internal/apperror"
)

var _ app.Reporter = (*JSONLReporter)(nil)

// JSONLReporter writes one opportunity record per line, suitable for
// piping into downstream analysis tooling.
type JSONLReporter struct {
	mu  sync.Mutex
	out io.Writer
	enc *json.Encoder
}

// NewJSONLReporter creates a JSONL reporter writing to out.
func NewJSONLReporter(out io.Writer) *JSONLReporter {
	return &JSONLReporter{
		out: out,
		enc: json.NewEncoder(out),
	}
}

func (r *JSONLReporter) Start(ctx context.Context) error { return nil }

// Report serializes the opportunity as a single JSON line.
func (r *JSONLReporter) Report(ctx context.Context, opp *domain.Opportunity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enc.Encode(opp.Record()); err != nil {
		return apperror.Wrap(err, apperror.CodeInternalError, "encode opportunity record")
	}
	return nil
}

func (r *JSONLReporter) Stop(ctx context.Context) error { return nil }

// FileReporter is a JSONL reporter that owns the file it appends to.
type FileReporter struct {
	*JSONLReporter
	file *os.File
}

// NewFileReporter opens path for appending and reports records into it.
func NewFileReporter(path string) (*FileReporter, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternalError, "open report file "+path)
	}
	return &FileReporter{
		JSONLReporter: NewJSONLReporter(file),
		file:          file,
	}, nil
}

// Stop closes the underlying file.
func (r *FileReporter) Stop(ctx context.Context) error {
	if err := r.file.Close(); err != nil {
		return apperror.Wrap(err, apperror.CodeInternalError, "close report file")
	}
	return nil
}

// MultiReporter fans a report out to several reporters. The first
// error stops neither the fan-out nor the detection loop caller.
type MultiReporter struct {
	reporters []app.Reporter
}

// NewMultiReporter combines reporters into one.
func NewMultiReporter(reporters ...app.Reporter) *MultiReporter {
	return &MultiReporter{reporters: reporters}
}

func (m *MultiReporter) Start(ctx context.Context) error {
	for _, r := range m.reporters {
		if err := r.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiReporter) Report(ctx context.Context, opp *domain.Opportunity) error {
	var firstErr error
	for _, r := range m.reporters {
		if err := r.Report(ctx, opp); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *MultiReporter) Stop(ctx context.Context) error {
	var firstErr error
	for _, r := range m.reporters {
		if err := r.Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

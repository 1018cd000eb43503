// Package storage keeps a history of ranking runs.
// Supports file, in-memory and SQLite backends.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"restaurant-rank/core/ranking"
	rerrors "restaurant-rank/internal/errors"
)

// Backend is a storage backend type
type Backend string

const (
	BackendFile   Backend = "file"
	BackendMemory Backend = "memory"
	BackendSQLite Backend = "sqlite"
)

// Store is the storage interface
type Store interface {
	// Save stores a run, assigning an ID and timestamp when missing
	Save(ctx context.Context, run *StoredRun) error

	// Get retrieves a run by ID
	Get(ctx context.Context, id string) (*StoredRun, error)

	// List lists runs, newest first
	List(ctx context.Context, filter *ListFilter) ([]*StoredRun, error)

	// Delete removes a run
	Delete(ctx context.Context, id string) error

	// Latest gets the newest run for a source
	Latest(ctx context.Context, source string) (*StoredRun, error)

	// Compare compares two runs
	Compare(ctx context.Context, oldID, newID string) (*CompareResult, error)

	// Close closes the store
	Close() error
}

// StoredRun is a stored ranking run
type StoredRun struct {
	// ID is the run identifier, normally the report ID
	ID string `json:"id"`

	// Source names the input the run ranked
	Source string `json:"source"`

	// Profile is the engine profile used
	Profile string `json:"profile"`

	// CreatedAt timestamp
	CreatedAt time.Time `json:"created_at"`

	// Report is the full ranking report
	Report *ranking.Report `json:"report"`

	// Metadata
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewStoredRun wraps a report for storage
func NewStoredRun(source string, report *ranking.Report) *StoredRun {
	return &StoredRun{
		ID:        report.ID,
		Source:    source,
		Profile:   report.Profile,
		CreatedAt: report.CreatedAt,
		Report:    report,
	}
}

// ListFilter filters run listing
type ListFilter struct {
	Source  string
	Profile string
	Since   time.Time
	Until   time.Time
	Limit   int
	Offset  int
}

func (f *ListFilter) matches(run *StoredRun) bool {
	if f == nil {
		return true
	}
	if f.Source != "" && run.Source != f.Source {
		return false
	}
	if f.Profile != "" && run.Profile != f.Profile {
		return false
	}
	if !f.Since.IsZero() && run.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && run.CreatedAt.After(f.Until) {
		return false
	}
	return true
}

func (f *ListFilter) page(runs []*StoredRun) []*StoredRun {
	if f == nil {
		return runs
	}
	if f.Offset > 0 {
		if f.Offset >= len(runs) {
			return nil
		}
		runs = runs[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(runs) {
		runs = runs[:f.Limit]
	}
	return runs
}

// RankChange describes how one restaurant moved between two runs.
// A zero rank means the restaurant was absent from that run's results.
type RankChange struct {
	ID       string  `json:"id"`
	OldRank  int     `json:"old_rank"`
	NewRank  int     `json:"new_rank"`
	OldScore float64 `json:"old_score"`
	NewScore float64 `json:"new_score"`
}

// Moved reports whether the rank changed
func (c RankChange) Moved() bool {
	return c.OldRank != c.NewRank
}

// CompareResult is a comparison between two runs
type CompareResult struct {
	OldID     string       `json:"old_id"`
	NewID     string       `json:"new_id"`
	OldMean   float64      `json:"old_mean"`
	NewMean   float64      `json:"new_mean"`
	MeanDelta float64      `json:"mean_delta"`
	Entered   []string     `json:"entered,omitempty"`
	Dropped   []string     `json:"dropped,omitempty"`
	Changes   []RankChange `json:"changes"`
	CreatedAt time.Time    `json:"created_at"`
}

// CompareRuns diffs the ranked results of two runs. Changes are ordered by
// the new ranking, followed by restaurants that dropped out.
func CompareRuns(oldRun, newRun *StoredRun) *CompareResult {
	res := &CompareResult{
		OldID:     oldRun.ID,
		NewID:     newRun.ID,
		CreatedAt: time.Now(),
	}
	if oldRun.Report == nil || newRun.Report == nil {
		return res
	}

	res.OldMean = oldRun.Report.Summary.Mean
	res.NewMean = newRun.Report.Summary.Mean
	res.MeanDelta = res.NewMean - res.OldMean

	old := make(map[string]RankChange, len(oldRun.Report.Results))
	for _, r := range oldRun.Report.Results {
		old[r.ID] = RankChange{ID: r.ID, OldRank: r.Rank, OldScore: r.Score}
	}

	seen := make(map[string]bool, len(newRun.Report.Results))
	for _, r := range newRun.Report.Results {
		seen[r.ID] = true
		c, ok := old[r.ID]
		if !ok {
			c = RankChange{ID: r.ID}
			res.Entered = append(res.Entered, r.ID)
		}
		c.NewRank = r.Rank
		c.NewScore = r.Score
		res.Changes = append(res.Changes, c)
	}
	for _, r := range oldRun.Report.Results {
		if !seen[r.ID] {
			res.Dropped = append(res.Dropped, r.ID)
			res.Changes = append(res.Changes, old[r.ID])
		}
	}
	return res
}

func prepare(run *StoredRun) error {
	if run == nil {
		return rerrors.Input("nil run")
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	return nil
}

func sortNewestFirst(runs []*StoredRun) {
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
}

func latestOf(ctx context.Context, s Store, source string) (*StoredRun, error) {
	runs, err := s.List(ctx, &ListFilter{Source: source, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, rerrors.NotFound("run for source", source)
	}
	return runs[0], nil
}

func compareIn(ctx context.Context, s Store, oldID, newID string) (*CompareResult, error) {
	oldRun, err := s.Get(ctx, oldID)
	if err != nil {
		return nil, fmt.Errorf("failed to get old run: %w", err)
	}
	newRun, err := s.Get(ctx, newID)
	if err != nil {
		return nil, fmt.Errorf("failed to get new run: %w", err)
	}
	return CompareRuns(oldRun, newRun), nil
}

// FileStore is a file-based storage backend holding one JSON file per run
type FileStore struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStore creates a file store
func NewFileStore(basePath string) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, rerrors.Storage("failed to create storage directory", err)
	}
	return &FileStore{basePath: basePath}, nil
}

func (s *FileStore) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", rerrors.Input(fmt.Sprintf("invalid run id %q", id))
	}
	return filepath.Join(s.basePath, id+".json"), nil
}

func (s *FileStore) Save(ctx context.Context, run *StoredRun) error {
	if err := prepare(run); err != nil {
		return err
	}
	path, err := s.path(run.ID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return rerrors.Storage("failed to marshal run", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(path, data, 0644); err != nil {
		return rerrors.Storage("failed to write run", err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*StoredRun, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, rerrors.NotFound("run", id)
	}
	if err != nil {
		return nil, rerrors.Storage("failed to read run", err)
	}

	var run StoredRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, rerrors.Storage("failed to unmarshal run", err)
	}
	return &run, nil
}

func (s *FileStore) List(ctx context.Context, filter *ListFilter) ([]*StoredRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, rerrors.Storage("failed to read storage", err)
	}

	var runs []*StoredRun
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := os.ReadFile(filepath.Join(s.basePath, entry.Name()))
		if err != nil {
			continue
		}
		var run StoredRun
		if err := json.Unmarshal(data, &run); err != nil {
			continue
		}
		if filter.matches(&run) {
			runs = append(runs, &run)
		}
	}

	sortNewestFirst(runs)
	return filter.page(runs), nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return rerrors.NotFound("run", id)
		}
		return rerrors.Storage("failed to delete run", err)
	}
	return nil
}

func (s *FileStore) Latest(ctx context.Context, source string) (*StoredRun, error) {
	return latestOf(ctx, s, source)
}

func (s *FileStore) Compare(ctx context.Context, oldID, newID string) (*CompareResult, error) {
	return compareIn(ctx, s, oldID, newID)
}

func (s *FileStore) Close() error {
	return nil
}

// MemoryStore is an in-memory storage backend
type MemoryStore struct {
	runs map[string]*StoredRun
	mu   sync.RWMutex
}

// NewMemoryStore creates a memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make(map[string]*StoredRun),
	}
}

func (s *MemoryStore) Save(ctx context.Context, run *StoredRun) error {
	if err := prepare(run); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*StoredRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, rerrors.NotFound("run", id)
	}
	return run, nil
}

func (s *MemoryStore) List(ctx context.Context, filter *ListFilter) ([]*StoredRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var runs []*StoredRun
	for _, run := range s.runs {
		if filter.matches(run) {
			runs = append(runs, run)
		}
	}
	sortNewestFirst(runs)
	return filter.page(runs), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[id]; !ok {
		return rerrors.NotFound("run", id)
	}
	delete(s.runs, id)
	return nil
}

func (s *MemoryStore) Latest(ctx context.Context, source string) (*StoredRun, error) {
	return latestOf(ctx, s, source)
}

func (s *MemoryStore) Compare(ctx context.Context, oldID, newID string) (*CompareResult, error) {
	return compareIn(ctx, s, oldID, newID)
}

func (s *MemoryStore) Close() error {
	return nil
}

// StoreFactory creates stores by backend type
func StoreFactory(backend Backend, config map[string]string) (Store, error) {
	path := config["path"]
	switch backend {
	case BackendFile:
		if path == "" {
			path = ".restaurant-rank"
		}
		return NewFileStore(path)
	case BackendSQLite:
		if path == "" {
			path = "history.db"
		}
		return NewSQLiteStore(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, rerrors.NotSupported(fmt.Sprintf("history backend %q", backend))
	}
}

// HistorySink records every report it receives in a store
type HistorySink struct {
	store  Store
	source string
}

// NewHistorySink creates a sink saving runs under the given source name
func NewHistorySink(store Store, source string) *HistorySink {
	return &HistorySink{store: store, source: source}
}

// Name returns the sink description
func (h *HistorySink) Name() string {
	return "history"
}

// Write stores the report
func (h *HistorySink) Write(ctx context.Context, report *ranking.Report) error {
	return h.store.Save(ctx, NewStoredRun(h.source, report))
}

// Ensure interfaces are implemented
var (
	_ Store        = (*FileStore)(nil)
	_ Store        = (*MemoryStore)(nil)
	_ Store        = (*SQLiteStore)(nil)
	_ io.Closer    = (*SQLiteStore)(nil)
	_ ranking.Sink = (*HistorySink)(nil)
)

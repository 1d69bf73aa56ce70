package store

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// NewMemoryBundle creates a Bundle backed entirely by in-memory stores
func NewMemoryBundle() *Bundle {
	return &Bundle{
		Runs: &MemoryRunStore{
			order:  make(map[string]int),
			runs:   make(map[string]*RunInfo),
			steps:  make(map[string][]StepRecord),
			events: make(map[string][]EventRecord),
		},
	}
}

// MemoryRunStore keeps runs in process memory. Nothing survives a restart.
type MemoryRunStore struct {
	mu     sync.Mutex
	seq    int
	order  map[string]int
	runs   map[string]*RunInfo
	steps  map[string][]StepRecord
	events map[string][]EventRecord
}

func (s *MemoryRunStore) CreateRun(request string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := generateID()
	s.seq++
	s.order[id] = s.seq
	s.runs[id] = &RunInfo{
		ID:        id,
		Request:   request,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}
	return id, nil
}

func (s *MemoryRunStore) CompleteRun(id, status string, result, errMsg *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("complete run %s: %w", id, ErrRunNotFound)
	}
	now := time.Now()
	run.Status = status
	run.Result = result
	run.Error = errMsg
	run.FinishedAt = &now
	return nil
}

func (s *MemoryRunStore) GetRun(id string) (*RunInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	info := *run
	info.StepCount = len(s.steps[id])
	return &info, nil
}

func (s *MemoryRunStore) ListRuns(limit, offset int) ([]RunInfo, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]RunInfo, 0, len(s.runs))
	for id, run := range s.runs {
		info := *run
		info.StepCount = len(s.steps[id])
		all = append(all, info)
	}
	sort.Slice(all, func(i, j int) bool {
		return s.order[all[i].ID] > s.order[all[j].ID]
	})

	start, end := page(len(all), limit, offset)
	return all[start:end], len(all), nil
}

func (s *MemoryRunStore) AppendStep(runID string, step StepRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[runID]; !ok {
		return fmt.Errorf("append step: %w", ErrRunNotFound)
	}
	if step.CreatedAt.IsZero() {
		step.CreatedAt = time.Now()
	}
	s.steps[runID] = append(s.steps[runID], step)
	return nil
}

func (s *MemoryRunStore) GetSteps(runID string) ([]StepRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	steps := append([]StepRecord{}, s.steps[runID]...)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Index < steps[j].Index })
	return steps, nil
}

func (s *MemoryRunStore) StoreEvent(event EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ID == "" {
		event.ID = generateID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	s.events[event.RunID] = append(s.events[event.RunID], event)
	return nil
}

func (s *MemoryRunStore) GetEvents(runID string, limit, offset int) ([]EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.events[runID]
	start, end := page(len(events), limit, offset)
	return append([]EventRecord{}, events[start:end]...), nil
}

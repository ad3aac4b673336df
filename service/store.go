package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/waijian1/resume-parser-project/config"
	"github.com/waijian1/resume-parser-project/model"
)

// RunStore is an in-memory store for extraction runs
// In production, this should be replaced with a database
type RunStore struct {
	runs    map[string]*model.Run
	mu      sync.RWMutex
	maxRuns int // Maximum runs to keep, 0 = unlimited
}

var (
	globalStore *RunStore
	storeOnce   sync.Once
)

// InitRunStore initializes the global run store with configuration
func InitRunStore(cfg *config.StoreConfig) {
	storeOnce.Do(func() {
		maxRuns := cfg.MaxRuns
		if maxRuns < 0 {
			maxRuns = 0
		}
		globalStore = &RunStore{
			runs:    make(map[string]*model.Run),
			maxRuns: maxRuns,
		}
		slog.Info("run store initialized", "max_runs", maxRuns)
	})
}

// GetRunStore returns the global run store
func GetRunStore() *RunStore {
	if globalStore == nil {
		// Fallback initialization with default settings
		globalStore = &RunStore{
			runs:    make(map[string]*model.Run),
			maxRuns: 100, // Default: keep 100 runs
		}
	}
	return globalStore
}

func (s *RunStore) Save(run *model.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run.UpdatedAt = time.Now()
	s.runs[run.ID] = run

	// Cleanup if exceeds max
	s.cleanupIfNeeded()
}

func (s *RunStore) Get(id string) *model.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runs[id]
}

func (s *RunStore) GetByTenant(tenant string) []*model.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Run
	for _, r := range s.runs {
		if r.Tenant == tenant {
			result = append(result, r)
		}
	}
	return result
}

func (s *RunStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
}

func (s *RunStore) UpdateStatus(id, status string, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.runs[id]; ok {
		r.Status = status
		r.ErrorMsg = errMsg
		r.UpdatedAt = time.Now()
	}
}

// SetResult stores the extraction result and marks the run completed.
func (s *RunStore) SetResult(id string, result *model.ExtractionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.runs[id]; ok {
		r.Result = result
		r.JobID = result.JobID
		r.StoragePath = result.StoragePath
		r.Status = model.StatusCompleted
		r.UpdatedAt = time.Now()
	}
}

// cleanupIfNeeded removes oldest runs if store exceeds maxRuns
// Must be called with lock held
func (s *RunStore) cleanupIfNeeded() {
	if s.maxRuns <= 0 {
		return // Unlimited
	}

	if len(s.runs) <= s.maxRuns {
		return
	}

	// Sort runs by creation time
	runs := make([]*model.Run, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.Before(runs[j].CreatedAt)
	})

	// Remove oldest runs
	removeCount := len(runs) - s.maxRuns
	for i := 0; i < removeCount; i++ {
		slog.Info("auto-cleaning old run",
			"run_id", runs[i].ID,
			"created_at", runs[i].CreatedAt,
		)
		delete(s.runs, runs[i].ID)
	}
}

// Count returns the number of runs in the store
func (s *RunStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

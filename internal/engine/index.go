package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"notify-step-filter/internal/filter"
	"notify-step-filter/internal/logger"
	"notify-step-filter/internal/metrics"
)

// StepIndex provides fast step definition lookup by workflow and step ID
type StepIndex struct {
	steps   map[string]*filter.Step
	stats   IndexStats
	logger  *logger.Logger
	metrics *metrics.Metrics
	mu      sync.RWMutex
}

// IndexStats tracks step index statistics
type IndexStats struct {
	StepCount  uint64
	Lookups    uint64
	Hits       uint64
	LastUpdate time.Time
}

// NewStepIndex creates a new step index
func NewStepIndex(log *logger.Logger, m *metrics.Metrics) *StepIndex {
	return &StepIndex{
		steps:   make(map[string]*filter.Step),
		logger:  log,
		metrics: m,
		stats: IndexStats{
			LastUpdate: time.Now(),
		},
	}
}

func stepKey(workflowID, stepID string) string {
	return workflowID + "/" + stepID
}

// Add adds a step to the index
func (idx *StepIndex) Add(step *filter.Step) error {
	if step == nil {
		return fmt.Errorf("step cannot be nil")
	}

	key := stepKey(step.WorkflowID, step.ID)

	idx.mu.Lock()
	if _, exists := idx.steps[key]; exists {
		idx.mu.Unlock()
		return fmt.Errorf("step %s already indexed", key)
	}
	idx.steps[key] = step
	idx.mu.Unlock()

	atomic.AddUint64(&idx.stats.StepCount, 1)
	idx.stats.LastUpdate = time.Now()

	if idx.metrics != nil {
		idx.metrics.SetStepsActive(float64(atomic.LoadUint64(&idx.stats.StepCount)))
	}

	idx.logger.Debug("step added to index",
		"workflow", step.WorkflowID,
		"step", step.ID,
		"filterGroups", len(step.Filters))

	return nil
}

// Remove removes a step from the index
func (idx *StepIndex) Remove(workflowID, stepID string) error {
	key := stepKey(workflowID, stepID)

	idx.mu.Lock()
	if _, exists := idx.steps[key]; !exists {
		idx.mu.Unlock()
		return fmt.Errorf("step %s not indexed", key)
	}
	delete(idx.steps, key)
	idx.mu.Unlock()

	atomic.AddUint64(&idx.stats.StepCount, ^uint64(0))
	idx.stats.LastUpdate = time.Now()

	if idx.metrics != nil {
		idx.metrics.SetStepsActive(float64(atomic.LoadUint64(&idx.stats.StepCount)))
	}

	idx.logger.Debug("step removed from index",
		"workflow", workflowID,
		"step", stepID)

	return nil
}

// Find looks up a step definition
func (idx *StepIndex) Find(workflowID, stepID string) *filter.Step {
	idx.mu.RLock()
	step := idx.steps[stepKey(workflowID, stepID)]
	idx.mu.RUnlock()

	atomic.AddUint64(&idx.stats.Lookups, 1)
	if step != nil {
		atomic.AddUint64(&idx.stats.Hits, 1)
	}

	return step
}

// Clear removes all steps from the index
func (idx *StepIndex) Clear() {
	idx.mu.Lock()
	idx.steps = make(map[string]*filter.Step)
	idx.mu.Unlock()

	atomic.StoreUint64(&idx.stats.StepCount, 0)
	idx.stats.LastUpdate = time.Now()

	if idx.metrics != nil {
		idx.metrics.SetStepsActive(0)
	}

	idx.logger.Info("step index cleared")
}

// GetStats returns current index statistics
func (idx *StepIndex) GetStats() IndexStats {
	return IndexStats{
		StepCount:  atomic.LoadUint64(&idx.stats.StepCount),
		Lookups:    atomic.LoadUint64(&idx.stats.Lookups),
		Hits:       atomic.LoadUint64(&idx.stats.Hits),
		LastUpdate: idx.stats.LastUpdate,
	}
}

package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"notify-step-filter/internal/filter"
	"notify-step-filter/internal/logger"
	"notify-step-filter/internal/metrics"
)

// EngineConfig holds engine configuration
type EngineConfig struct {
	Workers   int
	QueueSize int
}

// Engine answers check requests against the indexed step definitions
type Engine struct {
	index     *StepIndex
	evaluator *filter.Evaluator
	jobPool   *JobPool
	workers   int
	jobChan   chan *CheckJob
	logger    *logger.Logger
	metrics   *metrics.Metrics
	stats     EngineStats
	wg        sync.WaitGroup
}

// NewEngine creates an engine and starts its worker pool
func NewEngine(cfg EngineConfig, evaluator *filter.Evaluator, log *logger.Logger, m *metrics.Metrics) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}

	e := &Engine{
		index:     NewStepIndex(log, m),
		evaluator: evaluator,
		jobPool:   NewJobPool(),
		workers:   cfg.Workers,
		jobChan:   make(chan *CheckJob, cfg.QueueSize),
		logger:    log,
		metrics:   m,
	}

	e.startWorkers()

	return e
}

// LoadSteps loads step definitions into the index, replacing any existing set
func (e *Engine) LoadSteps(steps []filter.Step) error {
	e.index.Clear()

	for i := range steps {
		if err := e.index.Add(&steps[i]); err != nil {
			return fmt.Errorf("failed to index step %s/%s: %w",
				steps[i].WorkflowID, steps[i].ID, err)
		}
	}

	e.logger.Info("steps loaded into index",
		"count", len(steps))

	return nil
}

// Check synchronously evaluates whether a step should fire
func (e *Engine) Check(ctx context.Context, req *CheckRequest) (*Decision, error) {
	atomic.AddUint64(&e.stats.Received, 1)
	if e.metrics != nil {
		e.metrics.IncChecksTotal("received")
	}

	if req == nil || req.WorkflowID == "" || req.StepID == "" {
		atomic.AddUint64(&e.stats.Errors, 1)
		if e.metrics != nil {
			e.metrics.IncChecksTotal("error")
		}
		return nil, fmt.Errorf("check request must carry workflowId and stepId")
	}

	step := e.index.Find(req.WorkflowID, req.StepID)
	if step == nil {
		atomic.AddUint64(&e.stats.Errors, 1)
		if e.metrics != nil {
			e.metrics.IncChecksTotal("error")
		}
		return nil, fmt.Errorf("unknown step %s/%s", req.WorkflowID, req.StepID)
	}

	vars := &filter.Variables{
		Payload:    req.Payload,
		Subscriber: req.Subscriber,
	}

	enabled := e.evaluator.IsStepEnabled(ctx, step, vars)

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	decision := &Decision{
		RequestID:   requestID,
		WorkflowID:  req.WorkflowID,
		StepID:      req.StepID,
		Enabled:     enabled,
		EvaluatedAt: time.Now().UTC(),
	}

	atomic.AddUint64(&e.stats.Answered, 1)
	if enabled {
		atomic.AddUint64(&e.stats.Enabled, 1)
	} else {
		atomic.AddUint64(&e.stats.Filtered, 1)
	}

	if e.metrics != nil {
		e.metrics.IncChecksTotal("processed")
		if enabled {
			e.metrics.IncStepDecisions("enabled")
		} else {
			e.metrics.IncStepDecisions("filtered")
		}
	}

	e.logger.Debug("step check answered",
		"workflow", req.WorkflowID,
		"step", req.StepID,
		"enabled", enabled)

	return decision, nil
}

// Submit queues a check request for asynchronous evaluation. The callback
// runs on a worker goroutine once the decision is available.
func (e *Engine) Submit(req *CheckRequest, callback func(*Decision, error)) error {
	job := e.jobPool.Get()
	job.Request = req
	job.Callback = callback

	select {
	case e.jobChan <- job:
		return nil
	default:
		e.jobPool.Put(job)
		atomic.AddUint64(&e.stats.Errors, 1)
		if e.metrics != nil {
			e.metrics.IncChecksTotal("error")
		}
		return fmt.Errorf("check queue is full")
	}
}

// GetJobChannel exposes the job channel for queue depth instrumentation
func (e *Engine) GetJobChannel() chan *CheckJob {
	return e.jobChan
}

// GetStats returns current engine statistics
func (e *Engine) GetStats() EngineStats {
	return EngineStats{
		Received: atomic.LoadUint64(&e.stats.Received),
		Answered: atomic.LoadUint64(&e.stats.Answered),
		Enabled:  atomic.LoadUint64(&e.stats.Enabled),
		Filtered: atomic.LoadUint64(&e.stats.Filtered),
		Errors:   atomic.LoadUint64(&e.stats.Errors),
	}
}

// GetIndexStats returns current step index statistics
func (e *Engine) GetIndexStats() IndexStats {
	return e.index.GetStats()
}

// Internal worker pool functions
func (e *Engine) startWorkers() {
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.worker()
	}
}

func (e *Engine) worker() {
	defer e.wg.Done()

	for job := range e.jobChan {
		decision, err := e.Check(context.Background(), job.Request)
		if job.Callback != nil {
			job.Callback(decision, err)
		}
		e.jobPool.Put(job)
	}
}

// Close shuts down the engine workers
func (e *Engine) Close() {
	close(e.jobChan)
	e.wg.Wait()
}

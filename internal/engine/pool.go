package engine

import (
	"sync"
)

// CheckJob represents a queued check request with its completion callback
type CheckJob struct {
	Request  *CheckRequest
	Callback func(*Decision, error)
}

// JobPool manages check job object reuse
type JobPool struct {
	pool sync.Pool
}

// NewJobPool creates a new job pool
func NewJobPool() *JobPool {
	return &JobPool{
		pool: sync.Pool{
			New: func() interface{} {
				return &CheckJob{}
			},
		},
	}
}

// Get retrieves a job object from the pool
func (p *JobPool) Get() *CheckJob {
	return p.pool.Get().(*CheckJob)
}

// Put returns a job object to the pool
func (p *JobPool) Put(job *CheckJob) {
	job.Request = nil
	job.Callback = nil
	p.pool.Put(job)
}

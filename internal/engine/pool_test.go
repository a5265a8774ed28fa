package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobPoolGetPut(t *testing.T) {
	pool := NewJobPool()

	job := pool.Get()
	require.NotNil(t, job)
	assert.Nil(t, job.Request)
	assert.Nil(t, job.Callback)

	job.Request = &CheckRequest{WorkflowID: "w1", StepID: "s1"}
	job.Callback = func(*Decision, error) {}

	pool.Put(job)

	// Put must clear references so pooled jobs never leak a request
	recycled := pool.Get()
	assert.Nil(t, recycled.Request)
	assert.Nil(t, recycled.Callback)
}

func TestJobPoolConcurrentUse(t *testing.T) {
	pool := NewJobPool()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				job := pool.Get()
				job.Request = &CheckRequest{WorkflowID: "w", StepID: "s"}
				pool.Put(job)
			}
		}()
	}
	wg.Wait()
}

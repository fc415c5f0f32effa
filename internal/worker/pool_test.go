package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProcessor struct {
	delay time.Duration
	fail  map[string]bool
	calls atomic.Int32
	peak  atomic.Int32
	live  atomic.Int32
}

func (s *stubProcessor) Process(ctx context.Context, task Task) (string, error) {
	s.calls.Add(1)
	n := s.live.Add(1)
	defer s.live.Add(-1)
	for {
		old := s.peak.Load()
		if n <= old || s.peak.CompareAndSwap(old, n) {
			break
		}
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(s.delay):
	}

	if s.fail[task.Key] {
		return "", errors.New("simulated failure")
	}
	return "/out/" + task.Key + ".png", nil
}

func makeTasks(n int) []Task {
	tasks := make([]Task, n)
	for i := range tasks {
		key := fmt.Sprintf("img%02d", i)
		tasks[i] = Task{Key: key, Src: key + ".png", Dst: "/out/" + key + ".png"}
	}
	return tasks
}

func TestPoolRunsAllTasksInOrder(t *testing.T) {
	proc := &stubProcessor{delay: 5 * time.Millisecond}
	tasks := makeTasks(6)

	results := New(Config{Workers: 3, Processor: proc}).Run(context.Background(), tasks)

	require.Len(t, results, len(tasks))
	for i, r := range results {
		assert.Equal(t, tasks[i], r.Task)
		assert.NoError(t, r.Err)
		assert.Equal(t, "/out/"+tasks[i].Key+".png", r.Dst)
	}
	assert.Equal(t, int32(6), proc.calls.Load())
	assert.LessOrEqual(t, proc.peak.Load(), int32(3))
}

func TestPoolRunsInParallel(t *testing.T) {
	proc := &stubProcessor{delay: 50 * time.Millisecond}

	start := time.Now()
	results := New(Config{Workers: 4, Processor: proc}).Run(context.Background(), makeTasks(8))
	elapsed := time.Since(start)

	assert.Len(t, results, 8)
	assert.Less(t, elapsed, 300*time.Millisecond)
	assert.Greater(t, proc.peak.Load(), int32(1))
}

func TestPoolReportsFailures(t *testing.T) {
	proc := &stubProcessor{delay: time.Millisecond, fail: map[string]bool{"img01": true}}

	results := New(Config{Workers: 2, Processor: proc}).Run(context.Background(), makeTasks(3))

	failed := Failed(results)
	require.Len(t, failed, 1)
	assert.Equal(t, "img01", failed[0].Task.Key)
	assert.NoError(t, results[0].Err)
	assert.NoError(t, results[2].Err)
}

func TestPoolCancellation(t *testing.T) {
	proc := &stubProcessor{delay: 100 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	start := time.Now()
	results := New(Config{Workers: 2, Processor: proc}).Run(ctx, makeTasks(10))

	assert.Less(t, time.Since(start), 300*time.Millisecond)
	require.Len(t, results, 10)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled, r.Task.Key)
	}
}

func TestPoolProgressCallback(t *testing.T) {
	var calls, lastCompleted, lastTotal int

	pool := New(Config{
		Workers:   2,
		Processor: &stubProcessor{delay: time.Millisecond},
		OnProgress: func(completed, total, failed int) {
			calls++
			lastCompleted = completed
			lastTotal = total
		},
	})
	pool.Run(context.Background(), makeTasks(3))

	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, lastCompleted)
	assert.Equal(t, 3, lastTotal)
}

func TestPoolEmptyTasks(t *testing.T) {
	assert.Nil(t, New(Config{Processor: &stubProcessor{}}).Run(context.Background(), nil))
}

func TestPoolDefaultsToOneWorker(t *testing.T) {
	proc := &stubProcessor{delay: time.Millisecond}
	New(Config{Workers: 0, Processor: proc}).Run(context.Background(), makeTasks(4))
	assert.Equal(t, int32(1), proc.peak.Load())
}

func TestProcessorFunc(t *testing.T) {
	var p Processor = ProcessorFunc(func(_ context.Context, task Task) (string, error) {
		return task.Dst, nil
	})
	dst, err := p.Process(context.Background(), Task{Dst: "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", dst)
}

package ingest

import (
	"sync"
	"sync/atomic"
)

// Task is the handle for one in-flight ingestion. The upload handler keeps
// it in the session so later commands can test completion or request a
// cooperative cancel; the pipeline polls Cancelled at batch boundaries.
type Task struct {
	fileName string
	cancel   atomic.Bool
	done     chan struct{}
	once     sync.Once
}

func NewTask(fileName string) *Task {
	return &Task{
		fileName: fileName,
		done:     make(chan struct{}),
	}
}

func (t *Task) FileName() string {
	return t.fileName
}

func (t *Task) Cancel() {
	t.cancel.Store(true)
}

func (t *Task) Cancelled() bool {
	return t.cancel.Load()
}

func (t *Task) Done() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Finish marks the task complete. The pipeline calls it exactly once when
// the run ends, whatever the outcome; calling it again is a no-op.
func (t *Task) Finish() {
	t.once.Do(func() {
		close(t.done)
	})
}

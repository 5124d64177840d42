package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tanyadoc/tanyadoc/internal/session"
)

// SessionSweepJob evicts per-user sessions that have been idle past the
// configured window. Sessions with a live ingestion task are left alone.
type SessionSweepJob struct {
	sessions *session.Manager
	idle     time.Duration
}

func NewSessionSweepJob(sessions *session.Manager, idle time.Duration) *SessionSweepJob {
	return &SessionSweepJob{sessions: sessions, idle: idle}
}

func (j *SessionSweepJob) Name() string {
	return "session_sweep"
}

func (j *SessionSweepJob) Run(ctx context.Context) error {
	removed := j.sessions.Sweep(j.idle)
	if removed > 0 {
		logutil.GetLogger(ctx).Info("idle sessions swept", zap.Int("removed", removed))
	}
	return nil
}

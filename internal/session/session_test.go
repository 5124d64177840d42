package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tanyadoc/tanyadoc/internal/ingest"
	errs "github.com/tanyadoc/tanyadoc/internal/pkg/errors"
)

func TestManagerGetCreatesOnFirstContact(t *testing.T) {
	m := NewManager()
	require.Equal(t, 0, m.Len())

	sess := m.Get("42")
	require.NotNil(t, sess)
	require.Equal(t, "42", sess.UserID())
	require.Equal(t, 1, m.Len())

	require.Same(t, sess, m.Get("42"))
	require.Equal(t, 1, m.Len())
}

func TestHistoryBounded(t *testing.T) {
	sess := NewManager().Get("u")
	for i := 1; i <= 7; i++ {
		sess.AppendTurn(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}
	history := sess.History()
	require.Len(t, history, 5)
	require.Equal(t, "q3", history[0].Question)
	require.Equal(t, "q7", history[4].Question)
	require.Equal(t, "a7", history[4].Answer)
}

func TestHistoryReturnsCopy(t *testing.T) {
	sess := NewManager().Get("u")
	sess.AppendTurn("q1", "a1")
	got := sess.History()
	got[0].Question = "mutated"
	require.Equal(t, "q1", sess.History()[0].Question)
}

func TestFocusLifecycle(t *testing.T) {
	sess := NewManager().Get("u")
	require.Equal(t, "", sess.Focus())
	require.False(t, sess.ClearFocus())

	sess.SetFocus("report.pdf")
	require.Equal(t, "report.pdf", sess.Focus())
	require.True(t, sess.ClearFocus())
	require.Equal(t, "", sess.Focus())
}

func TestSetTaskRejectsSecondUpload(t *testing.T) {
	sess := NewManager().Get("u")
	first := ingest.NewTask("a.pdf")
	require.NoError(t, sess.SetTask(first))

	second := ingest.NewTask("b.pdf")
	require.ErrorIs(t, sess.SetTask(second), errs.ErrBusy)
	require.Same(t, first, sess.Task())
}

func TestSetTaskAllowedAfterCompletion(t *testing.T) {
	sess := NewManager().Get("u")
	first := ingest.NewTask("a.pdf")
	require.NoError(t, sess.SetTask(first))
	first.Finish()

	require.Nil(t, sess.Task())
	require.NoError(t, sess.SetTask(ingest.NewTask("b.pdf")))
}

func TestResetKeepsLiveTask(t *testing.T) {
	sess := NewManager().Get("u")
	sess.SetFocus("doc.pdf")
	sess.AppendTurn("q", "a")
	task := ingest.NewTask("doc.pdf")
	require.NoError(t, sess.SetTask(task))

	sess.Reset()
	require.Equal(t, "", sess.Focus())
	require.Empty(t, sess.History())
	require.Same(t, task, sess.Task())
}

func TestSweepRemovesIdleSessions(t *testing.T) {
	m := NewManager()
	idle := m.Get("idle")
	idle.mu.Lock()
	idle.lastSeen = time.Now().Add(-2 * time.Hour)
	idle.mu.Unlock()
	m.Get("fresh").AppendTurn("q", "a")

	removed := m.Sweep(time.Hour)
	require.Equal(t, 1, removed)
	require.Equal(t, 1, m.Len())
}

func TestSweepSkipsSessionsWithLiveTask(t *testing.T) {
	m := NewManager()
	busy := m.Get("busy")
	require.NoError(t, busy.SetTask(ingest.NewTask("big.pdf")))
	busy.mu.Lock()
	busy.lastSeen = time.Now().Add(-48 * time.Hour)
	busy.mu.Unlock()

	require.Equal(t, 0, m.Sweep(time.Hour))
	require.Equal(t, 1, m.Len())
}

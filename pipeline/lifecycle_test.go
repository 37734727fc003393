package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mceerrors "github.com/mdegans/mce/errors"
	"github.com/mdegans/mce/media"
	"github.com/mdegans/mce/testutil"
)

func controllerFixture(t *testing.T) (*testutil.Framework, *testutil.Pipeline, *Controller) {
	t.Helper()
	f := testutil.New()
	pipe, err := f.NewPipeline("p")
	require.NoError(t, err)
	return f, pipe.(*testutil.Pipeline), NewController(f, pipe, testLogger(), nil)
}

func TestSetStateSynchronous(t *testing.T) {
	_, pipe, c := controllerFixture(t)

	require.NoError(t, c.SetState(media.StateReady, StateOptions{}))
	assert.Equal(t, media.StateReady, pipe.State())
}

func TestSetStateTimeout(t *testing.T) {
	f, _, c := controllerFixture(t)
	f.PendingStates = true

	start := time.Now()
	err := c.SetState(media.StatePaused, StateOptions{Timeout: 50 * time.Millisecond})
	waited := time.Since(start)
	require.Error(t, err)

	var tte *mceerrors.TransitionTimeoutError
	require.ErrorAs(t, err, &tte)
	assert.Equal(t, "PAUSED", tte.Target)
	assert.GreaterOrEqual(t, tte.Waited, 50*time.Millisecond)
	assert.Less(t, waited, 5*time.Second, "must not wait the full default")
	assert.True(t, mceerrors.IsTransient(err), "timeouts are transient")
}

func TestSetStateAsyncDoesNotWait(t *testing.T) {
	f, pipe, c := controllerFixture(t)
	f.PendingStates = true

	require.NoError(t, c.SetState(media.StatePlaying, StateOptions{Async: true}))
	// still pending until settled
	assert.Equal(t, media.StateNull, pipe.State())
	pipe.Settle()
	assert.Equal(t, media.StatePlaying, pipe.State())
}

func TestSetStateWaitsForSettle(t *testing.T) {
	f, pipe, c := controllerFixture(t)
	f.PendingStates = true

	go func() {
		time.Sleep(10 * time.Millisecond)
		pipe.Settle()
	}()
	require.NoError(t, c.SetState(media.StatePaused, StateOptions{Timeout: time.Second}))
	assert.Equal(t, media.StatePaused, pipe.State())
}

func TestSnapshotsAroundTransition(t *testing.T) {
	f, _, c := controllerFixture(t)

	require.NoError(t, c.SetState(media.StateReady, StateOptions{Snapshot: true}))

	snaps := f.Snapshots()
	assert.Contains(t, snaps, "p.start.READY")
	assert.Contains(t, snaps, "p.end.READY")
}

func TestQuitIsIdempotent(t *testing.T) {
	_, pipe, c := controllerFixture(t)

	done := make(chan struct{})
	go func() {
		_ = c.Play()
		close(done)
	}()

	// wait for the loop to come up before quitting
	require.Eventually(t, c.Loop().IsRunning, time.Second, time.Millisecond)

	c.Quit()
	c.Quit()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
	assert.Equal(t, media.StateNull, pipe.State())
}

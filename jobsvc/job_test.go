package jobsvc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLifecycle(t *testing.T) {
	ctx := context.Background()
	j := New(NextJobID(), "doc.pdf", "application/pdf", "ipp://h:8631/default", "/ipp/print/default", "alice")
	assert.Equal(t, JobPending, j.State)

	require.NoError(t, j.MarkProcessing(ctx))
	assert.Equal(t, JobProcessing, j.State)
	assert.Contains(t, j.StateReasons, ReasonProcessingToStopPoint)

	require.NoError(t, j.Complete(ctx))
	assert.Equal(t, JobCompleted, j.State)
	assert.True(t, j.IsTerminal())
}

func TestJobCancelFromPending(t *testing.T) {
	ctx := context.Background()
	j := New(NextJobID(), "doc.pdf", "application/pdf", "ipp://h:8631/default", "/ipp/print/default", "bob")
	require.NoError(t, j.Cancel(ctx, ReasonJobCanceledBySystem))
	assert.Equal(t, JobCanceled, j.State)
	assert.Equal(t, []JobStateReason{ReasonJobCanceledBySystem}, j.StateReasons)
}

func TestJobIDsAreUnique(t *testing.T) {
	seen := make(map[JobID]bool)
	for i := 0; i < 1000; i++ {
		id := NextJobID()
		assert.False(t, seen[id], "duplicate job id generated")
		seen[id] = true
	}
}

func TestJobAttributes(t *testing.T) {
	j := New(42, "report.pdf", "application/pdf", "ipp://h:8631/default", "/ipp/print/default", "carol")
	attrs := j.Attributes()
	found := false
	for _, a := range attrs {
		if a.Name == "job-id" {
			found = true
		}
	}
	assert.True(t, found, "job-id attribute must be present")
}

package main

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleMaintenance_RunsJobs(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	c, err := scheduleMaintenance([]maintenanceJob{{
		name:     "counter",
		schedule: "@every 1s",
		run: func() int {
			runs.Add(1)
			return 1
		},
	}}, discardLogger)
	require.NoError(t, err)
	t.Cleanup(func() { <-c.Stop().Done() })

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduleMaintenance_EachJobRunsItsOwnFunc(t *testing.T) {
	t.Parallel()

	var first, second atomic.Int32
	c, err := scheduleMaintenance([]maintenanceJob{
		{name: "first", schedule: "@every 1s", run: func() int { first.Add(1); return 0 }},
		{name: "second", schedule: "@every 1s", run: func() int { second.Add(1); return 0 }},
	}, discardLogger)
	require.NoError(t, err)
	t.Cleanup(func() { <-c.Stop().Done() })

	assert.Eventually(t, func() bool {
		return first.Load() >= 1 && second.Load() >= 1
	}, 3*time.Second, 50*time.Millisecond)
}

func TestScheduleMaintenance_RecoversFromPanics(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	c, err := scheduleMaintenance([]maintenanceJob{{
		name:     "panicky",
		schedule: "@every 1s",
		run: func() int {
			runs.Add(1)
			panic("boom")
		},
	}}, discardLogger)
	require.NoError(t, err)
	t.Cleanup(func() { <-c.Stop().Done() })

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 4*time.Second, 50*time.Millisecond)
}

func TestScheduleMaintenance_InvalidSchedule(t *testing.T) {
	t.Parallel()

	_, err := scheduleMaintenance([]maintenanceJob{{
		name:     "broken",
		schedule: "not a schedule",
		run:      func() int { return 0 },
	}}, discardLogger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

package occupancy

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_Update(t *testing.T) {
	var testCases = []struct {
		description string
		deltas      []Delta
		expect      Counts
	}{
		{
			description: "submit",
			deltas:      []Delta{{Queued: 1}},
			expect:      Counts{Queued: 1},
		},
		{
			description: "seed then allocate",
			deltas:      []Delta{{Free: 5}, {Queued: 2}, {Queued: -1, Allocated: 1, Free: -1, InUse: 1}},
			expect:      Counts{Queued: 1, Allocated: 1, Free: 4, InUse: 1},
		},
		{
			description: "release",
			deltas:      []Delta{{Allocated: 1, InUse: 1}, {Allocated: -1, Completed: 1, InUse: -1, Free: 1}},
			expect:      Counts{Completed: 1, Free: 1},
		},
	}
	for _, testCase := range testCases {
		tracker := New()
		for _, delta := range testCase.deltas {
			tracker.Update(delta)
		}
		actual := tracker.Snapshot()
		actual.UpdatedAt = testCase.expect.UpdatedAt
		assert.Equal(t, testCase.expect, actual, testCase.description)
	}
}

func TestTracker_OnChange(t *testing.T) {
	tracker := New()
	var seen []Counts
	tracker.OnChange(func(counts Counts) {
		seen = append(seen, counts)
	})
	tracker.Reset(Counts{Free: 3, InUse: 2})
	tracker.Update(Delta{Free: 1, InUse: -1})
	assert.Len(t, seen, 2)
	assert.Equal(t, 4, seen[1].Free)
	assert.Equal(t, 5, seen[1].Resources())

	tracker.OnChange(nil)
	tracker.Update(Delta{Queued: 1})
	assert.Len(t, seen, 2)
}

func TestTracker_Concurrent(t *testing.T) {
	tracker := New()
	wg := sync.WaitGroup{}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Update(Delta{Queued: 1})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, tracker.Snapshot().Queued)
}

func TestTracker_Nil(t *testing.T) {
	var tracker *Tracker
	tracker.Update(Delta{Queued: 1})
	tracker.OnChange(func(Counts) {})
	assert.Equal(t, Counts{}, tracker.Snapshot())
}

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRequest_Clone(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	request := &Request{ID: 1, Name: "a", Priority: 3, Status: RequestStatusAllocated, RequestedAt: now, AllocatedAt: &now}
	clone := request.Clone()
	assert.Equal(t, request, clone)

	later := now.Add(time.Minute)
	*clone.AllocatedAt = later
	assert.Equal(t, now, *request.AllocatedAt)

	var nilRequest *Request
	assert.Nil(t, nilRequest.Clone())
}

func TestAllocation_Status(t *testing.T) {
	now := time.Now()
	var testCases = []struct {
		description  string
		allocation   *Allocation
		expectActive bool
		expect       string
	}{
		{description: "open", allocation: &Allocation{ID: 1}, expectActive: true, expect: AllocationStatusActive},
		{description: "released", allocation: &Allocation{ID: 1, ReleasedAt: &now}, expectActive: false, expect: AllocationStatusReleased},
	}
	for _, testCase := range testCases {
		assert.Equal(t, testCase.expectActive, testCase.allocation.IsActive(), testCase.description)
		assert.Equal(t, testCase.expect, testCase.allocation.Status(), testCase.description)
	}
}

func TestResource_IsFree(t *testing.T) {
	resource := &Resource{ID: 1, Type: ResourceTypeICUBed, Label: "ICU_BED-1", Status: ResourceStatusFree}
	assert.True(t, resource.IsFree())
	clone := resource.Clone()
	clone.Status = ResourceStatusInUse
	assert.True(t, resource.IsFree())
	assert.False(t, clone.IsFree())
}

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/carealloc/model"
	"github.com/viant/carealloc/service/dao"
)

func TestFsStore(t *testing.T) {
	ctx := context.Background()
	baseURL := t.TempDir()
	fs := afs.New()

	requests, err := NewFsStore(ctx, fs, baseURL, Requests)
	require.NoError(t, err)

	requestedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	first := &model.Request{Name: "A", Priority: 3, EstMinutes: 60, Status: model.RequestStatusQueued, RequestedAt: requestedAt.Add(time.Second)}
	second := &model.Request{Name: "B", Priority: 1, EstMinutes: 30, Status: model.RequestStatusQueued, RequestedAt: requestedAt}
	require.NoError(t, requests.Save(ctx, first))
	require.NoError(t, requests.Save(ctx, second))
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, 2, second.ID)

	loaded, err := requests.Load(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", loaded.Name)
	assert.True(t, requestedAt.Add(time.Second).Equal(loaded.RequestedAt))

	allocatedAt := requestedAt.Add(time.Minute)
	loaded.Status = model.RequestStatusAllocated
	loaded.AllocatedAt = &allocatedAt
	require.NoError(t, requests.Save(ctx, loaded))

	queued, err := requests.List(ctx, dao.WithStatus(model.RequestStatusQueued))
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, "B", queued[0].Name)

	all, err := requests.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "B", all[0].Name)

	_, err = requests.Load(ctx, 42)
	assert.ErrorIs(t, err, dao.ErrNotFound)

	reopened, err := NewFsStore(ctx, fs, baseURL, Requests)
	require.NoError(t, err)
	third := &model.Request{Name: "C", Status: model.RequestStatusQueued, RequestedAt: requestedAt}
	require.NoError(t, reopened.Save(ctx, third))
	assert.Equal(t, 3, third.ID)

	require.NoError(t, reopened.Delete(ctx, third.ID))
	assert.ErrorIs(t, reopened.Delete(ctx, third.ID), dao.ErrNotFound)
}

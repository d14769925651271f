package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/carealloc/model"
	"github.com/viant/carealloc/service/allocator"
	"github.com/viant/carealloc/service/dao"
	"github.com/viant/carealloc/service/dao/memory"
)

func newHandler(t *testing.T) (*Handler, *allocator.Service) {
	registry := prometheus.NewRegistry()
	metrics, err := allocator.NewMetrics(registry)
	require.NoError(t, err)
	alloc := allocator.New(memory.New(), allocator.DefaultConfig(), allocator.WithMetrics(metrics))
	_, err = alloc.Seed(context.Background(), allocator.DefaultInventory())
	require.NoError(t, err)
	return New(alloc, nil, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})), alloc
}

func call(handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(method, path, strings.NewReader(body)))
	return recorder
}

func TestHandler_Submit(t *testing.T) {
	var testCases = []struct {
		description    string
		body           string
		expectStatus   int
		expectPriority int
		expectEst      int
		expectName     string
	}{
		{description: "defaults", body: `{}`, expectStatus: http.StatusCreated, expectPriority: 3, expectEst: 60, expectName: "Anonymous"},
		{description: "explicit", body: `{"name":"Ann","priority":1,"est_minutes":45}`, expectStatus: http.StatusCreated, expectPriority: 1, expectEst: 45, expectName: "Ann"},
		{description: "numeric strings", body: `{"name":"Bob","priority":"2","est_minutes":"30"}`, expectStatus: http.StatusCreated, expectPriority: 2, expectEst: 30, expectName: "Bob"},
		{description: "clamped", body: `{"name":"Cid","priority":7}`, expectStatus: http.StatusCreated, expectPriority: 5, expectEst: 60, expectName: "Cid"},
		{description: "not a number", body: `{"priority":"urgent"}`, expectStatus: http.StatusBadRequest},
		{description: "negative duration", body: `{"est_minutes":-5}`, expectStatus: http.StatusBadRequest},
		{description: "malformed body", body: `{`, expectStatus: http.StatusBadRequest},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			handler, alloc := newHandler(t)
			recorder := call(handler, http.MethodPost, "/api/request", testCase.body)
			require.Equal(t, testCase.expectStatus, recorder.Code, recorder.Body.String())
			if testCase.expectStatus != http.StatusCreated {
				assert.Contains(t, recorder.Body.String(), "message")
				return
			}
			response := map[string]int{}
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
			requests, err := alloc.Requests(context.Background())
			require.NoError(t, err)
			require.Len(t, requests, 1)
			assert.Equal(t, requests[0].ID, response["request_id"])
			assert.Equal(t, testCase.expectName, requests[0].Name)
			assert.Equal(t, testCase.expectPriority, requests[0].Priority)
			assert.Equal(t, testCase.expectEst, requests[0].EstMinutes)
		})
	}
}

func TestHandler_ListingsAndRelease(t *testing.T) {
	ctx := context.Background()
	handler, alloc := newHandler(t)
	require.Equal(t, http.StatusCreated, call(handler, http.MethodPost, "/api/request", `{"name":"Ann","priority":1}`).Code)
	cycle, err := alloc.RunCycle(ctx)
	require.NoError(t, err)
	require.Len(t, cycle.Matches, 1)

	recorder := call(handler, http.MethodGet, "/api/resources", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	var resources []*model.Resource
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resources))
	assert.Len(t, resources, 5)
	assert.Equal(t, model.ResourceStatusInUse, resources[0].Status)

	recorder = call(handler, http.MethodGet, "/api/resources?status=free", "")
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resources))
	assert.Len(t, resources, 4)

	recorder = call(handler, http.MethodGet, "/api/allocations", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	var views []*model.AllocationView
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "Ann", views[0].Name)
	assert.Equal(t, "ICU_BED-1", views[0].ResourceLabel)

	recorder = call(handler, http.MethodPost, "/api/release", `{"allocation_id":`+jsonInt(views[0].ID)+`}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"status":"released"}`, recorder.Body.String())

	recorder = call(handler, http.MethodPost, "/api/release", `{"allocation_id":`+jsonInt(views[0].ID)+`}`)
	assert.Equal(t, http.StatusConflict, recorder.Code)
	recorder = call(handler, http.MethodPost, "/api/release", `{"allocation_id":999}`)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	recorder = call(handler, http.MethodPost, "/api/release", `{}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = call(handler, http.MethodGet, "/api/allocations", "")
	assert.JSONEq(t, `[]`, recorder.Body.String())

	recorder = call(handler, http.MethodGet, "/api/requests", "")
	var requests []*model.Request
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &requests))
	require.Len(t, requests, 1)
	assert.Equal(t, model.RequestStatusCompleted, requests[0].Status)

	recorder = call(handler, http.MethodGet, "/api/occupancy", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	counts := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &counts))
	assert.EqualValues(t, 5, counts["free"])
	assert.EqualValues(t, 1, counts["completed"])
}

func TestHandler_Routing(t *testing.T) {
	handler, _ := newHandler(t)
	assert.Equal(t, http.StatusNotFound, call(handler, http.MethodGet, "/api/unknown", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, call(handler, http.MethodGet, "/api/release", "").Code)

	require.Equal(t, http.StatusCreated, call(handler, http.MethodPost, "/api/request", `{}`).Code)
	recorder := call(handler, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "carealloc_submissions_total 1")
}

func TestStatusOf(t *testing.T) {
	var testCases = []struct {
		description string
		err         error
		expect      int
	}{
		{description: "nil", err: nil, expect: http.StatusOK},
		{description: "validation", err: &allocator.ValidationError{Field: "x", Reason: "y"}, expect: http.StatusBadRequest},
		{description: "not found", err: allocator.ErrAllocationNotFound, expect: http.StatusNotFound},
		{description: "dao not found", err: dao.ErrNotFound, expect: http.StatusNotFound},
		{description: "already released", err: allocator.ErrAlreadyReleased, expect: http.StatusConflict},
		{description: "storage", err: errors.New("disk full"), expect: http.StatusInternalServerError},
	}
	for _, testCase := range testCases {
		assert.Equal(t, testCase.expect, StatusOf(testCase.err), testCase.description)
	}
}

func jsonInt(v int) string {
	data, _ := json.Marshal(v)
	return string(data)
}

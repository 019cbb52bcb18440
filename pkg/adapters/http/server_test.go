package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/tessera/pkg/adapters/memory"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	*memory.Store
}

func (failingStore) List(context.Context) ([]string, error) {
	return nil, errors.New("backend down")
}

func seeded(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domain.NewCheckpoint("novel.b", 3, 1, "TRANSLATE")))
	cp := domain.NewCheckpoint("novel.a", 0, 0, "CLEAN")
	cp.Chunks = []string{"0000abcd", "1111abcd"}
	require.NoError(t, store.Save(ctx, cp))
	return store
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestHealthAndInfo(t *testing.T) {
	h := NewHandler(memory.New())

	w := serve(h, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = serve(h, http.MethodGet, "/info")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"app":"tessera"`)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestListRuns(t *testing.T) {
	w := serve(NewHandler(seeded(t)), http.MethodGet, "/runs")
	require.Equal(t, http.StatusOK, w.Code)

	var runs []RunSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, "novel.a", runs[0].RunKey)
	assert.Equal(t, 2, runs[0].Chunks)
	assert.Equal(t, "novel.b", runs[1].RunKey)
	assert.Equal(t, domain.State("TRANSLATE"), runs[1].State)
	assert.Equal(t, 3, runs[1].Item)
	assert.Equal(t, 1, runs[1].Pipe)
}

func TestListRuns_Empty(t *testing.T) {
	w := serve(NewHandler(memory.New()), http.MethodGet, "/runs")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestListRuns_StoreFailure(t *testing.T) {
	w := serve(NewHandler(failingStore{memory.New()}), http.MethodGet, "/runs")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "backend down")
}

func TestGetAndDeleteRun(t *testing.T) {
	store := seeded(t)
	h := NewHandler(store)

	w := serve(h, http.MethodGet, "/runs/novel.b")
	require.Equal(t, http.StatusOK, w.Code)
	var cp domain.Checkpoint
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cp))
	assert.Equal(t, "novel.b", cp.RunKey)
	assert.Equal(t, 3, cp.Item)

	w = serve(h, http.MethodDelete, "/runs/novel.b")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = serve(h, http.MethodGet, "/runs/novel.b")
	assert.Equal(t, http.StatusNotFound, w.Code)

	keys, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"novel.a"}, keys)
}

func TestMetricsRoute(t *testing.T) {
	w := serve(NewHandler(memory.New()), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, w.Code, "no gatherer, no route")

	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	m.ObserveStore("load", 0, nil)

	w = serve(NewHandler(memory.New(), WithGatherer(reg)), http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "tessera_checkpoint_store_duration_seconds"))
}

package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/filequeue/internal/domain"
	"github.com/shaiso/filequeue/internal/store"
	"github.com/shaiso/filequeue/internal/telemetry"
	"github.com/shaiso/filequeue/internal/worker"
)

const validTxID = "5a5b6c7d8e9f0a1b2c3d4e5f"

type testEnv struct {
	store    *store.Store
	registry *worker.Registry
	handler  *Handler
	server   http.Handler
}

// newTestEnv поднимает Handler с одним endpoint'ом "echo" на паузе,
// чтобы принятые элементы оставались в queue.
func newTestEnv(t *testing.T, ep domain.Endpoint) *testEnv {
	t.Helper()

	st := store.New(t.TempDir())
	registry := worker.NewRegistry(worker.Config{Store: st, Logger: telemetry.Discard()})
	t.Cleanup(func() { registry.Shutdown(context.Background()) })

	_, err := registry.Upsert(ep)
	require.NoError(t, err)

	h := NewHandler(Config{
		Registry: registry,
		Store:    st,
		URN:      "urn:mediator:file-queue3",
		Started:  time.Now().Add(-90 * time.Second),
		Logger:   telemetry.Discard(),
	})
	require.NoError(t, h.Router().Register(ep.Path, h.IngestHandler(ep.Name)))

	return &testEnv{store: st, registry: registry, handler: h, server: h.Routes()}
}

func (e *testEnv) do(method, path, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func pausedEcho() domain.Endpoint {
	return domain.Endpoint{Name: "echo", Path: "/echo", URL: "http://127.0.0.1:1", Paused: true}
}

// --- Router ---

func TestRouter_MatchAndParams(t *testing.T) {
	rt := NewRouter()

	var got string
	require.NoError(t, rt.Register("/patients/:id/history", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.PathValue("id")
	})))

	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/patients/42/history", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", got)

	rec = httptest.NewRecorder()
	rt.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/patients/42", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_Wildcard(t *testing.T) {
	rt := NewRouter()

	var rest string
	require.NoError(t, rt.Register("/files/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest = r.PathValue("*")
	})))

	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/files/a/b/c", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a/b/c", rest)
}

func TestRouter_RegisterIsIdempotent(t *testing.T) {
	rt := NewRouter()

	calls := ""
	require.NoError(t, rt.Register("/echo", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls += "first" })))
	require.NoError(t, rt.Register("/echo", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls += "second" })))

	assert.Equal(t, []string{"/echo"}, rt.Patterns())

	rt.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/echo", nil))
	assert.Equal(t, "second", calls)
}

func TestRouter_Unregister(t *testing.T) {
	rt := NewRouter()
	require.NoError(t, rt.Register("/echo", http.NotFoundHandler()))

	assert.True(t, rt.Unregister("/echo"))
	assert.False(t, rt.Unregister("/echo"))
	assert.Empty(t, rt.Patterns())
}

func TestRouter_InvalidPattern(t *testing.T) {
	rt := NewRouter()

	require.ErrorIs(t, rt.Register("echo", http.NotFoundHandler()), ErrInvalidRoute)
	require.ErrorIs(t, rt.Register("/a/*/b", http.NotFoundHandler()), ErrInvalidRoute)
	require.ErrorIs(t, rt.Register("/a/:", http.NotFoundHandler()), ErrInvalidRoute)
}

// --- Ingestion ---

func TestIngest_Accepted(t *testing.T) {
	env := newTestEnv(t, pausedEcho())

	rec := env.do(http.MethodPost, "/echo", `"This is a test"`, http.Header{
		"Content-Type":             []string{"application/json"},
		domain.TransactionIDHeader: []string{validTxID},
	})

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json+openhim", rec.Header().Get("Content-Type"))

	var resp MediatorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "urn:mediator:file-queue3", resp.URN)
	assert.Equal(t, "Processing", resp.Status)
	assert.Equal(t, http.StatusAccepted, resp.Response.Status)
	assert.Equal(t, "Request added to queue\n", resp.Response.Body)
	_, err := time.Parse(time.RFC3339Nano, resp.Response.Timestamp)
	assert.NoError(t, err)

	filename := validTxID + ".json"
	require.True(t, env.store.Exists("echo", filename, domain.StageQueue))
	data, err := os.ReadFile(filepath.Join(env.store.Dir(domain.StageQueue, "echo"), filename))
	require.NoError(t, err)
	assert.Equal(t, `"This is a test"`, string(data))

	d, _ := env.registry.FindByName("echo")
	assert.Equal(t, 1, d.Status().Pending)
}

func TestIngest_LocalTransactionID(t *testing.T) {
	env := newTestEnv(t, pausedEcho())

	rec := env.do(http.MethodPost, "/echo", "<a/>", http.Header{
		"Content-Type":             []string{"text/xml"},
		domain.TransactionIDHeader: []string{"../../etc/passwd"},
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	names, err := env.store.ListPending("echo")
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.True(t, strings.HasPrefix(names[0], "x"))
	assert.True(t, strings.HasSuffix(names[0], ".xml"))
	assert.False(t, domain.IsValidTransactionID(domain.TransactionIDFromFilename(names[0])))
}

func TestIngest_MetadataRoundTrip(t *testing.T) {
	ep := pausedEcho()
	ep.Path = "/x"
	ep.ForwardMetadata = true
	env := newTestEnv(t, ep)

	rec := env.do(http.MethodPost, "/x?y=1", "body", http.Header{
		"H":                        []string{"v"},
		domain.TransactionIDHeader: []string{validTxID},
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	md, err := env.store.ReadMetadata("echo", validTxID+".txt", domain.StageQueue)
	require.NoError(t, err)
	assert.Equal(t, "POST", md.Method)
	assert.Equal(t, "/x?y=1", md.URL)
	assert.Equal(t, "v", md.Headers["H"])
	assert.Equal(t, validTxID, md.Headers[http.CanonicalHeaderKey(domain.TransactionIDHeader)])

	names, err := env.store.ListPending("echo")
	require.NoError(t, err)
	assert.Equal(t, []string{validTxID + ".txt"}, names)
}

func TestIngest_UnknownPath(t *testing.T) {
	env := newTestEnv(t, pausedEcho())

	rec := env.do(http.MethodPost, "/nowhere", "x", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestIngest_BodyFailure(t *testing.T) {
	env := newTestEnv(t, pausedEcho())

	req := httptest.NewRequest(http.MethodPost, "/echo", failingReader{})
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	names, err := env.store.ListPending("echo")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestIngest_BodyFailureRemovesMetadata(t *testing.T) {
	ep := pausedEcho()
	ep.ForwardMetadata = true
	env := newTestEnv(t, ep)

	req := httptest.NewRequest(http.MethodPost, "/echo", failingReader{})
	req.Header.Set(domain.TransactionIDHeader, validTxID)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	entries, err := os.ReadDir(env.store.Dir(domain.StageQueue, "echo"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// --- Workers ---

func TestSetWorkerPaused(t *testing.T) {
	ep := pausedEcho()
	ep.Paused = false
	env := newTestEnv(t, ep)
	d, _ := env.registry.FindByName("echo")

	rec := env.do(http.MethodPut, "/workers/echo", `{"paused": true}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Worker paused", rec.Body.String())
	assert.True(t, d.Snapshot().Paused)

	rec = env.do(http.MethodPut, "/workers/echo", `{"paused": false}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Worker resumed", rec.Body.String())
	assert.False(t, d.Snapshot().Paused)
}

func TestSetWorkerPaused_BadRequest(t *testing.T) {
	env := newTestEnv(t, pausedEcho())

	for _, body := range []string{`{}`, `{"paused": "yes"}`, `not json`, `{"paused": 1}`} {
		rec := env.do(http.MethodPut, "/workers/echo", body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "Missing or invalid property: paused", rec.Body.String())
	}
}

func TestSetWorkerPaused_UnknownWorker(t *testing.T) {
	env := newTestEnv(t, pausedEcho())

	rec := env.do(http.MethodPut, "/workers/missing", `{"paused": true}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ErrCodeWorkerNotFound, resp.Error.Code)
	assert.Equal(t, "worker not found: missing", resp.Error.Message)
}

func TestRepopulateWorker(t *testing.T) {
	env := newTestEnv(t, pausedEcho())

	_, err := env.store.Enqueue("echo", "dropped.txt", strings.NewReader("x"))
	require.NoError(t, err)

	rec := env.do(http.MethodPost, "/workers/echo/repopulate", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Worker repopulated", rec.Body.String())

	d, _ := env.registry.FindByName("echo")
	assert.Equal(t, 1, d.Status().Pending)
}

func TestListAndGetWorkers(t *testing.T) {
	env := newTestEnv(t, pausedEcho())

	rec := env.do(http.MethodGet, "/workers", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Data  []worker.Status `json:"data"`
		Total int             `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "echo", list.Data[0].Name)
	assert.True(t, list.Data[0].Paused)

	rec = env.do(http.MethodGet, "/workers/echo", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var one struct {
		Data worker.Status `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &one))
	assert.Equal(t, "http://127.0.0.1:1", one.Data.URL)

	rec = env.do(http.MethodGet, "/workers/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHeartbeat(t *testing.T) {
	env := newTestEnv(t, pausedEcho())

	rec := env.do(http.MethodGet, "/heartbeat", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HeartbeatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.GreaterOrEqual(t, resp.Uptime, float64(90))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, pausedEcho())

	rec := env.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRecovery(t *testing.T) {
	handler := Recovery(telemetry.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

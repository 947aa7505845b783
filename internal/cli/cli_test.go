package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/filequeue/internal/mq"
)

// fakeServer повторяет ответы управляющих маршрутов mediator'а.
func fakeServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()

	var calls []string
	workers := []WorkerResponse{
		{Name: "a", Path: "/a", URL: "http://u/a", Parallel: 3, Pending: 2, Active: 1},
		{Name: "b", Path: "/b", URL: "http://u/b", Paused: true},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /workers", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": workers, "total": len(workers)})
	})
	mux.HandleFunc("GET /workers/{name}", func(w http.ResponseWriter, r *http.Request) {
		for _, wk := range workers {
			if wk.Name == r.PathValue("name") {
				json.NewEncoder(w).Encode(map[string]any{"data": wk})
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"code": "WORKER_NOT_FOUND", "message": "worker not found: missing"}})
	})
	mux.HandleFunc("PUT /workers/{name}", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, "PUT "+r.PathValue("name")+" "+string(body))

		var req map[string]any
		json.Unmarshal(body, &req)
		paused, ok := req["paused"].(bool)
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, "Missing or invalid property: paused")
			return
		}
		if paused {
			io.WriteString(w, "Worker paused")
			return
		}
		io.WriteString(w, "Worker resumed")
	})
	mux.HandleFunc("POST /workers/{name}/repopulate", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "POST "+r.PathValue("name")+" repopulate")
		io.WriteString(w, "Worker repopulated")
	})
	mux.HandleFunc("GET /heartbeat", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(HeartbeatResponse{Uptime: 3725.4})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

// run выполняет команду и возвращает stdout и stderr.
func run(t *testing.T, baseURL string, jsonMode bool, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	clientFn := func() *Client { return NewClient(baseURL) }
	outputFn := func() *Output { return &Output{jsonMode: jsonMode, w: &stdout, errW: &stderr} }

	root := &cobra.Command{Use: "filequeue", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(
		NewWorkersCmd(clientFn, outputFn),
		NewHeartbeatCmd(clientFn, outputFn),
	)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestClient_ListAndGet(t *testing.T) {
	srv, _ := fakeServer(t)
	c := NewClient(srv.URL + "/")

	workers, err := c.ListWorkers()
	require.NoError(t, err)
	require.Len(t, workers, 2)
	assert.Equal(t, "a", workers[0].Name)
	assert.Equal(t, 2, workers[0].Pending)
	assert.True(t, workers[1].Paused)

	w, err := c.GetWorker("b")
	require.NoError(t, err)
	assert.Equal(t, "/b", w.Path)

	_, err = c.GetWorker("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WORKER_NOT_FOUND: worker not found: missing")
}

func TestClient_TextErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, "Missing or invalid property: paused\n")
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).SetPaused("a", true)
	require.Error(t, err)
	assert.Equal(t, "API error: HTTP 400: Missing or invalid property: paused", err.Error())
}

func TestWorkersList_Table(t *testing.T) {
	srv, _ := fakeServer(t)

	stdout, _, err := run(t, srv.URL, false, "workers", "list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.Contains(t, lines[2], "http://u/a")
	assert.Contains(t, lines[3], "default")
}

func TestWorkersGet_JSON(t *testing.T) {
	srv, _ := fakeServer(t)

	stdout, _, err := run(t, srv.URL, true, "workers", "get", "a")
	require.NoError(t, err)

	var w WorkerResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &w))
	assert.Equal(t, "a", w.Name)
	assert.Equal(t, 3, w.Parallel)
}

func TestWorkersGet_Details(t *testing.T) {
	srv, _ := fakeServer(t)

	stdout, _, err := run(t, srv.URL, false, "workers", "get", "b")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, len(workerHeaders))
	assert.True(t, strings.HasPrefix(lines[0], "NAME:"))
	assert.Contains(t, lines[0], " b")
	assert.Contains(t, lines[3], "true")
	assert.Contains(t, lines[4], "default")
}

func TestOutput_Success_TrimsServerText(t *testing.T) {
	var stderr bytes.Buffer
	out := &Output{w: io.Discard, errW: &stderr}

	out.Success("Worker paused\n")
	out.Error("boom")
	assert.Equal(t, "Worker paused\nError: boom\n", stderr.String())
}

func TestWorkersPauseResume(t *testing.T) {
	srv, calls := fakeServer(t)

	_, stderr, err := run(t, srv.URL, false, "workers", "pause", "a")
	require.NoError(t, err)
	assert.Equal(t, "Worker paused\n", stderr)

	_, stderr, err = run(t, srv.URL, false, "workers", "resume", "a")
	require.NoError(t, err)
	assert.Equal(t, "Worker resumed\n", stderr)

	assert.Equal(t, []string{
		`PUT a {"paused":true}`,
		`PUT a {"paused":false}`,
	}, *calls)
}

func TestWorkersRepopulate(t *testing.T) {
	srv, calls := fakeServer(t)

	_, stderr, err := run(t, srv.URL, false, "workers", "repopulate", "b")
	require.NoError(t, err)
	assert.Equal(t, "Worker repopulated\n", stderr)
	assert.Equal(t, []string{"POST b repopulate"}, *calls)
}

func TestWorkers_RequiresName(t *testing.T) {
	srv, _ := fakeServer(t)

	_, _, err := run(t, srv.URL, false, "workers", "pause")
	require.Error(t, err)
}

func TestHeartbeat(t *testing.T) {
	srv, _ := fakeServer(t)

	stdout, _, err := run(t, srv.URL, false, "heartbeat")
	require.NoError(t, err)
	assert.Contains(t, stdout, "1h2m5s")
}

func TestEventPrinter(t *testing.T) {
	var stdout bytes.Buffer
	out := &Output{w: &stdout, errW: io.Discard}

	msg := &mq.Message{
		ID:        "id-1",
		Type:      mq.MessageTypeItemFailed,
		Timestamp: time.Date(2024, 5, 1, 10, 20, 30, 0, time.UTC),
		Payload: mq.ItemEventPayload{
			Endpoint:   "a",
			File:       "5a5b6c7d8e9f0a1b2c3d4e5f.json",
			StatusCode: 500,
			Error:      "upstream returned 500",
		},
	}

	require.NoError(t, eventPrinter(out)(t.Context(), msg))
	assert.Equal(t,
		"10:20:30.000  item.failed     a  5a5b6c7d8e9f0a1b2c3d4e5f.json  500  upstream returned 500\n",
		stdout.String(),
	)
}

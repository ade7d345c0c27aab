// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	log "github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	fhestring "github.com/luxfi/fhestring"
	"github.com/luxfi/fhestring/internal/queue"
	"github.com/luxfi/fhestring/internal/storage"
)

type testServer struct {
	srv *Server
	ck  *fhestring.ClientKey
	q   *queue.MemoryQueue
	ts  *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	params, err := fhestring.NewParametersFromLiteral(fhestring.PN10QP27)
	require.NoError(t, err)
	kg := fhestring.NewKeyGenerator(params)
	ck := fhestring.NewClientKey(params, kg.GenSecretKey())

	store := storage.NewMemoryStorage(0)
	q := queue.NewMemoryQueue(16)
	srv := New(log.NoLog{}, store, q, fhestring.NewServerKey(params, nil))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		q.Close()
		store.Close()
	})
	return &testServer{srv: srv, ck: ck, q: q, ts: ts}
}

func (e *testServer) postJSON(t *testing.T, path string, body any) (int, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.ts.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

// encode stores value through the development encoding endpoint and
// returns the blob handle.
func (e *testServer) encode(t *testing.T, value string, padding int) string {
	t.Helper()
	code, out := e.postJSON(t, "/v1/strings", map[string]any{"value": value, "padding": padding})
	require.Equal(t, http.StatusCreated, code)
	handle, _ := out["handle"].(string)
	require.NotEmpty(t, handle)
	return handle
}

func (e *testServer) fetchBlob(t *testing.T, handle string) []byte {
	t.Helper()
	resp, err := http.Get(e.ts.URL + "/v1/blobs/" + handle)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return data
}

func (e *testServer) decryptString(t *testing.T, handle string) string {
	t.Helper()
	var fs fhestring.FheString
	require.NoError(t, fs.UnmarshalBinary(e.fetchBlob(t, handle)))
	out, err := e.ck.DecryptToString(&fs)
	require.NoError(t, err)
	return out
}

func (e *testServer) decryptCiphertext(t *testing.T, handle string) *fhestring.Ciphertext {
	t.Helper()
	var c fhestring.Ciphertext
	require.NoError(t, c.UnmarshalBinary(e.fetchBlob(t, handle)))
	return &c
}

// submitAndWait submits a job, runs a single worker until the job
// leaves the queue, and returns its final state.
func (e *testServer) submitAndWait(t *testing.T, req map[string]any) *queue.Job {
	t.Helper()
	code, out := e.postJSON(t, "/v1/jobs", req)
	require.Equal(t, http.StatusAccepted, code)
	id, _ := out["id"].(string)
	require.NotEmpty(t, id)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.srv.RunWorkers(ctx, 1)
		close(done)
	}()

	deadline := time.Now().Add(10 * time.Second)
	var job *queue.Job
	for time.Now().Before(deadline) {
		var err error
		job, err = e.q.Get(ctx, id)
		require.NoError(t, err)
		if job.Status == queue.StatusDone || job.Status == queue.StatusFailed {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	require.NotNil(t, job)
	require.Contains(t, []queue.JobStatus{queue.StatusDone, queue.StatusFailed}, job.Status)
	return job
}

func TestHealth(t *testing.T) {
	e := newTestServer(t)
	resp, err := http.Get(e.ts.URL + "/v1/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEncodeStringRoundTrip(t *testing.T) {
	e := newTestServer(t)
	handle := e.encode(t, "hello world", 2)
	require.Equal(t, "hello world", e.decryptString(t, handle))
}

func TestStoreBlob(t *testing.T) {
	e := newTestServer(t)
	resp, err := http.Post(e.ts.URL+"/v1/blobs", "application/octet-stream",
		bytes.NewReader([]byte("raw ciphertext bytes")))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, []byte("raw ciphertext bytes"), e.fetchBlob(t, out["handle"]))
}

func TestBlobNotFound(t *testing.T) {
	e := newTestServer(t)
	resp, err := http.Get(e.ts.URL + "/v1/blobs/" + string(storage.ComputeHandle([]byte("nope"))))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSubmitJobValidation(t *testing.T) {
	e := newTestServer(t)
	s := e.encode(t, "abc", 0)

	for name, req := range map[string]map[string]any{
		"unknown op":      {"op": "frobnicate", "string": s},
		"missing string":  {"op": "upper"},
		"missing pattern": {"op": "contains", "string": s},
		"bad handle":      {"op": "upper", "string": "deadbeef"},
		"negative n":      {"op": "repeat", "string": s, "n": -1},
	} {
		code, out := e.postJSON(t, "/v1/jobs", req)
		if code != http.StatusBadRequest {
			t.Errorf("%s: got status %d, want 400 (%v)", name, code, out)
		}
	}
}

func TestJobNotFound(t *testing.T) {
	e := newTestServer(t)
	resp, err := http.Get(e.ts.URL + "/v1/jobs/no-such-job")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestJobTrim(t *testing.T) {
	e := newTestServer(t)
	s := e.encode(t, "  hello  ", 2)

	job := e.submitAndWait(t, map[string]any{"op": "trim", "string": s})
	require.Equal(t, queue.StatusDone, job.Status, job.Error)
	require.Len(t, job.Results, 1)
	require.Equal(t, "hello", e.decryptString(t, job.Results[0]))
}

func TestJobContains(t *testing.T) {
	e := newTestServer(t)
	s := e.encode(t, "encrypted haystack", 2)

	for pat, want := range map[string]bool{"hay": true, "needle": false} {
		p := e.encode(t, pat, 0)
		job := e.submitAndWait(t, map[string]any{"op": "contains", "string": s, "pattern": p})
		require.Equal(t, queue.StatusDone, job.Status, job.Error)
		require.NotEmpty(t, job.Found)
		got := e.ck.DecryptBool(e.decryptCiphertext(t, job.Found))
		require.Equal(t, want, got, "contains(%q)", pat)
	}
}

func TestJobFind(t *testing.T) {
	e := newTestServer(t)
	s := e.encode(t, "a:b:c", 0)
	p := e.encode(t, ":", 0)

	job := e.submitAndWait(t, map[string]any{"op": "find", "string": s, "pattern": p})
	require.Equal(t, queue.StatusDone, job.Status, job.Error)
	require.True(t, e.ck.DecryptBool(e.decryptCiphertext(t, job.Found)))
	require.Equal(t, uint64(1), e.ck.DecryptUint64(e.decryptCiphertext(t, job.Count)))
}

func TestJobSplit(t *testing.T) {
	e := newTestServer(t)
	s := e.encode(t, "a:b:c", 0)
	p := e.encode(t, ":", 0)

	job := e.submitAndWait(t, map[string]any{"op": "split", "string": s, "pattern": p})
	require.Equal(t, queue.StatusDone, job.Status, job.Error)
	require.Equal(t, uint64(3), e.ck.DecryptUint64(e.decryptCiphertext(t, job.Count)))

	want := []string{"a", "b", "c"}
	require.GreaterOrEqual(t, len(job.Results), len(want))
	for i, w := range want {
		require.Equal(t, w, e.decryptString(t, job.Results[i]))
	}
}

func TestJobReplaceN(t *testing.T) {
	e := newTestServer(t)
	s := e.encode(t, "a:bc:d:ef", 0)
	from := e.encode(t, ":", 0)
	to := e.encode(t, "|", 0)

	job := e.submitAndWait(t, map[string]any{
		"op": "replacen", "string": s, "pattern": from, "pattern_to": to, "n": 2,
	})
	require.Equal(t, queue.StatusDone, job.Status, job.Error)
	require.Len(t, job.Results, 1)
	require.Equal(t, "a|bc|d:ef", e.decryptString(t, job.Results[0]))
}

func TestExecuteUnknownOp(t *testing.T) {
	e := newTestServer(t)
	s := e.encode(t, "abc", 0)
	job := &queue.Job{ID: "j", Op: "bogus", String: s}
	err := e.srv.Execute(context.Background(), job)
	require.Error(t, err)
}

func TestParseOp(t *testing.T) {
	for _, name := range OperationNames() {
		got, err := ParseOp(name)
		require.NoError(t, err)
		require.Equal(t, name, got)
	}
	_, err := ParseOp("nonsense")
	require.Error(t, err)

	got, err := ParseOp("SPLIT")
	require.NoError(t, err)
	require.Equal(t, "split", got)
}

func TestWorkerRecordsFailure(t *testing.T) {
	e := newTestServer(t)
	s := e.encode(t, "abc", 0)

	// Bypass submit-time validation with a pattern handle that does
	// not resolve, so execution fails inside the worker.
	job := &queue.Job{
		ID:      "failing",
		Op:      "contains",
		String:  s,
		Pattern: fmt.Sprintf("%064x", 0),
	}
	require.NoError(t, e.q.Push(context.Background(), job))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.srv.RunWorkers(ctx, 1)
		close(done)
	}()

	deadline := time.Now().Add(5 * time.Second)
	var got *queue.Job
	for time.Now().Before(deadline) {
		var err error
		got, err = e.q.Get(ctx, "failing")
		require.NoError(t, err)
		if got.Status == queue.StatusFailed {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	require.Equal(t, queue.StatusFailed, got.Status)
	require.NotEmpty(t, got.Error)
}

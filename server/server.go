// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package server exposes the encrypted string engine as an HTTP job
// service. Clients upload serialized encrypted strings as blobs,
// submit jobs naming an operation and its operand handles, and poll
// for results. Execution is asynchronous: jobs flow through a queue
// and are picked up by a worker pool, which may run inside this
// process or in separate worker binaries sharing the queue.
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/luxfi/log"

	fhestring "github.com/luxfi/fhestring"
	"github.com/luxfi/fhestring/internal/queue"
	"github.com/luxfi/fhestring/internal/storage"
)

// maxBlobSize bounds uploaded blob bodies.
const maxBlobSize = 64 << 20

// Operand requirement masks per operation.
const (
	needPattern = 1 << iota
	needPatternTo
	needN
)

// operations maps wire names to their operand requirements. The wire
// name is what clients put in the job's "op" field.
var operations = map[string]int{
	"eq":             needPattern,
	"ne":             needPattern,
	"lt":             needPattern,
	"le":             needPattern,
	"gt":             needPattern,
	"ge":             needPattern,
	"eq_ignore_case": needPattern,

	"lower": 0,
	"upper": 0,

	"contains":    needPattern,
	"starts_with": needPattern,
	"ends_with":   needPattern,
	"find":        needPattern,
	"rfind":       needPattern,

	"trim":          0,
	"trim_start":    0,
	"trim_end":      0,
	"strip_prefix":  needPattern,
	"strip_suffix":  needPattern,
	"make_reusable": 0,

	"split":             needPattern,
	"rsplit":            needPattern,
	"split_inclusive":   needPattern,
	"split_terminator":  needPattern,
	"rsplit_terminator": needPattern,
	"split_whitespace":  0,
	"splitn":            needPattern | needN,
	"rsplitn":           needPattern | needN,
	"split_once":        needPattern,
	"rsplit_once":       needPattern,

	"replace":  needPattern | needPatternTo,
	"replacen": needPattern | needPatternTo | needN,

	"concat": needPattern,
	"repeat": needN,
}

// Server wires storage, the job queue and the engine together behind
// an HTTP API.
type Server struct {
	log   log.Logger
	store storage.Storage
	queue queue.Queue
	sk    *fhestring.ServerKey

	jobsDone   atomic.Uint64
	jobsFailed atomic.Uint64
}

// New returns a server executing jobs with sk. The same Server value
// serves HTTP and runs workers; deployments that split the two only
// use the side they need.
func New(logger log.Logger, store storage.Storage, q queue.Queue, sk *fhestring.ServerKey) *Server {
	return &Server{log: logger, store: store, queue: q, sk: sk}
}

// Handler returns the HTTP API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/strings", s.handleEncodeString)
	mux.HandleFunc("POST /v1/blobs", s.handleStoreBlob)
	mux.HandleFunc("GET /v1/blobs/{handle}", s.handleGetBlob)
	mux.HandleFunc("POST /v1/jobs", s.handleSubmitJob)
	mux.HandleFunc("GET /v1/jobs/{id}", s.handleGetJob)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type encodeStringRequest struct {
	Value   string `json:"value"`
	Padding int    `json:"padding"`
}

// handleEncodeString trivially encodes a clear string server side and
// stores it. This is the development path; production clients encrypt
// locally and upload the blob via POST /v1/blobs.
func (s *Server) handleEncodeString(w http.ResponseWriter, r *http.Request) {
	var req encodeStringRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Padding < 0 {
		writeError(w, http.StatusBadRequest, errors.New("padding must be non-negative"))
		return
	}

	fs, err := fhestring.NewFheString(req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	enc, err := fs.TrivialEncrypt(req.Padding)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	data, err := enc.MarshalBinary()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	handle, err := s.store.Store(r.Context(), data)
	if err != nil {
		writeError(w, http.StatusInsufficientStorage, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"handle": string(handle)})
}

func (s *Server) handleStoreBlob(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBlobSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return
	}
	handle, err := s.store.Store(r.Context(), data)
	if err != nil {
		writeError(w, http.StatusInsufficientStorage, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"handle": string(handle)})
}

func (s *Server) handleGetBlob(w http.ResponseWriter, r *http.Request) {
	handle := storage.Handle(r.PathValue("handle"))
	data, err := s.store.Load(r.Context(), handle)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidHandle) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

type submitJobRequest struct {
	Op        string `json:"op"`
	String    string `json:"string"`
	Pattern   string `json:"pattern,omitempty"`
	PatternTo string `json:"pattern_to,omitempty"`
	N         int    `json:"n,omitempty"`
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	need, ok := operations[req.Op]
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown operation %q", req.Op))
		return
	}
	if err := s.checkOperands(r.Context(), &req, need); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	id, err := newJobID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	job := &queue.Job{
		ID:        id,
		Op:        req.Op,
		String:    req.String,
		Pattern:   req.Pattern,
		PatternTo: req.PatternTo,
		N:         req.N,
	}
	if err := s.queue.Push(r.Context(), job); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.log.Debug("job accepted", log.String("id", job.ID), log.String("op", job.Op))
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) checkOperands(ctx context.Context, req *submitJobRequest, need int) error {
	check := func(name, handle string, required bool) error {
		if handle == "" {
			if required {
				return fmt.Errorf("operation %q requires operand %q", req.Op, name)
			}
			return nil
		}
		ok, err := s.store.Exists(ctx, storage.Handle(handle))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("operand %q: no blob for handle %s", name, handle)
		}
		return nil
	}
	if err := check("string", req.String, true); err != nil {
		return err
	}
	if err := check("pattern", req.Pattern, need&needPattern != 0); err != nil {
		return err
	}
	if err := check("pattern_to", req.PatternTo, need&needPatternTo != 0); err != nil {
		return err
	}
	if need&needN != 0 && req.N < 0 {
		return fmt.Errorf("operation %q requires n >= 0", req.Op)
	}
	return nil
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.queue.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, queue.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func newJobID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}

// RunWorkers runs n worker goroutines consuming the queue until ctx is
// cancelled or the queue is closed. It blocks until all workers have
// stopped.
func (s *Server) RunWorkers(ctx context.Context, n int) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job, err := s.queue.Pop(ctx)
				if err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, queue.ErrQueueClosed) {
						return
					}
					s.log.Warn("pop job", log.Err(err))
					continue
				}
				s.runJob(ctx, job)
			}
		}()
	}
	wg.Wait()
}

func (s *Server) runJob(ctx context.Context, job *queue.Job) {
	start := time.Now()

	job.Status = queue.StatusRunning
	if err := s.queue.Update(ctx, job); err != nil {
		s.log.Warn("mark job running", log.String("id", job.ID), log.Err(err))
	}

	if err := s.Execute(ctx, job); err != nil {
		s.jobsFailed.Add(1)
		job.Status = queue.StatusFailed
		job.Error = err.Error()
		s.log.Error("job failed",
			log.String("id", job.ID),
			log.String("op", job.Op),
			log.Err(err))
	} else {
		s.jobsDone.Add(1)
		job.Status = queue.StatusDone
		s.log.Info("job done",
			log.String("id", job.ID),
			log.String("op", job.Op),
			log.Duration("elapsed", time.Since(start)))
	}
	if err := s.queue.Update(ctx, job); err != nil {
		s.log.Error("record job result", log.String("id", job.ID), log.Err(err))
	}
}

// Execute runs a job against the engine, storing result blobs and
// filling the job's result fields. It does not touch the job status;
// callers own the status transitions.
func (s *Server) Execute(ctx context.Context, job *queue.Job) error {
	str, err := s.loadString(ctx, job.String)
	if err != nil {
		return fmt.Errorf("load string operand: %w", err)
	}
	var pat, to *fhestring.FheString
	if job.Pattern != "" {
		if pat, err = s.loadString(ctx, job.Pattern); err != nil {
			return fmt.Errorf("load pattern operand: %w", err)
		}
	}
	if job.PatternTo != "" {
		if to, err = s.loadString(ctx, job.PatternTo); err != nil {
			return fmt.Errorf("load replacement operand: %w", err)
		}
	}

	switch job.Op {
	case "eq", "ne", "lt", "le", "gt", "ge", "eq_ignore_case",
		"contains", "starts_with", "ends_with":
		var found *fhestring.Ciphertext
		switch job.Op {
		case "eq":
			found, err = s.sk.Eq(str, pat)
		case "ne":
			found, err = s.sk.Ne(str, pat)
		case "lt":
			found, err = s.sk.Lt(str, pat)
		case "le":
			found, err = s.sk.Le(str, pat)
		case "gt":
			found, err = s.sk.Gt(str, pat)
		case "ge":
			found, err = s.sk.Ge(str, pat)
		case "eq_ignore_case":
			found, err = s.sk.EqIgnoreCase(str, pat)
		case "contains":
			found, err = s.sk.Contains(str, pat)
		case "starts_with":
			found, err = s.sk.StartsWith(str, pat)
		case "ends_with":
			found, err = s.sk.EndsWith(str, pat)
		}
		if err != nil {
			return err
		}
		job.Found, err = s.storeCiphertext(ctx, found)
		return err

	case "find", "rfind":
		var index, found *fhestring.Ciphertext
		if job.Op == "find" {
			index, found, err = s.sk.Find(str, pat)
		} else {
			index, found, err = s.sk.RFind(str, pat)
		}
		if err != nil {
			return err
		}
		if job.Count, err = s.storeCiphertext(ctx, index); err != nil {
			return err
		}
		job.Found, err = s.storeCiphertext(ctx, found)
		return err

	case "lower", "upper", "trim", "trim_start", "trim_end",
		"make_reusable", "repeat", "concat", "replace", "replacen":
		var out *fhestring.FheString
		switch job.Op {
		case "lower":
			out, err = s.sk.ToLowerCase(str)
		case "upper":
			out, err = s.sk.ToUpperCase(str)
		case "trim":
			out, err = s.sk.Trim(str)
		case "trim_start":
			out, err = s.sk.TrimStart(str)
		case "trim_end":
			out, err = s.sk.TrimEnd(str)
		case "make_reusable":
			out, err = s.sk.MakeReusable(str)
		case "repeat":
			out, err = s.sk.Repeat(str, job.N)
		case "concat":
			out, err = s.sk.Concatenate(str, pat)
		case "replace":
			out, err = s.sk.Replace(str, pat, to)
		case "replacen":
			out, err = s.sk.ReplaceN(str, pat, to, job.N)
		}
		if err != nil {
			return err
		}
		h, err := s.storeString(ctx, out)
		if err != nil {
			return err
		}
		job.Results = []string{h}
		return nil

	case "strip_prefix", "strip_suffix":
		var out *fhestring.FheString
		var found *fhestring.Ciphertext
		if job.Op == "strip_prefix" {
			out, found, err = s.sk.StripPrefix(str, pat)
		} else {
			out, found, err = s.sk.StripSuffix(str, pat)
		}
		if err != nil {
			return err
		}
		h, err := s.storeString(ctx, out)
		if err != nil {
			return err
		}
		job.Results = []string{h}
		job.Found, err = s.storeCiphertext(ctx, found)
		return err

	case "split", "rsplit", "split_inclusive", "split_terminator",
		"rsplit_terminator", "split_whitespace", "splitn", "rsplitn":
		var res *fhestring.SplitResult
		switch job.Op {
		case "split":
			res, err = s.sk.Split(str, pat)
		case "rsplit":
			res, err = s.sk.RSplit(str, pat)
		case "split_inclusive":
			res, err = s.sk.SplitInclusive(str, pat)
		case "split_terminator":
			res, err = s.sk.SplitTerminator(str, pat)
		case "rsplit_terminator":
			res, err = s.sk.RSplitTerminator(str, pat)
		case "split_whitespace":
			res, err = s.sk.SplitASCIIWhitespace(str)
		case "splitn":
			res, err = s.sk.SplitN(job.N, str, pat)
		case "rsplitn":
			res, err = s.sk.RSplitN(job.N, str, pat)
		}
		if err != nil {
			return err
		}
		job.Results = make([]string, len(res.Fields))
		for i, f := range res.Fields {
			if job.Results[i], err = s.storeString(ctx, f); err != nil {
				return err
			}
		}
		job.Count, err = s.storeCiphertext(ctx, res.Count)
		return err

	case "split_once", "rsplit_once":
		var parts []*fhestring.FheString
		var found *fhestring.Ciphertext
		if job.Op == "split_once" {
			parts, found, err = s.sk.SplitOnce(str, pat)
		} else {
			parts, found, err = s.sk.RSplitOnce(str, pat)
		}
		if err != nil {
			return err
		}
		job.Results = make([]string, len(parts))
		for i, p := range parts {
			if job.Results[i], err = s.storeString(ctx, p); err != nil {
				return err
			}
		}
		job.Found, err = s.storeCiphertext(ctx, found)
		return err

	default:
		return fmt.Errorf("unknown operation %q", job.Op)
	}
}

func (s *Server) loadString(ctx context.Context, handle string) (*fhestring.FheString, error) {
	data, err := s.store.Load(ctx, storage.Handle(handle))
	if err != nil {
		return nil, err
	}
	var fs fhestring.FheString
	if err := fs.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", handle, err)
	}
	return &fs, nil
}

func (s *Server) storeString(ctx context.Context, fs *fhestring.FheString) (string, error) {
	data, err := fs.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	h, err := s.store.Store(ctx, data)
	return string(h), err
}

func (s *Server) storeCiphertext(ctx context.Context, c *fhestring.Ciphertext) (string, error) {
	data, err := c.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	h, err := s.store.Store(ctx, data)
	return string(h), err
}

// Stats reports how many jobs this server's workers have completed
// and failed since start.
func (s *Server) Stats() (done, failed uint64) {
	return s.jobsDone.Load(), s.jobsFailed.Load()
}

// OperationNames returns the wire names of all supported operations,
// for CLI help and validation.
func OperationNames() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	return names
}

// ParseOp validates an operation wire name.
func ParseOp(name string) (string, error) {
	name = strings.ToLower(name)
	if _, ok := operations[name]; !ok {
		return "", fmt.Errorf("unknown operation %q", name)
	}
	return name, nil
}

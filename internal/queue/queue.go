// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package queue provides the job queue for encrypted string operations.
// A job names an operation by its wire name ("eq", "contains", "split",
// "replacen", ...) and carries blob handles for its encrypted operands;
// public scalars such as the count for splitn or repeat travel in clear
// on the job itself.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Common errors.
var (
	ErrQueueEmpty  = errors.New("queue is empty")
	ErrJobNotFound = errors.New("job not found")
	ErrQueueClosed = errors.New("queue closed")
)

// JobStatus represents the state of a job.
type JobStatus string

const (
	StatusPending JobStatus = "pending"
	StatusRunning JobStatus = "running"
	StatusDone    JobStatus = "done"
	StatusFailed  JobStatus = "failed"
)

// Job is one encrypted string operation request. Operand handles refer
// to blobs in storage; which handles are required depends on Op. The
// result fields are filled in by the worker on completion.
type Job struct {
	ID string    `json:"id"`
	Op string    `json:"op"`

	// Operands.
	String    string `json:"string"`
	Pattern   string `json:"pattern,omitempty"`
	PatternTo string `json:"pattern_to,omitempty"`
	N         int    `json:"n,omitempty"`

	// Results.
	Results []string `json:"results,omitempty"`
	Count   string   `json:"count,omitempty"`
	Found   string   `json:"found,omitempty"`

	Status    JobStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Queue defines the job queue operations shared by the server and the
// worker pool.
type Queue interface {
	// Push enqueues a job as pending.
	Push(ctx context.Context, job *Job) error
	// Pop blocks until a job is available and removes it.
	Pop(ctx context.Context) (*Job, error)
	// Update persists a job's current state.
	Update(ctx context.Context, job *Job) error
	// Get retrieves a job by ID.
	Get(ctx context.Context, id string) (*Job, error)
	// Close closes the queue.
	Close() error
}

// jobTTL bounds how long completed job records are retained in Redis.
const jobTTL = 24 * time.Hour

// RedisQueue implements Queue on Redis, for deployments where the
// server and the workers are separate processes.
type RedisQueue struct {
	client    *redis.Client
	queueKey  string
	jobPrefix string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisQueue connects to Redis and returns a queue named queueName.
func NewRedisQueue(cfg RedisConfig, queueName string) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisQueue{
		client:    client,
		queueKey:  "fhestr:queue:" + queueName,
		jobPrefix: "fhestr:job:",
	}, nil
}

func (q *RedisQueue) Push(ctx context.Context, job *Job) error {
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	job.Status = StatusPending

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	pipe := q.client.Pipeline()
	pipe.Set(ctx, q.jobPrefix+job.ID, data, jobTTL)
	pipe.LPush(ctx, q.queueKey, job.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

func (q *RedisQueue) Pop(ctx context.Context) (*Job, error) {
	result, err := q.client.BRPop(ctx, 0, q.queueKey).Result()
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("pop job: %w", err)
	}
	if len(result) < 2 {
		return nil, ErrQueueEmpty
	}
	return q.Get(ctx, result[1])
}

func (q *RedisQueue) Update(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.Set(ctx, q.jobPrefix+job.ID, data, jobTTL).Err(); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

func (q *RedisQueue) Get(ctx context.Context, id string) (*Job, error) {
	data, err := q.client.Get(ctx, q.jobPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// MemoryQueue implements Queue in process, for tests and for running
// the workers inside the server binary without Redis.
type MemoryQueue struct {
	mu     sync.Mutex
	jobs   map[string]*Job
	ready  chan string
	closed bool
}

// NewMemoryQueue returns an in-process queue holding up to size
// pending jobs before Push blocks.
func NewMemoryQueue(size int) *MemoryQueue {
	return &MemoryQueue{
		jobs:  make(map[string]*Job),
		ready: make(chan string, size),
	}
}

func (q *MemoryQueue) put(job *Job) {
	cp := *job
	cp.Results = append([]string(nil), job.Results...)
	q.jobs[job.ID] = &cp
}

func (q *MemoryQueue) Push(ctx context.Context, job *Job) error {
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	job.Status = StatusPending

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.put(job)
	q.mu.Unlock()

	select {
	case q.ready <- job.ID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Pop(ctx context.Context) (*Job, error) {
	select {
	case id, ok := <-q.ready:
		if !ok {
			return nil, ErrQueueClosed
		}
		return q.Get(ctx, id)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) Update(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now()

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	if _, ok := q.jobs[job.ID]; !ok {
		return ErrJobNotFound
	}
	q.put(job)
	return nil
}

func (q *MemoryQueue) Get(ctx context.Context, id string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	cp := *job
	cp.Results = append([]string(nil), job.Results...)
	return &cp, nil
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ready)
	}
	return nil
}

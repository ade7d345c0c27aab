// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Command fhestring-worker consumes encrypted string jobs from a
// shared Redis queue. Several workers may run against the same queue
// and blob directory; each job is claimed by exactly one.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	log "github.com/luxfi/log"
	"github.com/luxfi/log/level"

	fhestring "github.com/luxfi/fhestring"
	"github.com/luxfi/fhestring/internal/queue"
	"github.com/luxfi/fhestring/internal/storage"
	"github.com/luxfi/fhestring/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		redisAddr   = flag.String("redis", "localhost:6379", "Redis address")
		redisDB     = flag.Int("redis-db", 0, "Redis database number")
		queueName   = flag.String("queue", "default", "queue name")
		dataDir     = flag.String("data", "/var/lib/fhestring", "blob storage directory")
		workers     = flag.Int("workers", runtime.NumCPU(), "concurrent workers")
		metricsAddr = flag.String("metrics", ":9458", "metrics listen address (empty: disabled)")
	)
	flag.Parse()

	logger := log.NewLogger("fhestring-worker",
		*log.NewWrappedCore(level.Info, os.Stdout, log.JSON.ConsoleEncoder()))

	params, err := fhestring.NewParametersFromLiteral(fhestring.PN10QP27)
	if err != nil {
		return fmt.Errorf("parameters: %w", err)
	}
	sk := fhestring.NewServerKey(params, nil)
	defer sk.Close()

	store, err := storage.NewFileStorage(*dataDir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	q, err := queue.NewRedisQueue(queue.RedisConfig{
		Addr: *redisAddr,
		DB:   *redisDB,
	}, *queueName)
	if err != nil {
		return fmt.Errorf("connect queue: %w", err)
	}
	defer q.Close()

	srv := server.New(logger, store, q, sk)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
			done, failed := srv.Stats()
			w.Header().Set("Content-Type", "text/plain; version=0.0.4")
			fmt.Fprintf(w, "# TYPE fhestring_jobs_done_total counter\n")
			fmt.Fprintf(w, "fhestring_jobs_done_total %d\n", done)
			fmt.Fprintf(w, "# TYPE fhestring_jobs_failed_total counter\n")
			fmt.Fprintf(w, "fhestring_jobs_failed_total %d\n", failed)
		})
		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		ms := &http.Server{
			Addr:              *metricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go ms.ListenAndServe()
		defer ms.Close()
	}

	logger.Info("consuming",
		log.String("redis", *redisAddr),
		log.String("queue", *queueName),
		log.Int("workers", *workers))

	srv.RunWorkers(ctx, *workers)
	logger.Info("stopped")
	return nil
}

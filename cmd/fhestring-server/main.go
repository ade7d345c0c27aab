// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Command fhestring-server runs the encrypted string HTTP API.
//
// With -redis it pushes jobs to a shared Redis queue for external
// fhestring-worker processes. Without it, jobs run on an in-process
// queue and worker pool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
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
		addr      = flag.String("addr", ":8458", "HTTP listen address")
		dataDir   = flag.String("data", "", "blob storage directory (empty: in-memory)")
		storageMB = flag.Int64("storage-mb", 1024, "in-memory storage capacity in MB")
		redisAddr = flag.String("redis", "", "Redis address (empty: in-process queue)")
		redisDB   = flag.Int("redis-db", 0, "Redis database number")
		queueName = flag.String("queue", "default", "queue name")
		workers   = flag.Int("workers", runtime.NumCPU(), "in-process workers (0: external workers only)")
	)
	flag.Parse()

	logger := log.NewLogger("fhestring-server",
		*log.NewWrappedCore(level.Info, os.Stdout, log.JSON.ConsoleEncoder()))

	params, err := fhestring.NewParametersFromLiteral(fhestring.PN10QP27)
	if err != nil {
		return fmt.Errorf("parameters: %w", err)
	}
	sk := fhestring.NewServerKey(params, nil)
	defer sk.Close()

	var store storage.Storage
	if *dataDir != "" {
		store, err = storage.NewFileStorage(*dataDir)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
	} else {
		store = storage.NewMemoryStorage(*storageMB)
	}
	defer store.Close()

	var q queue.Queue
	if *redisAddr != "" {
		q, err = queue.NewRedisQueue(queue.RedisConfig{
			Addr: *redisAddr,
			DB:   *redisDB,
		}, *queueName)
		if err != nil {
			return fmt.Errorf("connect queue: %w", err)
		}
	} else {
		q = queue.NewMemoryQueue(1024)
		if *workers == 0 {
			return errors.New("in-process queue needs at least one worker")
		}
	}
	defer q.Close()

	srv := server.New(logger, store, q, sk)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	if *workers > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			srv.RunWorkers(ctx, *workers)
		}()
	}

	httpSrv := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			log.String("addr", *addr),
			log.Int("workers", *workers),
			log.Bool("redis", *redisAddr != ""))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		logger.Error("shutdown", log.Err(err))
	}
	wg.Wait()
	return nil
}

package service

import (
	"context"
	"time"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"go.uber.org/zap"
)

// CompressionWorker periodically sweeps for characters whose working memory
// has outgrown the window and compresses them. Orchestration also compresses
// inline after appending events; the worker catches characters whose inline
// pass failed or who were written outside orchestration.
type CompressionWorker struct {
	memory       *MemoryService
	eventStore   domain.EventStore
	workingLimit int
	interval     time.Duration
	logger       *zap.Logger

	stop chan struct{}
	done chan struct{}
}

func NewCompressionWorker(
	memory *MemoryService,
	eventStore domain.EventStore,
	workingLimit int,
	interval time.Duration,
	logger *zap.Logger,
) *CompressionWorker {
	return &CompressionWorker{
		memory:       memory,
		eventStore:   eventStore,
		workingLimit: workingLimit,
		interval:     interval,
		logger:       logger,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

func (w *CompressionWorker) Start() {
	go w.run()
	w.logger.Info("compression worker started", zap.Duration("interval", w.interval))
}

func (w *CompressionWorker) Stop() {
	close(w.stop)
	<-w.done
	w.logger.Info("compression worker stopped")
}

func (w *CompressionWorker) run() {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *CompressionWorker) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	ids, err := w.eventStore.ListCharactersWithWorkingOverflow(ctx, w.workingLimit)
	if err != nil {
		w.logger.Error("overflow sweep failed", zap.Error(err))
		return
	}
	for _, id := range ids {
		if err := w.memory.Compress(ctx, id); err != nil {
			w.logger.Error("compression failed",
				zap.String("character_id", id.String()),
				zap.Error(err))
		}
	}
}

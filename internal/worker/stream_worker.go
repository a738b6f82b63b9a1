// internal/worker/stream_worker.go
package worker

import (
	"context"
	"sync"
	"time"

	"partner-payouts/internal/domain"
	"partner-payouts/internal/metrics"
	"partner-payouts/internal/repository"
	"partner-payouts/internal/streams"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultBatchSize = 500
	maxRoundsPerTick = 20
)

// applyFunc parses a batch and writes it to postgres. Malformed entries are
// skipped and deleted along with the rest of the batch.
type applyFunc func(ctx context.Context, msgs []redis.XMessage) error

// StreamWorker periodically drains one redis stream into postgres. Entries are
// deleted only after the batch they belong to has been applied.
type StreamWorker struct {
	stream    string
	client    *streams.Client
	apply     applyFunc
	interval  time.Duration
	batchSize int64
	logger    *zap.Logger

	stopOnce sync.Once
	stopChan chan struct{}
}

func newStreamWorker(stream string, client *streams.Client, apply applyFunc, interval time.Duration, logger *zap.Logger) *StreamWorker {
	return &StreamWorker{
		stream:    stream,
		client:    client,
		apply:     apply,
		interval:  interval,
		batchSize: defaultBatchSize,
		logger:    logger.With(zap.String("stream", stream)),
		stopChan:  make(chan struct{}),
	}
}

// NewUsageWorker folds workspace usage entries into workspace counters.
func NewUsageWorker(client *streams.Client, repo repository.UsageRepository, interval time.Duration, logger *zap.Logger) *StreamWorker {
	var w *StreamWorker
	w = newStreamWorker(streams.WorkspaceUsageStream, client, func(ctx context.Context, msgs []redis.XMessage) error {
		updates := make([]domain.UsageUpdate, 0, len(msgs))
		for _, m := range msgs {
			u, err := streams.ParseUsage(m)
			if err != nil {
				w.logger.Warn("dropping malformed usage entry", zap.String("id", m.ID), zap.Error(err))
				metrics.StreamEntriesProcessed.WithLabelValues(streams.WorkspaceUsageStream, "malformed").Inc()
				continue
			}
			updates = append(updates, u)
		}
		return repo.ApplyWorkspaceUsage(ctx, streams.AggregateUsage(updates))
	}, interval, logger)
	return w
}

// NewActivityWorker folds partner activity entries into program enrollment stats.
func NewActivityWorker(client *streams.Client, repo repository.UsageRepository, interval time.Duration, logger *zap.Logger) *StreamWorker {
	var w *StreamWorker
	w = newStreamWorker(streams.PartnerActivityStream, client, func(ctx context.Context, msgs []redis.XMessage) error {
		updates := make([]domain.ActivityUpdate, 0, len(msgs))
		for _, m := range msgs {
			a, err := streams.ParseActivity(m)
			if err != nil {
				w.logger.Warn("dropping malformed activity entry", zap.String("id", m.ID), zap.Error(err))
				metrics.StreamEntriesProcessed.WithLabelValues(streams.PartnerActivityStream, "malformed").Inc()
				continue
			}
			updates = append(updates, a)
		}
		return repo.ApplyPartnerActivity(ctx, streams.AggregateActivity(updates))
	}, interval, logger)
	return w
}

func (w *StreamWorker) Start(ctx context.Context) {
	w.logger.Info("starting stream worker", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.drainAll(ctx)

		case <-w.stopChan:
			w.logger.Info("stopping stream worker")
			return

		case <-ctx.Done():
			w.logger.Info("context cancelled, stopping stream worker")
			return
		}
	}
}

func (w *StreamWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}

func (w *StreamWorker) drainAll(ctx context.Context) {
	for i := 0; i < maxRoundsPerTick; i++ {
		n, err := w.Drain(ctx)
		if err != nil {
			w.logger.Error("stream drain failed", zap.Error(err))
			return
		}
		if int64(n) < w.batchSize {
			return
		}
	}
}

// Drain processes one batch and returns how many entries it consumed.
func (w *StreamWorker) Drain(ctx context.Context) (int, error) {
	msgs, err := w.client.Range(ctx, w.stream, w.batchSize)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	if err := w.apply(ctx, msgs); err != nil {
		metrics.StreamEntriesProcessed.WithLabelValues(w.stream, "failed").Add(float64(len(msgs)))
		return 0, err
	}

	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	if err := w.client.Delete(ctx, w.stream, ids...); err != nil {
		return 0, err
	}

	metrics.StreamEntriesProcessed.WithLabelValues(w.stream, "applied").Add(float64(len(msgs)))
	w.logger.Debug("stream batch applied", zap.Int("entries", len(msgs)))
	return len(msgs), nil
}

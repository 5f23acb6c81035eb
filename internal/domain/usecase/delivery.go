package usecase

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Taverna-Hub/Projeto-AVD/internal/domain/entity"
)

// ErrInvalidToken is returned by a TelemetryPusher when the platform
// rejects the device credential itself. Unlike a chunk failure it aborts
// the whole delivery.
var ErrInvalidToken = errors.New("device token rejected")

// TelemetryPusher sends one batch of records to a device endpoint.
type TelemetryPusher interface {
	PushTimeseries(ctx context.Context, token string, batch []entity.TelemetryRecord) error
}

const (
	defaultBatchSize  = 100
	defaultChunkDelay = 100 * time.Millisecond
)

// DeliveryEngine pushes an ordered record sequence in fixed-size chunks.
// A failed chunk is counted, not retried, and already-delivered chunks are
// never rolled back; partial failure is data, not an error.
type DeliveryEngine struct {
	Pusher     TelemetryPusher
	BatchSize  int
	ChunkDelay time.Duration
}

func NewDeliveryEngine(pusher TelemetryPusher, batchSize int, chunkDelay time.Duration) *DeliveryEngine {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if chunkDelay <= 0 {
		chunkDelay = defaultChunkDelay
	}
	return &DeliveryEngine{Pusher: pusher, BatchSize: batchSize, ChunkDelay: chunkDelay}
}

// Deliver sends records in consecutive chunks (the last chunk may be
// smaller) with a fixed delay between chunks to bound the request rate.
// The returned counters always satisfy Success+Failed == Total. The error
// is non-nil only for an invalid device token or a canceled context; the
// remaining records are counted as failed in that case.
func (e *DeliveryEngine) Deliver(ctx context.Context, token string, records []entity.TelemetryRecord) (entity.BatchResult, error) {
	result := entity.BatchResult{Total: len(records)}
	if len(records) == 0 {
		return result, nil
	}

	size := e.BatchSize
	if size <= 0 {
		size = defaultBatchSize
	}

	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]

		if err := e.Pusher.PushTimeseries(ctx, token, chunk); err != nil {
			if errors.Is(err, ErrInvalidToken) {
				result.Failed = result.Total - result.Success
				return result, err
			}
			log.Printf("telemetry chunk %d-%d failed: %v", start, end, err)
			result.Failed += len(chunk)
		} else {
			result.Success += len(chunk)
		}

		if end < len(records) && e.ChunkDelay > 0 {
			select {
			case <-ctx.Done():
				result.Failed = result.Total - result.Success
				return result, ctx.Err()
			case <-time.After(e.ChunkDelay):
			}
		}
	}

	return result, nil
}

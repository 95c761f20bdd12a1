package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TradePull/internal/domain/models"
	domrepo "TradePull/internal/domain/repository"

	"github.com/shopspring/decimal"
)

// CandlePipeline sits between the stream and the candle store. It
// validates incoming candles, drops stale or duplicate timestamps, and
// buffers writes when the store is unavailable so a Redis blip does not
// lose confirmed candles.
type CandlePipeline struct {
	store   domrepo.CandleStore
	metrics domrepo.Metrics
	bufSize int

	bufCh   chan buffered
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex

	// last committed open time per series; candles only move forward
	lastTS map[models.SeriesKey]int64
}

type buffered struct {
	key    models.SeriesKey
	candle models.Candle
}

type PipelineOption func(*CandlePipeline)

// WithBufferSize sets the retry buffer capacity.
func WithBufferSize(n int) PipelineOption {
	return func(p *CandlePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewCandlePipeline creates a validating pipeline in front of a store.
func NewCandlePipeline(store domrepo.CandleStore, metrics domrepo.Metrics, opts ...PipelineOption) *CandlePipeline {
	p := &CandlePipeline{
		store:   store,
		metrics: metrics,
		bufSize: 1000,
		lastTS:  make(map[models.SeriesKey]int64),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan buffered, p.bufSize)
	return p
}

// Start launches background flushing of buffered candles. Safe to call
// again after Stop; each run gets its own stop channel.
func (p *CandlePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.stopCh = make(chan struct{})
	stopCh := p.stopCh
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-stopCh:
				return
			case b := <-p.bufCh:
				if err := p.store.Append(ctx, b.key, b.candle); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					select {
					case p.bufCh <- b:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops background flushing.
func (p *CandlePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	stopCh := p.stopCh
	p.mu.Unlock()
	close(stopCh)
}

// Process validates and commits one candle, buffering on store failure.
// Duplicate and out-of-order timestamps are dropped so each series stays
// strictly increasing.
func (p *CandlePipeline) Process(ctx context.Context, key models.SeriesKey, c models.Candle) error {
	start := time.Now()
	if err := validateCandle(key, c); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}

	p.mu.Lock()
	if last, ok := p.lastTS[key]; ok && c.Timestamp <= last {
		p.mu.Unlock()
		p.metrics.RecordError("pipeline_stale_candle")
		return nil
	}
	p.lastTS[key] = c.Timestamp
	p.mu.Unlock()

	if err := p.store.Append(ctx, key, c); err != nil {
		p.metrics.RecordError("pipeline_store")
		select {
		case p.bufCh <- buffered{key: key, candle: c}:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline store: %w", err)
	}

	p.metrics.RecordCandleStored(key.Symbol, key.Interval, "stream")
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateCandle(key models.SeriesKey, c models.Candle) error {
	if key.Symbol == "" || key.Interval == "" {
		return fmt.Errorf("series key empty")
	}
	if c.Timestamp <= 0 {
		return fmt.Errorf("timestamp invalid")
	}
	for _, field := range []struct {
		name  string
		value string
	}{
		{"open", c.Open},
		{"high", c.High},
		{"low", c.Low},
		{"close", c.Close},
		{"volume", c.Volume},
	} {
		d, err := decimal.NewFromString(field.value)
		if err != nil {
			return fmt.Errorf("%s %q not a decimal", field.name, field.value)
		}
		if d.IsNegative() {
			return fmt.Errorf("%s negative", field.name)
		}
	}
	return nil
}

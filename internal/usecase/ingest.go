package usecase

import (
	"context"
	"strconv"
	"sync"
	"time"

	"TradePull/internal/domain/models"
	drepo "TradePull/internal/domain/repository"
	mid "TradePull/internal/middleware"
	"TradePull/pkg/logger"
)

// Stream state gauge values.
const (
	streamStateDown      = 0.0
	streamStateStreaming = 1.0
	streamStateFailed    = -1.0
)

// StreamIngestor owns the stream lifecycle for one series: connect,
// subscribe, consume confirmed candles into the pipeline, and reconnect
// with capped exponential backoff. After the attempt limit it declares
// the series failed and stops; an external restart is required.
type StreamIngestor struct {
	stream  drepo.MarketStream
	pipe    *mid.CandlePipeline
	status  drepo.StatusBoard
	metrics drepo.Metrics
	log     *logger.Logger

	key         models.SeriesKey
	baseDelay   time.Duration
	maxAttempts int

	mu       sync.Mutex
	attempts int
	failed   bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewStreamIngestor creates an ingestor for one series.
func NewStreamIngestor(
	stream drepo.MarketStream,
	pipe *mid.CandlePipeline,
	status drepo.StatusBoard,
	metrics drepo.Metrics,
	log *logger.Logger,
	key models.SeriesKey,
	baseDelay time.Duration,
	maxAttempts int,
) *StreamIngestor {
	return &StreamIngestor{
		stream:      stream,
		pipe:        pipe,
		status:      status,
		metrics:     metrics,
		log:         log,
		key:         key,
		baseDelay:   baseDelay,
		maxAttempts: maxAttempts,
	}
}

// Start launches the ingestion loop. It returns immediately; the loop
// runs until Stop or terminal failure.
func (s *StreamIngestor) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	s.failed = false
	s.attempts = 0
	s.mu.Unlock()

	s.pipe.Start(runCtx)
	go s.run(runCtx)
}

// Stop cancels the loop and closes the socket.
func (s *StreamIngestor) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	_ = s.stream.Close()
	s.pipe.Stop()
	if done != nil {
		<-done
	}
	s.publishStatus(context.Background(), models.StreamStatusStopped)
}

// Failed reports whether ingestion hit the reconnect attempt cap.
func (s *StreamIngestor) Failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

// IsConnected reports the socket state.
func (s *StreamIngestor) IsConnected() bool {
	return s.stream.IsConnected()
}

func (s *StreamIngestor) run(ctx context.Context) {
	defer close(s.done)

	for {
		if ctx.Err() != nil {
			return
		}

		s.publishStatus(ctx, models.StreamStatusConnecting)
		if err := s.connectAndStream(ctx); err == nil {
			// clean shutdown
			return
		}

		s.mu.Lock()
		s.attempts++
		attempts := s.attempts
		s.mu.Unlock()

		if attempts >= s.maxAttempts {
			s.mu.Lock()
			s.failed = true
			s.mu.Unlock()
			s.metrics.RecordStreamState(s.key.Symbol, s.key.Interval, streamStateFailed)
			s.metrics.RecordError("stream_terminal_failure")
			s.publishStatus(ctx, models.StreamStatusFailed)
			s.log.Error("stream ingestion permanently failed",
				logger.String("series", s.key.String()),
				logger.Int("attempts", attempts))
			return
		}

		delay := s.baseDelay << uint(attempts-1)
		s.metrics.RecordStreamState(s.key.Symbol, s.key.Interval, streamStateDown)
		s.publishStatus(ctx, models.StreamStatusReconnect)
		s.log.Warn("stream reconnect scheduled",
			logger.String("series", s.key.String()),
			logger.Int("attempt", attempts),
			logger.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// connectAndStream runs one connection lifetime. A nil return means ctx
// was cancelled; any error means the socket dropped and the caller
// schedules a reconnect.
func (s *StreamIngestor) connectAndStream(ctx context.Context) error {
	if err := s.stream.Connect(ctx); err != nil {
		return err
	}
	if err := s.stream.Subscribe(ctx); err != nil {
		_ = s.stream.Close()
		return err
	}

	// each connection gets its own ctx so the ping loop dies with it
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	candles, errs := s.stream.Read(connCtx)

	s.mu.Lock()
	s.attempts = 0
	s.mu.Unlock()
	s.metrics.RecordStreamState(s.key.Symbol, s.key.Interval, streamStateStreaming)
	s.publishStatus(ctx, models.StreamStatusStreaming)

	for {
		select {
		case <-ctx.Done():
			_ = s.stream.Close()
			return nil
		case err, ok := <-errs:
			if !ok {
				err = context.Canceled
			}
			_ = s.stream.Close()
			if ctx.Err() != nil {
				return nil
			}
			s.metrics.RecordError("stream")
			return err
		case c, ok := <-candles:
			if !ok {
				_ = s.stream.Close()
				if ctx.Err() != nil {
					return nil
				}
				return context.Canceled
			}
			if err := s.pipe.Process(ctx, s.key, c); err != nil {
				s.log.Warn("candle commit failed", logger.Error(err),
					logger.Int64("timestamp", c.Timestamp))
			}
			if price, err := strconv.ParseFloat(c.Close, 64); err == nil {
				s.metrics.RecordLastPrice(s.key.Symbol, price)
			}
			_ = s.status.Set(ctx, map[string]string{
				models.StatusFieldLastCandleAt: strconv.FormatInt(c.Timestamp, 10),
			})
		}
	}
}

func (s *StreamIngestor) publishStatus(ctx context.Context, state string) {
	s.mu.Lock()
	attempts := s.attempts
	s.mu.Unlock()
	_ = s.status.Set(ctx, map[string]string{
		models.StatusFieldStream:         state,
		models.StatusFieldStreamAttempts: strconv.Itoa(attempts),
	})
}

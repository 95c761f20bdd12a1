package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"TradePull/internal/domain/models"
	drepo "TradePull/internal/domain/repository"
	"TradePull/pkg/logger"

	"github.com/gorilla/websocket"
)

// Stream implements a MarketStream backed by the Bybit public kline
// WebSocket. One Stream handles one symbol/interval topic.
type Stream struct {
	websocketURL string
	symbol       string
	interval     string
	pingInterval time.Duration
	log          *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// NewStream creates a Bybit kline MarketStream.
func NewStream(websocketURL, symbol, interval string, pingInterval time.Duration, log *logger.Logger) drepo.MarketStream {
	return &Stream{
		websocketURL: websocketURL,
		symbol:       symbol,
		interval:     interval,
		pingInterval: pingInterval,
		log:          log,
	}
}

// Connect establishes the WebSocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("bybit connect: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	s.log.Info("bybit stream connected", logger.String("url", s.websocketURL))
	return nil
}

// Subscribe sends the kline topic subscription.
func (s *Stream) Subscribe(ctx context.Context) error {
	s.mu.Lock()
	conn, connected := s.conn, s.connected
	s.mu.Unlock()
	if conn == nil || !connected {
		return fmt.Errorf("bybit not connected")
	}

	topic := fmt.Sprintf("kline.%s.%s", s.interval, s.symbol)
	msg := map[string]interface{}{"op": "subscribe", "args": []string{topic}}
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	s.log.Info("bybit stream subscribed", logger.String("topic", topic))
	return nil
}

type wsAck struct {
	Op      string `json:"op"`
	Success bool   `json:"success"`
	RetMsg  string `json:"ret_msg"`
}

type wsKline struct {
	Start    int64  `json:"start"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	Volume   string `json:"volume"`
	Interval string `json:"interval"`
	Confirm  bool   `json:"confirm"`
}

type wsMessage struct {
	Topic string    `json:"topic"`
	Data  []wsKline `json:"data"`
}

// Read streams confirmed candles and errors. Unconfirmed klines are
// discarded here so partial candles never reach the store. Channels
// close when the socket errors or ctx is cancelled; the caller owns
// reconnection.
func (s *Stream) Read(ctx context.Context) (<-chan models.Candle, <-chan error) {
	candles := make(chan models.Candle, 256)
	errs := make(chan error, 1)

	// app-level keepalive, Bybit expects {"op":"ping"}
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				conn, connected := s.conn, s.connected
				s.mu.Unlock()
				if conn != nil && connected {
					_ = conn.WriteJSON(map[string]string{"op": "ping"})
				}
			}
		}
	}()

	go func() {
		defer close(candles)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				s.mu.Lock()
				conn := s.conn
				s.mu.Unlock()
				if conn == nil {
					errs <- fmt.Errorf("bybit conn nil")
					return
				}
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("bybit read: %w", err)
					return
				}

				var ack wsAck
				if err := json.Unmarshal(b, &ack); err == nil && ack.Op != "" {
					// subscribe/pong acknowledgments are no-ops
					if ack.Op == "subscribe" && !ack.Success {
						errs <- fmt.Errorf("bybit subscribe rejected: %s", ack.RetMsg)
						return
					}
					continue
				}

				var m wsMessage
				if err := json.Unmarshal(b, &m); err != nil {
					s.log.Warn("bybit malformed frame discarded", logger.Error(err))
					continue
				}
				for _, k := range m.Data {
					if !k.Confirm {
						continue
					}
					c := models.Candle{
						Timestamp: k.Start,
						Open:      k.Open,
						High:      k.High,
						Low:       k.Low,
						Close:     k.Close,
						Volume:    k.Volume,
					}
					select {
					case candles <- c:
					default:
						s.log.Warn("bybit candle dropped on backpressure",
							logger.Int64("timestamp", c.Timestamp))
					}
				}
			}
		}
	}()

	return candles, errs
}

// Close closes the WS connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

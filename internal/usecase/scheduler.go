package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"TradePull/internal/domain/models"
	drepo "TradePull/internal/domain/repository"
	"TradePull/internal/service/bybit"
	"TradePull/internal/service/decision"
	"TradePull/pkg/logger"
)

// Outcomes counted per processed user.
const (
	outcomeSuccess = "success"
	outcomeHold    = "hold"
	outcomeFailed  = "failed"
)

// TradingScheduler drives the decision-and-execution loop. Every tick it
// loads active users and processes them sequentially; one user's failure
// never aborts the rest. Exactly one ledger entry is appended per
// processed user per tick.
type TradingScheduler struct {
	store    drepo.CandleStore
	engine   *decision.Engine
	exchange drepo.Exchange
	market   drepo.MarketData
	users    drepo.UserDirectory
	ledger   drepo.Ledger
	status   drepo.StatusBoard
	metrics  drepo.Metrics
	log      *logger.Logger

	interval      time.Duration
	defaultWindow int
	defaultKey    models.SeriesKey
	runOnStart    bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewTradingScheduler creates the tick loop driver.
func NewTradingScheduler(
	store drepo.CandleStore,
	engine *decision.Engine,
	exchange drepo.Exchange,
	market drepo.MarketData,
	users drepo.UserDirectory,
	ledger drepo.Ledger,
	status drepo.StatusBoard,
	metrics drepo.Metrics,
	log *logger.Logger,
	interval time.Duration,
	defaultWindow int,
	defaultKey models.SeriesKey,
	runOnStart bool,
) *TradingScheduler {
	return &TradingScheduler{
		store:         store,
		engine:        engine,
		exchange:      exchange,
		market:        market,
		users:         users,
		ledger:        ledger,
		status:        status,
		metrics:       metrics,
		log:           log,
		interval:      interval,
		defaultWindow: defaultWindow,
		defaultKey:    defaultKey,
		runOnStart:    runOnStart,
	}
}

// Start launches the tick loop. Returns immediately.
func (s *TradingScheduler) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		if s.runOnStart {
			s.Tick(runCtx)
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.Tick(runCtx)
			}
		}
	}()
}

// Stop cancels the loop and waits for the current tick to finish.
func (s *TradingScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
}

// Tick runs one full scheduling cycle.
func (s *TradingScheduler) Tick(ctx context.Context) models.TickSummary {
	start := time.Now()
	summary := models.TickSummary{RanAt: start}

	users, err := s.users.ActiveUsers(ctx)
	if err != nil {
		s.metrics.RecordError("scheduler_users")
		s.log.Error("loading active users failed", logger.Error(err))
		s.publish(ctx, summary)
		return summary
	}
	if len(users) == 0 {
		s.log.Debug("no active users this tick")
		s.publish(ctx, summary)
		return summary
	}

	for _, user := range users {
		if ctx.Err() != nil {
			break
		}
		outcome := s.processUser(ctx, user)
		summary.UsersProcessed++
		switch outcome {
		case outcomeSuccess:
			summary.Succeeded++
		case outcomeHold:
			summary.Held++
		default:
			summary.Failed++
		}
		s.metrics.RecordTrade(outcome)
	}

	s.metrics.RecordUsersProcessed(summary.UsersProcessed)
	s.metrics.RecordLatency("scheduler_tick", time.Since(start).Seconds())
	s.publish(ctx, summary)
	s.log.Info("scheduler tick complete",
		logger.Int("users", summary.UsersProcessed),
		logger.Int("succeeded", summary.Succeeded),
		logger.Int("held", summary.Held),
		logger.Int("failed", summary.Failed),
		logger.Duration("took", time.Since(start)))
	return summary
}

// processUser runs one user's cycle and always appends exactly one
// ledger entry. Panics from any collaborator are caught and recorded as
// a failed attempt.
func (s *TradingScheduler) processUser(ctx context.Context, user models.UserProfile) (outcome string) {
	key := s.defaultKey
	if user.PreferredSymbol != "" && user.PreferredInterval != "" {
		key = models.SeriesKey{Symbol: user.PreferredSymbol, Interval: user.PreferredInterval}
	}

	entry := models.LedgerEntry{
		UserID:     user.UserID,
		Symbol:     key.Symbol,
		Interval:   key.Interval,
		ExecutedAt: time.Now(),
	}
	outcome = outcomeFailed

	defer func() {
		if r := recover(); r != nil {
			outcome = outcomeFailed
			entry.Decision = models.TradeDecision{
				Action: models.ActionHold,
				Reason: fmt.Sprintf("panic during processing: %v", r),
			}
			entry.Order = models.OrderResult{Status: "failed", Error: fmt.Sprintf("%v", r)}
			s.metrics.RecordError("scheduler_panic")
		}
		if err := s.ledger.Append(ctx, entry); err != nil {
			s.metrics.RecordError("ledger_append")
			s.log.Error("ledger append failed",
				logger.String("user", user.UserID), logger.Error(err))
		}
	}()

	window := user.CandleWindow
	if window <= 0 {
		window = s.defaultWindow
	}

	candles, err := s.store.Read(ctx, key, window)
	if err != nil {
		entry.Decision = models.TradeDecision{Action: models.ActionHold, Reason: "candle store unavailable"}
		entry.Order = models.OrderResult{Status: "failed", Error: err.Error()}
		return outcomeFailed
	}
	if len(candles) == 0 {
		entry.Decision = models.TradeDecision{Action: models.ActionHold, Reason: "no candles available"}
		entry.Order = models.OrderResult{Status: "failed", Error: "empty candle window"}
		return outcomeFailed
	}

	// store is newest first; the decision engine wants oldest first
	oldestFirst := make([]models.Candle, len(candles))
	for i, c := range candles {
		oldestFirst[len(candles)-1-i] = c
	}

	result := s.engine.Decide(ctx, oldestFirst, user)
	entry.Decision = result.Decision

	if result.Decision.Action == models.ActionHold {
		entry.Order = models.OrderResult{Status: "hold"}
		if result.Malformed {
			return outcomeFailed
		}
		return outcomeHold
	}

	order, outcome := s.execute(ctx, user, key.Symbol, result.Decision)
	entry.Order = order
	return outcome
}

// execute turns a buy/sell decision into a signed market order.
func (s *TradingScheduler) execute(ctx context.Context, user models.UserProfile, symbol string, d models.TradeDecision) (models.OrderResult, string) {
	balance, err := s.exchange.GetBalance(ctx, user)
	if err != nil {
		return models.OrderResult{Status: "failed", Error: err.Error()}, outcomeFailed
	}

	price, err := s.market.GetPrice(ctx, symbol)
	if err != nil {
		return models.OrderResult{Status: "failed", Error: err.Error()}, outcomeFailed
	}

	increment, err := s.market.GetMinOrderQty(ctx, symbol)
	if err != nil {
		return models.OrderResult{Status: "failed", Error: err.Error()}, outcomeFailed
	}

	qty := bybit.ComputeOrderQuantity(balance, price, increment)
	if qty == "0" {
		return models.OrderResult{Status: "skipped", Qty: "0", Error: "quantity rounds to zero"}, outcomeHold
	}

	side := "Buy"
	if d.Action == models.ActionSell {
		side = "Sell"
	}

	order, err := s.exchange.PlaceOrder(ctx, user, symbol, side, qty)
	if err != nil {
		if order.Status == "" {
			order = models.OrderResult{Status: "failed", Side: side, Qty: qty, Error: err.Error()}
		}
		return order, outcomeFailed
	}
	order.Price = price
	return order, outcomeSuccess
}

func (s *TradingScheduler) publish(ctx context.Context, sum models.TickSummary) {
	_ = s.status.Set(ctx, map[string]string{
		models.StatusFieldLastRunAt:      sum.RanAt.UTC().Format(time.RFC3339),
		models.StatusFieldUsersProcessed: strconv.Itoa(sum.UsersProcessed),
		models.StatusFieldSucceeded:      strconv.Itoa(sum.Succeeded),
		models.StatusFieldFailed:         strconv.Itoa(sum.Failed),
	})
}

package services

import (
	"context"
	"errors"
	"time"

	"github.com/jpillora/backoff"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bitskins-trader/internal/models"
	"bitskins-trader/pkg/bitskins"
)

// Marketplace is the mutating part of the BitSkins client.
type Marketplace interface {
	BuyItems(ctx context.Context, o bitskins.BuyOrder) (*bitskins.Response, error)
	SellItems(ctx context.Context, o bitskins.SellOrder) (*bitskins.Response, error)
	WithdrawMoney(ctx context.Context, amount decimal.Decimal, method bitskins.WithdrawalMethod) (*bitskins.Response, error)
}

type Notifier interface {
	Publish(eventType string, data interface{})
}

// RetryPolicy bounds retries of calls rejected with a lock-contention failure.
type RetryPolicy struct {
	MaxAttempts int
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
}

type TradingService struct {
	db       *gorm.DB
	market   Marketplace
	notifier Notifier
	log      logrus.FieldLogger
	retry    RetryPolicy
}

type TradeEvent struct {
	Side     string   `json:"side"`
	AppID    int      `json:"app_id"`
	ItemIDs  []string `json:"item_ids"`
	Prices   []string `json:"prices"`
	Status   string   `json:"status"`
	Attempts int      `json:"attempts"`
	Error    string   `json:"error,omitempty"`
}

type WithdrawalEvent struct {
	Amount   decimal.Decimal `json:"amount"`
	Method   string          `json:"method"`
	Status   string          `json:"status"`
	Attempts int             `json:"attempts"`
	Error    string          `json:"error,omitempty"`
}

func NewTradingService(db *gorm.DB, market Marketplace, notifier Notifier, log logrus.FieldLogger, retry RetryPolicy) *TradingService {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &TradingService{
		db:       db,
		market:   market,
		notifier: notifier,
		log:      log,
		retry:    retry,
	}
}

// Buy purchases the items, retrying while the account lock is held, and
// journals one Trade per item.
func (t *TradingService) Buy(ctx context.Context, order bitskins.BuyOrder) (*bitskins.Response, error) {
	resp, attempts, err := t.withLockRetry(ctx, "buy_item", func() (*bitskins.Response, error) {
		return t.market.BuyItems(ctx, order)
	})
	t.recordTrades(models.SideBuy, gameOf(order.Game), order.ItemIDs, order.Prices, attempts, err)
	return resp, err
}

// Sell lists the items for sale (or sells them instantly) with the same retry
// and journaling as Buy.
func (t *TradingService) Sell(ctx context.Context, order bitskins.SellOrder) (*bitskins.Response, error) {
	resp, attempts, err := t.withLockRetry(ctx, "list_item_for_sale", func() (*bitskins.Response, error) {
		return t.market.SellItems(ctx, order)
	})
	t.recordTrades(models.SideSell, gameOf(order.Game), order.ItemIDs, order.Prices, attempts, err)
	return resp, err
}

func (t *TradingService) Withdraw(ctx context.Context, amount decimal.Decimal, method bitskins.WithdrawalMethod) (*bitskins.Response, error) {
	resp, attempts, err := t.withLockRetry(ctx, "request_withdrawal", func() (*bitskins.Response, error) {
		return t.market.WithdrawMoney(ctx, amount, method)
	})
	if errors.Is(err, bitskins.ErrUsage) {
		return nil, err
	}

	w := models.Withdrawal{
		Amount:   amount,
		Method:   string(method),
		Status:   statusOf(err),
		Attempts: attempts,
		Error:    errString(err),
	}
	if dbErr := t.db.Create(&w).Error; dbErr != nil {
		t.log.WithError(dbErr).Error("failed to record withdrawal")
	}
	t.notifier.Publish("withdrawal", WithdrawalEvent{
		Amount:   amount,
		Method:   w.Method,
		Status:   w.Status,
		Attempts: attempts,
		Error:    w.Error,
	})
	return resp, err
}

// withLockRetry runs call until it succeeds, fails with anything other than
// lock contention, runs out of attempts, or ctx ends.
func (t *TradingService) withLockRetry(ctx context.Context, op string, call func() (*bitskins.Response, error)) (*bitskins.Response, int, error) {
	b := &backoff.Backoff{
		Min:    t.retry.MinBackoff,
		Max:    t.retry.MaxBackoff,
		Factor: 2,
		Jitter: true,
	}

	for attempt := 1; ; attempt++ {
		resp, err := call()
		if err == nil || !errors.Is(err, bitskins.ErrLockContention) || attempt >= t.retry.MaxAttempts {
			return resp, attempt, err
		}

		wait := b.Duration()
		t.log.WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt,
			"wait":    wait,
		}).Warn("account locked, retrying")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, attempt, errors.Join(ctx.Err(), err)
		case <-timer.C:
		}
	}
}

func (t *TradingService) recordTrades(side string, appID int, ids, prices []string, attempts int, err error) {
	// Nothing reached the service.
	if errors.Is(err, bitskins.ErrUsage) {
		return
	}

	status := statusOf(err)
	trades := make([]models.Trade, 0, len(ids))
	for i, id := range ids {
		trade := models.Trade{
			Side:     side,
			AppID:    appID,
			ItemID:   id,
			Status:   status,
			Attempts: attempts,
			Error:    errString(err),
		}
		if i < len(prices) {
			trade.Price = prices[i]
		}
		trades = append(trades, trade)
	}
	if len(trades) > 0 {
		if dbErr := t.db.Create(&trades).Error; dbErr != nil {
			t.log.WithError(dbErr).WithField("side", side).Error("failed to record trades")
		}
	}

	entry := t.log.WithFields(logrus.Fields{
		"side":     side,
		"app_id":   appID,
		"items":    len(ids),
		"attempts": attempts,
	})
	if err != nil {
		entry.WithError(err).Warn("trade failed")
	} else {
		entry.Info("trade completed")
	}

	t.notifier.Publish("trade", TradeEvent{
		Side:     side,
		AppID:    appID,
		ItemIDs:  ids,
		Prices:   prices,
		Status:   status,
		Attempts: attempts,
		Error:    errString(err),
	})
}

// History returns the most recent trades, newest first. An empty side returns
// both buys and sells.
func (t *TradingService) History(ctx context.Context, side string, limit int) ([]models.Trade, error) {
	var trades []models.Trade
	query := t.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit)
	if side != "" {
		query = query.Where("side = ?", side)
	}
	err := query.Find(&trades).Error
	return trades, err
}

func (t *TradingService) Withdrawals(ctx context.Context, limit int) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	err := t.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&withdrawals).Error
	return withdrawals, err
}

func gameOf(g bitskins.Game) int {
	if g == 0 {
		return int(bitskins.DefaultGame)
	}
	return int(g)
}

func statusOf(err error) string {
	if err != nil {
		return models.StatusFailed
	}
	return models.StatusCompleted
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

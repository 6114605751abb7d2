package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bitskins-trader/internal/models"
	"bitskins-trader/pkg/bitskins"
)

// PriceSource is the read-only part of the BitSkins client used for prices.
type PriceSource interface {
	GetAllItemPrices(ctx context.Context, game bitskins.Game) (*bitskins.Response, error)
	GetResetPriceItems(ctx context.Context, game bitskins.Game, page int) (*bitskins.Response, error)
}

type Notifier interface {
	Publish(eventType string, data interface{})
}

type PriceService struct {
	db       *gorm.DB
	source   PriceSource
	notifier Notifier
	log      logrus.FieldLogger
	cron     *cron.Cron
	now      func() time.Time
}

type CollectedEvent struct {
	AppID      int       `json:"app_id"`
	Items      int       `json:"items"`
	CapturedAt time.Time `json:"captured_at"`
}

func NewPriceService(db *gorm.DB, source PriceSource, notifier Notifier, log logrus.FieldLogger) *PriceService {
	return &PriceService{
		db:       db,
		source:   source,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// Collect pulls the whole price database for game and stores it as one batch
// of snapshots. It returns the number of items stored.
func (p *PriceService) Collect(ctx context.Context, game bitskins.Game) (int, error) {
	resp, err := p.source.GetAllItemPrices(ctx, game)
	if err != nil {
		return 0, fmt.Errorf("fetch prices for app %d: %w", game, err)
	}

	var all bitskins.AllItemPrices
	if err := resp.Decode(&all); err != nil {
		return 0, fmt.Errorf("decode prices for app %d: %w", game, err)
	}

	capturedAt := p.now()
	snapshots := make([]models.PriceSnapshot, 0, len(all.Prices))
	for _, item := range all.Prices {
		snapshots = append(snapshots, models.PriceSnapshot{
			AppID:            int(game),
			MarketHashName:   item.MarketHashName,
			Price:            item.Price,
			InstantSalePrice: item.InstantSalePrice,
			CapturedAt:       capturedAt,
		})
	}

	if len(snapshots) > 0 {
		if err := p.db.WithContext(ctx).CreateInBatches(snapshots, 500).Error; err != nil {
			return 0, fmt.Errorf("store prices for app %d: %w", game, err)
		}
	}

	p.log.WithFields(logrus.Fields{"app_id": int(game), "items": len(snapshots)}).Info("collected prices")
	p.notifier.Publish("prices", CollectedEvent{AppID: int(game), Items: len(snapshots), CapturedAt: capturedAt})
	return len(snapshots), nil
}

// Latest returns the newest snapshot of an item.
func (p *PriceService) Latest(ctx context.Context, game bitskins.Game, marketHashName string) (*models.PriceSnapshot, error) {
	var snapshot models.PriceSnapshot
	err := p.db.WithContext(ctx).
		Where("app_id = ? AND market_hash_name = ?", int(game), marketHashName).
		Order("captured_at DESC, id DESC").
		First(&snapshot).Error
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// History returns the snapshots of an item since the given time, oldest first.
func (p *PriceService) History(ctx context.Context, game bitskins.Game, marketHashName string, since time.Time) ([]models.PriceSnapshot, error) {
	var snapshots []models.PriceSnapshot
	err := p.db.WithContext(ctx).
		Where("app_id = ? AND market_hash_name = ? AND captured_at >= ?", int(game), marketHashName, since).
		Order("captured_at ASC").
		Find(&snapshots).Error
	return snapshots, err
}

// PendingResets returns the items on a page of get_reset_price_items that
// still carry the reserved price and so have no usable price.
func (p *PriceService) PendingResets(ctx context.Context, game bitskins.Game, page int) ([]bitskins.ResetPriceItem, error) {
	resp, err := p.source.GetResetPriceItems(ctx, game, page)
	if err != nil {
		return nil, err
	}

	var data bitskins.ResetPriceItems
	if err := resp.DecodeData(&data); err != nil {
		return nil, fmt.Errorf("decode reset price items: %w", err)
	}

	pending := make([]bitskins.ResetPriceItem, 0, len(data.Items))
	for _, item := range data.Items {
		if item.Unpriced() {
			pending = append(pending, item)
		}
	}
	return pending, nil
}

// Start schedules Collect for every game. spec is a cron expression or a
// descriptor such as "@every 15m".
func (p *PriceService) Start(spec string, games []bitskins.Game) error {
	c := cron.New()
	for _, game := range games {
		game := game
		_, err := c.AddFunc(spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			if _, err := p.Collect(ctx, game); err != nil {
				p.log.WithError(err).WithField("app_id", int(game)).Error("price collection failed")
			}
		})
		if err != nil {
			return fmt.Errorf("schedule price collection %q: %w", spec, err)
		}
	}
	p.cron = c
	c.Start()
	p.log.WithFields(logrus.Fields{"schedule": spec, "games": len(games)}).Info("price collection scheduled")
	return nil
}

// Stop halts scheduling and waits for a running collection to finish.
func (p *PriceService) Stop() {
	if p.cron == nil {
		return
	}
	<-p.cron.Stop().Done()
}

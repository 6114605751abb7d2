package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SideBuy  = "buy"
	SideSell = "sell"

	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Trade records one item of a buy or sell call against BitSkins
type Trade struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Side      string    `json:"side" gorm:"not null;index"` // buy, sell
	AppID     int       `json:"app_id" gorm:"not null"`
	ItemID    string    `json:"item_id" gorm:"not null;index"`
	// Price is a decimal string or "instant"
	Price     string    `json:"price"`
	Status    string    `json:"status" gorm:"not null"` // completed, failed
	Attempts  int       `json:"attempts"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Withdrawal records a payout request
type Withdrawal struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:decimal(12,2)"`
	Method    string          `json:"method" gorm:"not null"`
	Status    string          `json:"status" gorm:"not null"`
	Attempts  int             `json:"attempts"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// PriceSnapshot is one price database entry captured at a point in time
type PriceSnapshot struct {
	ID               uint                `json:"id" gorm:"primaryKey"`
	AppID            int                 `json:"app_id" gorm:"not null;index:idx_snapshot_item"`
	MarketHashName   string              `json:"market_hash_name" gorm:"not null;index:idx_snapshot_item"`
	Price            decimal.Decimal     `json:"price" gorm:"type:decimal(12,2)"`
	InstantSalePrice decimal.NullDecimal `json:"instant_sale_price" gorm:"type:decimal(12,2)"`
	CapturedAt       time.Time           `json:"captured_at" gorm:"index"`
}

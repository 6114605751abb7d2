package bitskins

import "github.com/shopspring/decimal"

// Balance is the data of get_account_balance.
type Balance struct {
	AvailableBalance    decimal.Decimal `json:"available_balance"`
	PendingWithdrawals  decimal.Decimal `json:"pending_withdrawals"`
	WithdrawableBalance decimal.Decimal `json:"withdrawable_balance"`
	CouponableBalance   decimal.Decimal `json:"couponable_balance"`
}

// ItemPrice is one entry of the price database.
type ItemPrice struct {
	MarketHashName   string              `json:"market_hash_name"`
	Price            decimal.Decimal     `json:"price"`
	InstantSalePrice decimal.NullDecimal `json:"instant_sale_price"`
	CreatedAt        int64               `json:"created_at"`
	IconURL          string              `json:"icon_url"`
	QualityColor     string              `json:"quality_color"`
}

// AllItemPrices is the body of get_all_item_prices. The prices sit next to
// the status field rather than under data.
type AllItemPrices struct {
	Prices []ItemPrice `json:"prices"`
}

// ResetPriceItem is an item listed at ReservedPrice.
type ResetPriceItem struct {
	ItemID         string          `json:"item_id"`
	MarketHashName string          `json:"market_hash_name"`
	Price          decimal.Decimal `json:"price"`
	Image          string          `json:"image"`
}

// Unpriced reports whether the item carries the reserved price sentinel and so
// has no real listed price.
func (i ResetPriceItem) Unpriced() bool { return i.Price.Equal(ReservedPrice) }

// ResetPriceItems is the data of get_reset_price_items.
type ResetPriceItems struct {
	Items []ResetPriceItem `json:"items"`
	Page  int              `json:"page"`
}

// MoneyEvent is one balance change.
type MoneyEvent struct {
	Type         string          `json:"type"`
	Price        decimal.Decimal `json:"price"`
	Medium       string          `json:"medium"`
	ItemID       string          `json:"item_id"`
	TransferMode string          `json:"transfer_mode"`
	Time         int64           `json:"time"`
}

// MoneyEvents is the data of get_money_events.
type MoneyEvents struct {
	Events []MoneyEvent `json:"events"`
	Page   int          `json:"page"`
}

package bitskins

import "github.com/shopspring/decimal"

// Game is the Steam app id of a title traded on BitSkins. Values outside the
// constants below are passed through untouched.
type Game int

const (
	PUBG          Game = 578080
	PayDay2       Game = 218620
	KillingFloor2 Game = 232090
	Rust          Game = 252490
	Depth         Game = 274940
	Unturned      Game = 304930
	CSGO          Game = 730
	Dota2         Game = 570
	TF2           Game = 440

	// DefaultGame is used whenever a Game is left at its zero value.
	DefaultGame = CSGO
)

func (g Game) orDefault() Game {
	if g == 0 {
		return DefaultGame
	}
	return g
}

// SortBy selects the ordering of inventory-on-sale listings.
type SortBy string

const (
	SortByCreated SortBy = "created_at"
	SortByPrice   SortBy = "price"
	// SortByWearValue is only accepted for CSGO.
	SortByWearValue SortBy = "wear_value"
)

type Order string

const (
	Ascending  Order = "asc"
	Descending Order = "desc"
)

// WithdrawalMethod is a payout channel for WithdrawMoney.
type WithdrawalMethod string

const (
	PayPal WithdrawalMethod = "paypal"
	Skrill WithdrawalMethod = "skrill"
)

const (
	// InstantPrice sells an item right away at the current instant-buy price
	// instead of listing it.
	InstantPrice = "instant"

	// MaxBatchItems caps the number of item ids in a single call.
	MaxBatchItems = 250
)

var (
	// ReservedPrice marks listings whose price must be reset by the seller.
	ReservedPrice = decimal.RequireFromString("4895.11")

	// MinWithdrawal is the amount a withdrawal request has to exceed.
	MinWithdrawal = decimal.RequireFromString("5.00")
)

// PageSizes lists the accepted values for InventoryQuery.PerPage.
var PageSizes = []int{24, 30, 60, 64, 120, 128, 240, 480}

package bitskins

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"
)

const (
	opAccountBalance    = "get_account_balance"
	opAllItemPrices     = "get_all_item_prices"
	opMarketPriceData   = "get_price_data_for_items_on_sale"
	opAccountInventory  = "get_my_inventory"
	opInventoryOnSale   = "get_inventory_on_sale"
	opSpecificItems     = "get_specific_items_on_sale"
	opResetPriceItems   = "get_reset_price_items"
	opMoneyEvents       = "get_money_events"
	opRequestWithdrawal = "request_withdrawal"
	opBuyItem           = "buy_item"
	opListItemForSale   = "list_item_for_sale"
)

func (c *Client) do(ctx context.Context, op string, game Game, params ...param) (*Response, error) {
	query, err := encodeParams(op, game, params...)
	if err != nil {
		return nil, err
	}
	return c.call(ctx, op, query)
}

// GetAccountBalance returns the available and pending balance in every
// supported currency.
func (c *Client) GetAccountBalance(ctx context.Context) (*Response, error) {
	return c.do(ctx, opAccountBalance, DefaultGame)
}

// GetAllItemPrices returns the entire price database for game.
func (c *Client) GetAllItemPrices(ctx context.Context, game Game) (*Response, error) {
	game = game.orDefault()
	return c.do(ctx, opAllItemPrices, game, gameParam(game))
}

// GetMarketPriceData returns basic price data for items currently on sale.
func (c *Client) GetMarketPriceData(ctx context.Context, game Game) (*Response, error) {
	game = game.orDefault()
	return c.do(ctx, opMarketPriceData, game, gameParam(game))
}

// GetAccountInventory returns the Steam inventory, the BitSkins inventory and
// the pending withdrawal inventory. Only the newest 5000 BitSkins items are on
// a page.
func (c *Client) GetAccountInventory(ctx context.Context, game Game, page int) (*Response, error) {
	game = game.orDefault()
	return c.do(ctx, opAccountInventory, game, pageParam(page), gameParam(game))
}

// InventoryQuery filters GetInventoryOnSale. Zero values are left out. The
// four pointer flags only apply to CSGO; for CSGO an unset flag is sent as 0.
type InventoryQuery struct {
	Game     Game
	Page     int
	SortBy   SortBy
	Order    Order
	Name     string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	PerPage  int

	HasStickers           *bool
	IsStatTrak            *bool
	IsSouvenir            *bool
	ShowTradeDelayedItems *bool
}

// GetInventoryOnSale returns BitSkins listings matching q.
func (c *Client) GetInventoryOnSale(ctx context.Context, q InventoryQuery) (*Response, error) {
	game := q.Game.orDefault()

	sortBy := textParam("sort_by", string(q.SortBy))
	sortBy.oneOf = []string{string(SortByCreated), string(SortByPrice), string(SortByWearValue)}
	sortBy.rule = func(v string, g Game) string {
		if SortBy(v) == SortByWearValue && g != CSGO {
			return "wear_value sorting only applies to CSGO"
		}
		return ""
	}

	order := textParam("order", string(q.Order))
	order.oneOf = []string{string(Ascending), string(Descending)}

	perPage := textParam("per_page", "")
	if q.PerPage != 0 {
		perPage = textParam("per_page", strconv.Itoa(q.PerPage))
	}
	perPage.oneOf = itoaAll(PageSizes)

	return c.do(ctx, opInventoryOnSale, game,
		pageParam(q.Page),
		gameParam(game),
		sortBy,
		order,
		textParam("market_hash_name", q.Name),
		decimalParam("min_price", q.MinPrice),
		decimalParam("max_price", q.MaxPrice),
		flagParam("has_stickers", q.HasStickers, CSGO),
		flagParam("is_stattrak", q.IsStatTrak, CSGO),
		flagParam("is_souvenir", q.IsSouvenir, CSGO),
		flagParam("show_trade_delayed_items", q.ShowTradeDelayedItems, CSGO),
		perPage,
	)
}

// GetSpecificItemsOnSale returns on-sale data for up to MaxBatchItems ids.
func (c *Client) GetSpecificItemsOnSale(ctx context.Context, game Game, itemIDs []string) (*Response, error) {
	game = game.orDefault()
	ids := listParam("item_ids", itemIDs)
	ids.rule = itemIDRule
	return c.do(ctx, opSpecificItems, game, ids, gameParam(game))
}

// GetResetPriceItems pages through items whose price has to be reset. Such
// items carry ReservedPrice; see ResetPriceItem.Unpriced.
func (c *Client) GetResetPriceItems(ctx context.Context, game Game, page int) (*Response, error) {
	game = game.orDefault()
	return c.do(ctx, opResetPriceItems, game, pageParam(page), gameParam(game))
}

// GetMoneyEvents pages through the events that changed the balance.
func (c *Client) GetMoneyEvents(ctx context.Context, page int) (*Response, error) {
	return c.do(ctx, opMoneyEvents, DefaultGame, pageParam(page))
}

// WithdrawMoney requests a payout of amount. The service checks the balance
// and may answer concurrent calls with ErrLockContention.
func (c *Client) WithdrawMoney(ctx context.Context, amount decimal.Decimal, method WithdrawalMethod) (*Response, error) {
	if method == "" {
		return nil, usageErr(opRequestWithdrawal, "withdrawal_method", "is required")
	}

	amt := decimalParam("amount", &amount)
	amt.rule = func(string, Game) string {
		if !amount.GreaterThan(MinWithdrawal) {
			return "must exceed " + MinWithdrawal.StringFixed(2)
		}
		return ""
	}

	m := textParam("withdrawal_method", string(method))
	m.oneOf = []string{string(PayPal), string(Skrill)}

	return c.do(ctx, opRequestWithdrawal, DefaultGame, amt, m)
}

// BuyOrder pairs ItemIDs[i] with Prices[i]. Prices guard against the listing
// price changing before the call lands.
type BuyOrder struct {
	Game    Game
	ItemIDs []string
	Prices  []string

	// AutoTrade starts a trade offer for delivery. The service defaults to true.
	AutoTrade *bool
	// AllowTradeDelayed permits buying trade-delayed items.
	AllowTradeDelayed *bool
}

// BuyItems purchases the listed items.
func (c *Client) BuyItems(ctx context.Context, o BuyOrder) (*Response, error) {
	game := o.Game.orDefault()
	ids, prices, err := pairedLists(opBuyItem, o.ItemIDs, o.Prices, false)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, opBuyItem, game,
		ids,
		prices,
		gameParam(game),
		boolParam("auto_trade", o.AutoTrade),
		boolParam("allow_trade_delayed_purchases", o.AllowTradeDelayed),
	)
}

// SellOrder pairs ItemIDs[i] (Steam inventory ids) with Prices[i]. A price of
// InstantPrice sells the item immediately.
type SellOrder struct {
	Game    Game
	ItemIDs []string
	Prices  []string
}

// SellItems lists the items for sale. A BitSkins bot then asks for a trade.
func (c *Client) SellItems(ctx context.Context, o SellOrder) (*Response, error) {
	game := o.Game.orDefault()
	ids, prices, err := pairedLists(opListItemForSale, o.ItemIDs, o.Prices, true)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, opListItemForSale, game, ids, prices, gameParam(game))
}

func pairedLists(op string, ids, prices []string, allowInstant bool) (param, param, error) {
	if len(ids) != 0 && len(prices) != 0 && len(ids) != len(prices) {
		return param{}, param{}, usageErr(op, "prices", "got %d prices for %d item ids", len(prices), len(ids))
	}
	idp := listParam("item_ids", ids)
	idp.rule = itemIDRule
	pp := listParam("prices", prices)
	pp.rule = priceRule(allowInstant)
	return idp, pp, nil
}

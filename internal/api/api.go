package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"bitskins-trader/internal/models"
	"bitskins-trader/pkg/bitskins"
)

// MarketClient is the read side of the BitSkins client.
type MarketClient interface {
	GetAccountBalance(ctx context.Context) (*bitskins.Response, error)
	GetAllItemPrices(ctx context.Context, game bitskins.Game) (*bitskins.Response, error)
	GetMarketPriceData(ctx context.Context, game bitskins.Game) (*bitskins.Response, error)
	GetAccountInventory(ctx context.Context, game bitskins.Game, page int) (*bitskins.Response, error)
	GetInventoryOnSale(ctx context.Context, q bitskins.InventoryQuery) (*bitskins.Response, error)
	GetSpecificItemsOnSale(ctx context.Context, game bitskins.Game, itemIDs []string) (*bitskins.Response, error)
	GetResetPriceItems(ctx context.Context, game bitskins.Game, page int) (*bitskins.Response, error)
	GetMoneyEvents(ctx context.Context, page int) (*bitskins.Response, error)
}

type Trader interface {
	Buy(ctx context.Context, order bitskins.BuyOrder) (*bitskins.Response, error)
	Sell(ctx context.Context, order bitskins.SellOrder) (*bitskins.Response, error)
	Withdraw(ctx context.Context, amount decimal.Decimal, method bitskins.WithdrawalMethod) (*bitskins.Response, error)
	History(ctx context.Context, side string, limit int) ([]models.Trade, error)
	Withdrawals(ctx context.Context, limit int) ([]models.Withdrawal, error)
}

type PriceStore interface {
	Latest(ctx context.Context, game bitskins.Game, marketHashName string) (*models.PriceSnapshot, error)
	History(ctx context.Context, game bitskins.Game, marketHashName string, since time.Time) ([]models.PriceSnapshot, error)
	PendingResets(ctx context.Context, game bitskins.Game, page int) ([]bitskins.ResetPriceItem, error)
}

type APIHandler struct {
	market MarketClient
	trader Trader
	prices PriceStore
	log    logrus.FieldLogger
}

func SetupRoutes(r *gin.RouterGroup, market MarketClient, trader Trader, prices PriceStore, log logrus.FieldLogger) {
	handler := &APIHandler{
		market: market,
		trader: trader,
		prices: prices,
		log:    log,
	}

	account := r.Group("/account")
	{
		account.GET("/balance", handler.GetBalance)
		account.GET("/inventory", handler.GetInventory)
		account.GET("/money-events", handler.GetMoneyEvents)
		account.GET("/withdrawals", handler.GetWithdrawals)
		account.POST("/withdrawals", handler.Withdraw)
	}

	marketRoutes := r.Group("/market")
	{
		marketRoutes.GET("/prices", handler.GetAllItemPrices)
		marketRoutes.GET("/price-data", handler.GetMarketPriceData)
		marketRoutes.GET("/on-sale", handler.GetInventoryOnSale)
		marketRoutes.GET("/on-sale/items", handler.GetSpecificItemsOnSale)
		marketRoutes.GET("/reset-prices", handler.GetResetPriceItems)
	}

	trading := r.Group("/trading")
	{
		trading.POST("/buy", handler.BuyItems)
		trading.POST("/sell", handler.SellItems)
		trading.GET("/history", handler.GetTradeHistory)
	}

	snapshots := r.Group("/snapshots")
	{
		snapshots.GET("/latest", handler.GetLatestSnapshot)
		snapshots.GET("/history", handler.GetSnapshotHistory)
	}
}

// Account handlers
func (h *APIHandler) GetBalance(c *gin.Context) {
	resp, err := h.market.GetAccountBalance(c.Request.Context())
	h.respond(c, resp, err)
}

func (h *APIHandler) GetInventory(c *gin.Context) {
	game, page, ok := gameAndPage(c)
	if !ok {
		return
	}
	resp, err := h.market.GetAccountInventory(c.Request.Context(), game, page)
	h.respond(c, resp, err)
}

func (h *APIHandler) GetMoneyEvents(c *gin.Context) {
	_, page, ok := gameAndPage(c)
	if !ok {
		return
	}
	resp, err := h.market.GetMoneyEvents(c.Request.Context(), page)
	h.respond(c, resp, err)
}

func (h *APIHandler) GetWithdrawals(c *gin.Context) {
	withdrawals, err := h.trader.Withdrawals(c.Request.Context(), limitParam(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": withdrawals})
}

func (h *APIHandler) Withdraw(c *gin.Context) {
	var request struct {
		Amount decimal.Decimal `json:"amount"`
		Method string          `json:"method"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.trader.Withdraw(c.Request.Context(), request.Amount, bitskins.WithdrawalMethod(request.Method))
	h.respond(c, resp, err)
}

// Market handlers
func (h *APIHandler) GetAllItemPrices(c *gin.Context) {
	game, ok := gameParam(c)
	if !ok {
		return
	}
	resp, err := h.market.GetAllItemPrices(c.Request.Context(), game)
	h.respond(c, resp, err)
}

func (h *APIHandler) GetMarketPriceData(c *gin.Context) {
	game, ok := gameParam(c)
	if !ok {
		return
	}
	resp, err := h.market.GetMarketPriceData(c.Request.Context(), game)
	h.respond(c, resp, err)
}

type onSaleQuery struct {
	AppID                 int    `form:"app_id"`
	Page                  int    `form:"page"`
	SortBy                string `form:"sort_by"`
	Order                 string `form:"order"`
	Name                  string `form:"name"`
	MinPrice              string `form:"min_price"`
	MaxPrice              string `form:"max_price"`
	PerPage               int    `form:"per_page"`
	HasStickers           *bool  `form:"has_stickers"`
	IsStatTrak            *bool  `form:"is_stattrak"`
	IsSouvenir            *bool  `form:"is_souvenir"`
	ShowTradeDelayedItems *bool  `form:"show_trade_delayed_items"`
}

func (h *APIHandler) GetInventoryOnSale(c *gin.Context) {
	var request onSaleQuery
	if err := c.ShouldBindQuery(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	q := bitskins.InventoryQuery{
		Game:                  bitskins.Game(request.AppID),
		Page:                  request.Page,
		SortBy:                bitskins.SortBy(request.SortBy),
		Order:                 bitskins.Order(request.Order),
		Name:                  request.Name,
		PerPage:               request.PerPage,
		HasStickers:           request.HasStickers,
		IsStatTrak:            request.IsStatTrak,
		IsSouvenir:            request.IsSouvenir,
		ShowTradeDelayedItems: request.ShowTradeDelayedItems,
	}
	var err error
	if q.MinPrice, err = optionalDecimal(request.MinPrice); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid min_price"})
		return
	}
	if q.MaxPrice, err = optionalDecimal(request.MaxPrice); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid max_price"})
		return
	}

	resp, err := h.market.GetInventoryOnSale(c.Request.Context(), q)
	h.respond(c, resp, err)
}

func (h *APIHandler) GetSpecificItemsOnSale(c *gin.Context) {
	game, ok := gameParam(c)
	if !ok {
		return
	}
	var ids []string
	if raw := c.Query("item_ids"); raw != "" {
		ids = strings.Split(raw, ",")
	}
	resp, err := h.market.GetSpecificItemsOnSale(c.Request.Context(), game, ids)
	h.respond(c, resp, err)
}

// GetResetPriceItems passes the page through, or with pending=true returns
// only the items still at the reserved price.
func (h *APIHandler) GetResetPriceItems(c *gin.Context) {
	game, page, ok := gameAndPage(c)
	if !ok {
		return
	}

	if c.Query("pending") == "true" {
		items, err := h.prices.PendingResets(c.Request.Context(), game, page)
		if err != nil {
			h.respond(c, nil, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
		return
	}

	resp, err := h.market.GetResetPriceItems(c.Request.Context(), game, page)
	h.respond(c, resp, err)
}

// Trading handlers
func (h *APIHandler) BuyItems(c *gin.Context) {
	var request struct {
		AppID             int      `json:"app_id"`
		ItemIDs           []string `json:"item_ids"`
		Prices            []string `json:"prices"`
		AutoTrade         *bool    `json:"auto_trade"`
		AllowTradeDelayed *bool    `json:"allow_trade_delayed_purchases"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.trader.Buy(c.Request.Context(), bitskins.BuyOrder{
		Game:              bitskins.Game(request.AppID),
		ItemIDs:           request.ItemIDs,
		Prices:            request.Prices,
		AutoTrade:         request.AutoTrade,
		AllowTradeDelayed: request.AllowTradeDelayed,
	})
	h.respond(c, resp, err)
}

func (h *APIHandler) SellItems(c *gin.Context) {
	var request struct {
		AppID   int      `json:"app_id"`
		ItemIDs []string `json:"item_ids"`
		Prices  []string `json:"prices"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.trader.Sell(c.Request.Context(), bitskins.SellOrder{
		Game:    bitskins.Game(request.AppID),
		ItemIDs: request.ItemIDs,
		Prices:  request.Prices,
	})
	h.respond(c, resp, err)
}

func (h *APIHandler) GetTradeHistory(c *gin.Context) {
	side := c.Query("side")
	if side != "" && side != models.SideBuy && side != models.SideSell {
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be buy or sell"})
		return
	}

	trades, err := h.trader.History(c.Request.Context(), side, limitParam(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

// Snapshot handlers
func (h *APIHandler) GetLatestSnapshot(c *gin.Context) {
	game, ok := gameParam(c)
	if !ok {
		return
	}
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	snapshot, err := h.prices.Latest(c.Request.Context(), game, name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot for item"})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *APIHandler) GetSnapshotHistory(c *gin.Context) {
	game, ok := gameParam(c)
	if !ok {
		return
	}
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days"})
		return
	}

	history, err := h.prices.History(c.Request.Context(), game, name, time.Now().AddDate(0, 0, -days))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"item_name": name, "data": history})
}

// respond writes the BitSkins payload unchanged, or maps err onto a status.
func (h *APIHandler) respond(c *gin.Context, resp *bitskins.Response, err error) {
	if err == nil {
		c.JSON(http.StatusOK, resp)
		return
	}

	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.FullPath()).Error("bitskins call failed")
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": kindOf(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, bitskins.ErrUsage):
		return http.StatusBadRequest
	case errors.Is(err, bitskins.ErrLockContention):
		return http.StatusConflict
	case errors.Is(err, bitskins.ErrRemote):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, bitskins.ErrTransport), errors.Is(err, bitskins.ErrProtocol):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func kindOf(err error) string {
	switch {
	case errors.Is(err, bitskins.ErrUsage):
		return "usage"
	case errors.Is(err, bitskins.ErrLockContention):
		return "lock_contention"
	case errors.Is(err, bitskins.ErrRemote):
		return "remote"
	case errors.Is(err, bitskins.ErrTransport):
		return "transport"
	case errors.Is(err, bitskins.ErrProtocol):
		return "protocol"
	}
	return "internal"
}

func gameParam(c *gin.Context) (bitskins.Game, bool) {
	raw := c.Query("app_id")
	if raw == "" {
		return bitskins.DefaultGame, true
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid app_id"})
		return 0, false
	}
	return bitskins.Game(id), true
}

func gameAndPage(c *gin.Context) (bitskins.Game, int, bool) {
	game, ok := gameParam(c)
	if !ok {
		return 0, 0, false
	}
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return 0, 0, false
	}
	return game, page, true
}

func limitParam(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		return 50
	}
	return limit
}

func optionalDecimal(raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"tradingcore/internal/core"
)

// Config configures the REST client.
type Config struct {
	BaseURL string
	DryRun  bool
}

// Client is the live brokerage REST API client. It wraps a resty HTTP
// client with rate limiting, retry-on-5xx, and HMAC request signing.
type Client struct {
	http   *resty.Client
	auth   *Auth
	rl     *RateLimiter
	dryRun bool
	logger *slog.Logger
}

// NewClient creates a REST client with rate limiting and retry.
func NewClient(cfg Config, auth *Auth, rl *RateLimiter, logger *slog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		http:   httpClient,
		auth:   auth,
		rl:     rl,
		dryRun: cfg.DryRun,
		logger: logger.With("component", "exchange_client"),
	}
}

// orderRequest is the wire payload for order submission.
type orderRequest struct {
	ClientOrderID string `json:"clientOrderId"`
	Symbol        string `json:"symbol"`
	Quantity      int64  `json:"quantity"`
	LimitPrice    string `json:"limitPrice"`
}

// orderResponse is the wire payload returned by the venue for both
// submission and status-query requests.
type orderResponse struct {
	OrderID        string `json:"orderId"`
	Status         string `json:"status"`
	FilledQuantity int64  `json:"filledQuantity"`
}

// venueStatus maps a venue-reported status string onto core.OrderStatus.
func venueStatus(s string) core.OrderStatus {
	switch s {
	case "pending":
		return core.Pending
	case "open", "active":
		return core.Active
	case "partially_filled":
		return core.PartiallyFilled
	case "filled":
		return core.Filled
	case "cancelled", "canceled":
		return core.Canceled
	default:
		return core.Failed
	}
}

// SubmitOrder places order with the venue and returns the resulting update.
func (c *Client) SubmitOrder(ctx context.Context, order *core.Order) (*core.OrderUpdate, error) {
	if c.dryRun {
		c.logger.Info("DRY-RUN: would submit order", "order_id", order.ID, "symbol", order.Symbol)
		order.Status = core.Active
		return &core.OrderUpdate{Order: order}, nil
	}
	if err := c.rl.Submit.Wait(ctx); err != nil {
		return nil, err
	}

	req := orderRequest{
		ClientOrderID: order.ID,
		Symbol:        order.Symbol,
		Quantity:      order.Quantity,
		LimitPrice:    order.LimitPrice.String(),
	}
	body, err := req.marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}
	headers, err := c.auth.Headers(http.MethodPost, "/orders", body)
	if err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}

	var result orderResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetBody(req).
		SetResult(&result).
		Post("/orders")
	if err != nil {
		return nil, &core.ExecutionFailedError{Reason: "submit order", Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &core.ExecutionFailedError{Reason: fmt.Sprintf("submit order: status %d: %s", resp.StatusCode(), resp.String())}
	}

	order.Status = venueStatus(result.Status)
	order.FilledQuantity = result.FilledQuantity
	return &core.OrderUpdate{Order: order}, nil
}

// CancelOrder cancels a single open order by ID.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if c.dryRun {
		c.logger.Info("DRY-RUN: would cancel order", "order_id", orderID)
		return nil
	}
	if err := c.rl.Cancel.Wait(ctx); err != nil {
		return err
	}

	path := "/orders/" + orderID
	headers, err := c.auth.Headers(http.MethodDelete, path, "")
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		Delete(path)
	if err != nil {
		return &core.ExecutionFailedError{Reason: "cancel order", Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return &core.ExecutionFailedError{Reason: fmt.Sprintf("cancel order: status %d: %s", resp.StatusCode(), resp.String())}
	}
	return nil
}

// OrderStatus queries the venue for the current state of orderID.
func (c *Client) OrderStatus(ctx context.Context, orderID string) (core.OrderStatus, int64, error) {
	if err := c.rl.Query.Wait(ctx); err != nil {
		return core.Failed, 0, err
	}

	headers, err := c.auth.Headers(http.MethodGet, "/orders/"+orderID, "")
	if err != nil {
		return core.Failed, 0, fmt.Errorf("sign request: %w", err)
	}

	var result orderResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetResult(&result).
		Get("/orders/" + orderID)
	if err != nil {
		return core.Failed, 0, &core.ExecutionFailedError{Reason: "query order status", Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return core.Failed, 0, &core.ExecutionFailedError{Reason: fmt.Sprintf("query order status: status %d: %s", resp.StatusCode(), resp.String())}
	}
	return venueStatus(result.Status), result.FilledQuantity, nil
}

// accountResponse is the wire payload returned by the venue's account
// endpoint.
type accountResponse struct {
	Cash           string                  `json:"cash"`
	BuyingPower    string                  `json:"buyingPower"`
	PortfolioValue string                  `json:"portfolioValue"`
	Positions      map[string]positionWire `json:"positions"`
	OpenOrders     []orderWire             `json:"openOrders"`
}

type positionWire struct {
	Quantity int64  `json:"quantity"`
	AvgPrice string `json:"avgPrice"`
}

type orderWire struct {
	OrderID        string `json:"orderId"`
	Symbol         string `json:"symbol"`
	Quantity       int64  `json:"quantity"`
	LimitPrice     string `json:"limitPrice"`
	Status         string `json:"status"`
	FilledQuantity int64  `json:"filledQuantity"`
}

// AccountState fetches the current account snapshot: cash, buying power,
// portfolio value, open positions and working orders.
func (c *Client) AccountState(ctx context.Context) (*core.AccountState, error) {
	if err := c.rl.Query.Wait(ctx); err != nil {
		return nil, err
	}

	headers, err := c.auth.Headers(http.MethodGet, "/account", "")
	if err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}

	var result accountResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetResult(&result).
		Get("/account")
	if err != nil {
		return nil, &core.ExecutionFailedError{Reason: "fetch account state", Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &core.ExecutionFailedError{Reason: fmt.Sprintf("fetch account state: status %d: %s", resp.StatusCode(), resp.String())}
	}

	cash, err := decimal.NewFromString(result.Cash)
	if err != nil {
		return nil, fmt.Errorf("parse cash: %w", err)
	}
	buyingPower, err := decimal.NewFromString(result.BuyingPower)
	if err != nil {
		return nil, fmt.Errorf("parse buying power: %w", err)
	}
	portfolioValue, err := decimal.NewFromString(result.PortfolioValue)
	if err != nil {
		return nil, fmt.Errorf("parse portfolio value: %w", err)
	}

	positions := make(map[string]core.Holding, len(result.Positions))
	for symbol, p := range result.Positions {
		avgPrice, err := decimal.NewFromString(p.AvgPrice)
		if err != nil {
			return nil, fmt.Errorf("parse position avg price for %s: %w", symbol, err)
		}
		positions[symbol] = core.Holding{Quantity: p.Quantity, AvgPrice: avgPrice}
	}

	openOrders := make([]core.Order, 0, len(result.OpenOrders))
	for _, o := range result.OpenOrders {
		limitPrice, err := decimal.NewFromString(o.LimitPrice)
		if err != nil {
			return nil, fmt.Errorf("parse open order limit price for %s: %w", o.OrderID, err)
		}
		openOrders = append(openOrders, core.Order{
			ID:             o.OrderID,
			Symbol:         o.Symbol,
			Quantity:       o.Quantity,
			LimitPrice:     limitPrice,
			Status:         venueStatus(o.Status),
			FilledQuantity: o.FilledQuantity,
		})
	}

	return &core.AccountState{
		Cash:           cash,
		BuyingPower:    buyingPower,
		PortfolioValue: portfolioValue,
		Positions:      positions,
		OpenOrders:     openOrders,
	}, nil
}

func (r orderRequest) marshal() (string, error) {
	price, err := decimal.NewFromString(r.LimitPrice)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`{"clientOrderId":%q,"symbol":%q,"quantity":%d,"limitPrice":%q}`,
		r.ClientOrderID, r.Symbol, r.Quantity, price.String()), nil
}

package relay

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ── Purchase save server ──────────────────────────────────────────────────────

// SaveNewPurchase submits a signed purchase record to the save server.
func (c *Client) SaveNewPurchase(ctx context.Context, req SaveNewPurchaseRequest) error {
	return c.do(ctx, http.MethodPost, c.saveURL, "/v2/tx/purchase/new", req, nil)
}

// SaveCancelPurchase submits a signed cancellation of a saved purchase.
func (c *Client) SaveCancelPurchase(ctx context.Context, req SaveCancelPurchaseRequest) error {
	return c.do(ctx, http.MethodPost, c.saveURL, "/v2/tx/purchase/cancel", req, nil)
}

// ── Settlement ────────────────────────────────────────────────────────────────

// SettlementClientLength returns how many shops settle through shopID.
func (c *Client) SettlementClientLength(ctx context.Context, shopID string) (int, error) {
	var out struct {
		Length int `json:"length"`
	}
	if err := c.get(ctx, "/v1/shop/settlement/client/length/"+seg(shopID), &out); err != nil {
		return 0, err
	}
	return out.Length, nil
}

// SettlementClientList returns client shop ids in [start, end).
func (c *Client) SettlementClientList(ctx context.Context, shopID string, start, end int) ([]string, error) {
	q := url.Values{}
	q.Set("startIndex", strconv.Itoa(start))
	q.Set("endIndex", strconv.Itoa(end))
	var out struct {
		Clients []string `json:"clients"`
	}
	if err := c.get(ctx, "/v1/shop/settlement/client/list/"+seg(shopID)+"?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out.Clients, nil
}

func (c *Client) CollectSettlement(ctx context.Context, req CollectSettlementRequest) (string, error) {
	return c.txHash(ctx, "/v1/shop/settlement/collect", req)
}

func (c *Client) ShopInfo(ctx context.Context, shopID string) (*ShopInfo, error) {
	var out ShopInfo
	if err := c.get(ctx, "/v1/shop/info/"+seg(shopID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Refundable(ctx context.Context, shopID string) (*Refundable, error) {
	var out Refundable
	if err := c.get(ctx, "/v1/shop/refundable/"+seg(shopID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Refund(ctx context.Context, req RefundRequest) (string, error) {
	return c.txHash(ctx, "/v1/shop/refund", req)
}

func (c *Client) SetSettlementManager(ctx context.Context, req SettlementManagerRequest) (string, error) {
	return c.txHash(ctx, "/v1/shop/settlement/manager/set", req)
}

func (c *Client) RemoveSettlementManager(ctx context.Context, req SettlementManagerRequest) (string, error) {
	return c.txHash(ctx, "/v1/shop/settlement/manager/remove", req)
}

// SettlementManager returns the manager shop id of shopID, or the zero id.
func (c *Client) SettlementManager(ctx context.Context, shopID string) (string, error) {
	var out struct {
		ManagerID string `json:"managerId"`
	}
	if err := c.get(ctx, "/v1/shop/settlement/manager/get/"+seg(shopID), &out); err != nil {
		return "", err
	}
	return out.ManagerID, nil
}

// ── Provider ──────────────────────────────────────────────────────────────────

// IsProvider reports whether account may provide points.
func (c *Client) IsProvider(ctx context.Context, account string) (bool, error) {
	var out struct {
		Enable bool `json:"enable"`
	}
	if err := c.get(ctx, "/v1/provider/status/"+seg(account), &out); err != nil {
		return false, err
	}
	return out.Enable, nil
}

func (c *Client) RegisterAssistant(ctx context.Context, req RegisterAssistantRequest) (string, error) {
	return c.txHash(ctx, "/v1/provider/assistant/register", req)
}

// Assistant returns the assistant registered for provider.
func (c *Client) Assistant(ctx context.Context, provider string) (string, error) {
	var out struct {
		Assistant string `json:"assistant"`
	}
	if err := c.get(ctx, "/v1/provider/assistant/"+seg(provider), &out); err != nil {
		return "", err
	}
	return out.Assistant, nil
}

func (c *Client) ProvideToAccount(ctx context.Context, req ProvideRequest) (string, error) {
	return c.txHash(ctx, "/v1/provider/send/account", req)
}

func (c *Client) ProvideToPhoneHash(ctx context.Context, req ProvideRequest) (string, error) {
	return c.txHash(ctx, "/v1/provider/send/phoneHash", req)
}

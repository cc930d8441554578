package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/0gfoundation/0g-points-relay/internal/errs"
)

// PaymentInfo asks the relay how many points paying amount would take.
func (c *Client) PaymentInfo(ctx context.Context, account string, amount *big.Int, currency string) (*PaymentInfo, error) {
	q := url.Values{}
	q.Set("account", account)
	q.Set("amount", amount.String())
	q.Set("currency", currency)
	var out PaymentInfo
	if err := c.get(ctx, "/v2/payment/info?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TemporaryAccount exchanges a signed account message for a temporary
// payment account.
func (c *Client) TemporaryAccount(ctx context.Context, req TemporaryAccountRequest) (string, error) {
	var out struct {
		TemporaryAccount string `json:"temporaryAccount"`
	}
	if err := c.post(ctx, "/v1/payment/account/temporary", req, &out); err != nil {
		return "", err
	}
	return out.TemporaryAccount, nil
}

func (c *Client) paymentItem(ctx context.Context, path string, body any) (*PaymentTaskItem, error) {
	var out PaymentTaskItem
	if err := c.post(ctx, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) OpenNewPayment(ctx context.Context, req OpenNewPaymentRequest) (*PaymentTaskItem, error) {
	return c.paymentItem(ctx, "/v2/payment/new/open", req)
}

func (c *Client) CloseNewPayment(ctx context.Context, req ClosePaymentRequest) (*PaymentTaskItem, error) {
	return c.paymentItem(ctx, "/v2/payment/new/close", req)
}

func (c *Client) OpenCancelPayment(ctx context.Context, req OpenCancelPaymentRequest) (*PaymentTaskItem, error) {
	return c.paymentItem(ctx, "/v2/payment/cancel/open", req)
}

func (c *Client) CloseCancelPayment(ctx context.Context, req ClosePaymentRequest) (*PaymentTaskItem, error) {
	return c.paymentItem(ctx, "/v2/payment/cancel/close", req)
}

func (c *Client) ApproveNewPayment(ctx context.Context, req ApprovalRequest) (*PaymentTaskItem, error) {
	return c.paymentItem(ctx, "/v1/payment/new/approval", req)
}

func (c *Client) ApproveCancelPayment(ctx context.Context, req ApprovalRequest) (*PaymentTaskItem, error) {
	return c.paymentItem(ctx, "/v1/payment/cancel/approval", req)
}

// PaymentItem fetches the current record of a payment.
func (c *Client) PaymentItem(ctx context.Context, paymentID string) (*PaymentTaskItem, error) {
	var out PaymentTaskItem
	q := url.Values{}
	q.Set("paymentId", paymentID)
	if err := c.get(ctx, "/v2/payment/item?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ── Task events ───────────────────────────────────────────────────────────────

// LatestTaskSequence returns the sequence of the newest task event.
func (c *Client) LatestTaskSequence(ctx context.Context) (uint64, error) {
	var out struct {
		Sequence Int `json:"sequence"`
	}
	if err := c.get(ctx, "/v1/task/sequence/latest", &out); err != nil {
		return 0, err
	}
	if out.Sequence.Sign() < 0 || !out.Sequence.IsUint64() {
		return 0, &errs.TransportError{Op: "GET /v1/task/sequence/latest", URL: c.relayURL,
			Err: fmt.Errorf("invalid sequence %s", out.Sequence.String())}
	}
	return out.Sequence.Uint64(), nil
}

// Tasks returns the task events with a sequence greater than since, in the
// order the relay lists them.
func (c *Client) Tasks(ctx context.Context, since uint64) ([]Task, error) {
	path := "/v1/task/list/" + strconv.FormatUint(since, 10)
	data, err := c.call(ctx, http.MethodGet, c.relayURL, path, nil)
	if err != nil {
		return nil, err
	}
	return decodeTasks(data)
}

// decodeTasks picks the payload shape from each entry's type field.
func decodeTasks(data []byte) ([]Task, error) {
	list := gjson.ParseBytes(data)
	if !list.IsArray() {
		if list.Type == gjson.Null {
			return nil, nil
		}
		return nil, &errs.TransportError{Op: "decode tasks", Err: fmt.Errorf("task list is not an array")}
	}

	var (
		tasks []Task
		derr  error
	)
	list.ForEach(func(_, item gjson.Result) bool {
		t := Task{
			Sequence: item.Get("sequence").Uint(),
			Type:     item.Get("type").String(),
			Code:     int(item.Get("code").Int()),
			Message:  item.Get("message").String(),
		}
		payload := item.Get("data")
		switch {
		case !payload.IsObject():
			// no payload; still listed so the watermark can pass it
		case IsPayment(t.Type):
			var p PaymentTaskItem
			if err := json.Unmarshal([]byte(payload.Raw), &p); err != nil {
				derr = fmt.Errorf("task %d: %w", t.Sequence, err)
				return false
			}
			t.Payment = &p
		default:
			var s ShopTaskItem
			if err := json.Unmarshal([]byte(payload.Raw), &s); err != nil {
				derr = fmt.Errorf("task %d: %w", t.Sequence, err)
				return false
			}
			t.Shop = &s
		}
		tasks = append(tasks, t)
		return true
	})
	if derr != nil {
		return nil, &errs.TransportError{Op: "decode tasks", Err: derr}
	}
	return tasks, nil
}

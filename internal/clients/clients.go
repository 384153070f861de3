// Package clients bundles the outbound HTTP calls the pipeline makes to its
// collaborators: the order persistence service (which also prices previews)
// and the payment service (intents and ledger reconciliation).
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	ord "github.com/MikeMC777/pos-checkout/internal/order"
)

type Intent struct {
	QRPayload       string `json:"qr_payload"`
	AccountNumber   string `json:"account_number"`
	BankCode        string `json:"bank_code"`
	TransferContent string `json:"transfer_content"`
}

type Ext struct {
	HTTP           *http.Client
	OrderBaseURL   string
	PaymentBaseURL string
}

func NewExt(orderBaseURL, paymentBaseURL string) *Ext {
	return &Ext{
		HTTP:           &http.Client{Timeout: 5 * time.Second},
		OrderBaseURL:   orderBaseURL,
		PaymentBaseURL: paymentBaseURL,
	}
}

// Preview asks the pricing endpoint to recompute totals for the given lines.
func (e *Ext) Preview(ctx context.Context, lines []ord.CreateOrderLine) (*ord.PricingPreview, error) {
	var out ord.PricingPreview
	err := e.postJSON(ctx, e.OrderBaseURL+"/orders/preview", ord.PreviewRequest{Lines: lines}, &out, nil)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *Ext) CreateOrder(ctx context.Context, req ord.CreateOrderRequest) (*ord.CreateOrderResponse, error) {
	var out ord.CreateOrderResponse
	err := e.postJSON(ctx, e.OrderBaseURL+"/orders", req, &out, nil)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *Ext) GetOrder(ctx context.Context, id string) (*ord.Order, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/orders/%s", e.OrderBaseURL, id), nil)
	if err != nil {
		return nil, err
	}
	var out ord.Order
	if err := e.do(req, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStatus requests one transition. A 409 reply means the order is
// already at or past the target; the authoritative record is still returned
// so the caller can adopt it, alongside ErrConflict.
func (e *Ext) UpdateStatus(ctx context.Context, id string, to ord.Status, note string) (*ord.Order, error) {
	var out ord.Order
	var conflict ord.Order
	err := e.patchJSON(ctx, fmt.Sprintf("%s/orders/%s/status", e.OrderBaseURL, id),
		ord.StatusPatchRequest{Status: to, Note: note}, &out, &conflict)
	if err == ErrConflict {
		return &conflict, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *Ext) UpdatePaymentStatus(ctx context.Context, id string, ps ord.PaymentStatus) (*ord.Order, error) {
	var out ord.Order
	err := e.patchJSON(ctx, fmt.Sprintf("%s/orders/%s/payment-status", e.OrderBaseURL, id),
		ord.PaymentStatusPatchRequest{PaymentStatus: ps}, &out, nil)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *Ext) CreateIntent(ctx context.Context, orderID, amount string) (*Intent, error) {
	var out Intent
	body := map[string]string{"order_id": orderID, "amount": amount}
	if err := e.postJSON(ctx, e.PaymentBaseURL+"/payment-intents", body, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckMatch asks the ledger whether an incoming transfer with this content
// token and amount has been observed.
func (e *Ext) CheckMatch(ctx context.Context, content, amount string) (bool, error) {
	u := fmt.Sprintf("%s/payment-match?content=%s&amount=%s",
		e.PaymentBaseURL, url.QueryEscape(content), url.QueryEscape(amount))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	var out struct {
		Matched bool `json:"matched"`
	}
	if err := e.do(req, &out, nil); err != nil {
		return false, err
	}
	return out.Matched, nil
}

func (e *Ext) postJSON(ctx context.Context, url string, in, out, conflictOut any) error {
	return e.sendJSON(ctx, http.MethodPost, url, in, out, conflictOut)
}

func (e *Ext) patchJSON(ctx context.Context, url string, in, out, conflictOut any) error {
	return e.sendJSON(ctx, http.MethodPatch, url, in, out, conflictOut)
}

func (e *Ext) sendJSON(ctx context.Context, method, url string, in, out, conflictOut any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return e.do(req, out, conflictOut)
}

func (e *Ext) do(req *http.Request, out, conflictOut any) error {
	res, err := e.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		if out == nil {
			return nil
		}
		return json.NewDecoder(res.Body).Decode(out)
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, ErrUnauthorized)
	case res.StatusCode == http.StatusConflict && conflictOut != nil:
		if err := json.NewDecoder(res.Body).Decode(conflictOut); err != nil {
			return &StatusError{Code: res.StatusCode, Msg: "conflict without body"}
		}
		return ErrConflict
	default:
		var er struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(res.Body).Decode(&er)
		return &StatusError{Code: res.StatusCode, Msg: er.Error}
	}
}

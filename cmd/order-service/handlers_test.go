package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	ord "github.com/MikeMC777/pos-checkout/internal/order"
)

//
// ---------- STUBS & FAKES ----------
//

// stubRepo implements ord.Repository in memory, with the same transition
// guard as the real repo.
type stubRepo struct {
	lastOrder *ord.Order
	lastLines []ord.Line
	createErr error
}

func (s *stubRepo) Create(ctx context.Context, o *ord.Order, lines []ord.Line) error {
	if s.createErr != nil {
		return s.createErr
	}
	cp := *o
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	s.lastOrder = &cp
	s.lastLines = append([]ord.Line(nil), lines...)
	return nil
}

func (s *stubRepo) GetByID(ctx context.Context, id string) (*ord.Order, []ord.Line, error) {
	if s.lastOrder == nil || s.lastOrder.ID != id {
		return nil, nil, ord.ErrNotFound
	}
	cp := *s.lastOrder
	return &cp, s.lastLines, nil
}

func (s *stubRepo) Advance(ctx context.Context, id string, to ord.Status) (*ord.Order, error) {
	if s.lastOrder == nil || s.lastOrder.ID != id {
		return nil, ord.ErrNotFound
	}
	if err := ord.CheckTransition(s.lastOrder.Status, to); err != nil {
		cp := *s.lastOrder
		return &cp, err
	}
	s.lastOrder.Status = to
	s.lastOrder.UpdatedAt = time.Now()
	cp := *s.lastOrder
	return &cp, nil
}

func (s *stubRepo) SetPaymentStatus(ctx context.Context, id string, ps ord.PaymentStatus) (*ord.Order, error) {
	if s.lastOrder == nil || s.lastOrder.ID != id {
		return nil, ord.ErrNotFound
	}
	s.lastOrder.PaymentStatus = ps
	cp := *s.lastOrder
	return &cp, nil
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body == "" {
		reader = bytes.NewBufferString("")
	} else {
		reader = bytes.NewBufferString(body)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func createTestOrder(t *testing.T, r *gin.Engine) string {
	t.Helper()
	body := `{"payment_method":"COD","lines":[{"line_item_id":"7","quantity":2,"unit_price":"50000"}]}`
	w := doJSON(t, r, http.MethodPost, "/orders", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", w.Code, w.Body.String())
	}
	var res ord.CreateOrderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("json inválido: %v", err)
	}
	if res.Status != ord.StatusPending {
		t.Fatalf("status=%s, esperaba PENDING", res.Status)
	}
	return res.ID
}

//
// ---------- TESTS ----------
//

func TestCreateOrder_HappyPath(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{}
	gin.SetMode(gin.TestMode)
	r := buildRouter(repo)

	id := createTestOrder(t, r)

	if repo.lastOrder == nil || repo.lastOrder.ID != id {
		t.Fatal("no se persistió la orden")
	}
	// total recomputed server-side: 100000 + shipping 20000 + VAT 8000
	if repo.lastOrder.Total != "128000" {
		t.Fatalf("total=%s, esperaba 128000", repo.lastOrder.Total)
	}
	if len(repo.lastLines) != 1 || repo.lastLines[0].Subtotal != "100000" {
		t.Fatalf("lines=%+v", repo.lastLines)
	}
	if repo.lastOrder.PaymentStatus != ord.PaymentUnpaid {
		t.Fatalf("payment=%s, esperaba UNPAID", repo.lastOrder.PaymentStatus)
	}
}

func TestCreateOrder_Validation(t *testing.T) {
	t.Parallel()

	gin.SetMode(gin.TestMode)
	r := buildRouter(&stubRepo{})

	cases := []struct {
		name string
		body string
	}{
		{"empty lines", `{"payment_method":"COD","lines":[]}`},
		{"bad method", `{"payment_method":"CHECK","lines":[{"line_item_id":"7","quantity":1,"unit_price":"10"}]}`},
		{"zero quantity", `{"payment_method":"COD","lines":[{"line_item_id":"7","quantity":0,"unit_price":"10"}]}`},
		{"bad price", `{"payment_method":"COD","lines":[{"line_item_id":"7","quantity":1,"unit_price":"x"}]}`},
	}
	for _, tc := range cases {
		w := doJSON(t, r, http.MethodPost, "/orders", tc.body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d body=%s (esperaba 400)", tc.name, w.Code, w.Body.String())
		}
	}
}

func TestPreview_RespondsQuote(t *testing.T) {
	t.Parallel()

	gin.SetMode(gin.TestMode)
	r := buildRouter(&stubRepo{})

	body := `{"lines":[{"line_item_id":"7","quantity":2,"unit_price":"50000"}]}`
	w := doJSON(t, r, http.MethodPost, "/orders/preview", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var p ord.PricingPreview
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("json inválido: %v", err)
	}
	if p.OriginalAmount != "100000" || p.FinalAmount != "128000" {
		t.Fatalf("preview=%+v", p)
	}
	if p.AppliedPromotions == nil || p.GiftItems == nil {
		t.Fatal("promotions/gifts deben serializarse como [] y no null")
	}
}

func TestPatchStatus_WalksThePath(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{}
	gin.SetMode(gin.TestMode)
	r := buildRouter(repo)
	id := createTestOrder(t, r)

	for _, st := range []ord.Status{ord.StatusConfirmed, ord.StatusDelivering, ord.StatusCompleted} {
		body := fmt.Sprintf(`{"status":%q,"note":"paso"}`, st)
		w := doJSON(t, r, http.MethodPatch, "/orders/"+id+"/status", body)
		if w.Code != http.StatusOK {
			t.Fatalf("transición a %s: status=%d body=%s", st, w.Code, w.Body.String())
		}
	}
	if repo.lastOrder.Status != ord.StatusCompleted {
		t.Fatalf("status final=%s", repo.lastOrder.Status)
	}
}

func TestPatchStatus_RepeatIsConflictWithRecord(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{}
	gin.SetMode(gin.TestMode)
	r := buildRouter(repo)
	id := createTestOrder(t, r)

	body := `{"status":"CONFIRMED"}`
	if w := doJSON(t, r, http.MethodPatch, "/orders/"+id+"/status", body); w.Code != http.StatusOK {
		t.Fatalf("primera transición: status=%d", w.Code)
	}
	w := doJSON(t, r, http.MethodPatch, "/orders/"+id+"/status", body)
	if w.Code != http.StatusConflict {
		t.Fatalf("status=%d, esperaba 409", w.Code)
	}
	// the 409 body must be the authoritative record, not an error shape
	var rec ord.Order
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil || rec.Status != ord.StatusConfirmed {
		t.Fatalf("body=%s err=%v", w.Body.String(), err)
	}
}

func TestPatchStatus_SkipIsRejected(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{}
	gin.SetMode(gin.TestMode)
	r := buildRouter(repo)
	id := createTestOrder(t, r)

	w := doJSON(t, r, http.MethodPatch, "/orders/"+id+"/status", `{"status":"DELIVERING"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d, esperaba 422 (salto PENDING→DELIVERING)", w.Code)
	}
	if repo.lastOrder.Status != ord.StatusPending {
		t.Fatalf("status=%s, la orden no debe moverse", repo.lastOrder.Status)
	}
}

func TestPatchStatus_CancelRules(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{}
	gin.SetMode(gin.TestMode)
	r := buildRouter(repo)
	id := createTestOrder(t, r)

	// cancel-from-PENDING is legal
	if w := doJSON(t, r, http.MethodPatch, "/orders/"+id+"/status", `{"status":"CANCELLED"}`); w.Code != http.StatusOK {
		t.Fatalf("cancel desde PENDING: status=%d", w.Code)
	}

	// a delivering order cannot be cancelled
	repo2 := &stubRepo{}
	r2 := buildRouter(repo2)
	id2 := createTestOrder(t, r2)
	repo2.lastOrder.Status = ord.StatusDelivering
	if w := doJSON(t, r2, http.MethodPatch, "/orders/"+id2+"/status", `{"status":"CANCELLED"}`); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("cancel desde DELIVERING: status=%d, esperaba 422", w.Code)
	}
}

func TestPatchPaymentStatus(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{}
	gin.SetMode(gin.TestMode)
	r := buildRouter(repo)
	id := createTestOrder(t, r)

	w := doJSON(t, r, http.MethodPatch, "/orders/"+id+"/payment-status", `{"payment_status":"PAID"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if repo.lastOrder.PaymentStatus != ord.PaymentPaid {
		t.Fatalf("payment=%s", repo.lastOrder.PaymentStatus)
	}
	// PAID -> PAID is idempotent
	if w := doJSON(t, r, http.MethodPatch, "/orders/"+id+"/payment-status", `{"payment_status":"PAID"}`); w.Code != http.StatusOK {
		t.Fatalf("repetición: status=%d", w.Code)
	}
	// UNPAID cannot be restored
	if w := doJSON(t, r, http.MethodPatch, "/orders/"+id+"/payment-status", `{"payment_status":"UNPAID"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("UNPAID: status=%d, esperaba 400", w.Code)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	t.Parallel()

	gin.SetMode(gin.TestMode)
	r := buildRouter(&stubRepo{})

	w := doJSON(t, r, http.MethodGet, "/orders/"+uuid.NewString(), "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d, esperaba 404", w.Code)
	}
}

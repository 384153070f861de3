package main

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/pos-checkout/internal/cart"
	"github.com/MikeMC777/pos-checkout/internal/checkout"
	"github.com/MikeMC777/pos-checkout/internal/clients"
	"github.com/MikeMC777/pos-checkout/internal/fulfillment"
	"github.com/MikeMC777/pos-checkout/internal/httpx"
	ord "github.com/MikeMC777/pos-checkout/internal/order"
)

func buildRouter(p *pipeline) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger())

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	r.POST("/cart/items", upsertItemHandler(p))
	r.PATCH("/cart/items/:line_item_id", setQuantityHandler(p))
	r.DELETE("/cart/items/:line_item_id", removeItemHandler(p))
	r.GET("/cart", cartHandler(p))

	r.POST("/checkout", checkoutHandler(p))
	r.GET("/order", orderHandler(p))
	r.POST("/order/cancel", cancelOrderHandler(p))
	r.POST("/payment/cancel", cancelPaymentHandler(p))
	r.POST("/session/reset", resetHandler(p))

	return r
}

type upsertItemRequest struct {
	LineItemID string `json:"line_item_id"`
	Quantity   int    `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
}

func upsertItemHandler(p *pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req upsertItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Error(c, http.StatusBadRequest, "json inválido")
			return
		}
		p.mu.Lock()
		err := p.draft.Upsert(req.LineItemID, req.Quantity, req.UnitPrice)
		snap := p.draft.Snapshot()
		p.mu.Unlock()
		if err != nil {
			httpx.Error(c, http.StatusBadRequest, err.Error())
			return
		}
		p.engine.Trigger(snap)
		c.JSON(http.StatusOK, gin.H{"revision": snap.Revision, "lines": snap.Lines})
	}
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func setQuantityHandler(p *pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req setQuantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Error(c, http.StatusBadRequest, "json inválido")
			return
		}
		p.mu.Lock()
		err := p.draft.SetQuantity(c.Param("line_item_id"), req.Quantity)
		snap := p.draft.Snapshot()
		p.mu.Unlock()
		if err != nil {
			code := http.StatusBadRequest
			if errors.Is(err, cart.ErrLineMissing) {
				code = http.StatusNotFound
			}
			httpx.Error(c, code, err.Error())
			return
		}
		p.engine.Trigger(snap)
		c.JSON(http.StatusOK, gin.H{"revision": snap.Revision, "lines": snap.Lines})
	}
}

func removeItemHandler(p *pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		p.mu.Lock()
		err := p.draft.Remove(c.Param("line_item_id"))
		snap := p.draft.Snapshot()
		p.mu.Unlock()
		if err != nil {
			httpx.Error(c, http.StatusNotFound, err.Error())
			return
		}
		p.engine.Trigger(snap)
		c.JSON(http.StatusOK, gin.H{"revision": snap.Revision, "lines": snap.Lines})
	}
}

// cartHandler returns the draft plus whatever preview has been applied so
// far. The preview may lag the draft by one debounce window; applied_revision
// says which edit it prices.
func cartHandler(p *pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		p.mu.Lock()
		snap := p.draft.Snapshot()
		p.mu.Unlock()
		preview, appliedRev, lastErr := p.engine.Current()

		resp := gin.H{
			"revision":     snap.Revision,
			"lines":        snap.Lines,
			"auth_expired": p.engine.AuthExpired(),
		}
		if preview != nil {
			resp["preview"] = preview
			resp["applied_revision"] = appliedRev
		}
		if lastErr != nil {
			resp["preview_error"] = lastErr.Error()
		}
		c.JSON(http.StatusOK, resp)
	}
}

type checkoutRequest struct {
	CustomerID      string            `json:"customer_id"`
	Anonymous       *bool             `json:"anonymous"`
	PaymentMethod   ord.PaymentMethod `json:"payment_method"`
	ShippingAddress string            `json:"shipping_address"`
	Notes           string            `json:"notes"`
}

func checkoutHandler(p *pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Error(c, http.StatusBadRequest, "json inválido")
			return
		}
		if req.PaymentMethod != ord.PaymentMethodCOD && req.PaymentMethod != ord.PaymentMethodBankTransfer {
			httpx.Error(c, http.StatusBadRequest, "payment_method debe ser COD o BANK_TRANSFER")
			return
		}

		p.mu.Lock()
		defer p.mu.Unlock()

		p.draft.CustomerID = req.CustomerID
		if req.Anonymous != nil {
			p.draft.Anonymous = *req.Anonymous
		}
		p.draft.PaymentMethod = req.PaymentMethod
		p.draft.ShippingAddress = req.ShippingAddress
		p.draft.Notes = req.Notes

		created, err := p.submitter.Submit(c.Request.Context(), p.draft)
		if err != nil {
			writeSubmitError(c, err)
			return
		}

		// the new checkout supersedes whatever run was active; stop it
		// before starting anything for the new order, so a failure below
		// cannot leave the old poller alive with no owner
		p.coord.Reset()

		wf := fulfillment.NewWorkflow(created.ID, created.Status, ord.PaymentUnpaid)
		p.wf = wf
		p.session = nil

		resp := gin.H{"order_id": created.ID, "status": created.Status}

		switch req.PaymentMethod {
		case ord.PaymentMethodCOD:
			p.startCash(wf)
		case ord.PaymentMethodBankTransfer:
			rec, err := p.ext.GetOrder(c.Request.Context(), created.ID)
			if err != nil {
				log.Printf("[pos] order=%s created but amount lookup failed: %v", created.ID, err)
				httpx.Error(c, http.StatusBadGateway, "no se pudo consultar el pedido creado")
				return
			}
			// not the request context: the poll loop outlives this handler
			sess, err := p.startTransfer(context.Background(), wf, rec.Total)
			if err != nil {
				log.Printf("[pos] order=%s payment intent failed: %v", created.ID, err)
				httpx.Error(c, http.StatusBadGateway, "no se pudo generar la intención de pago")
				return
			}
			p.session = sess
			resp["intent"] = sess.Intent
		}

		p.consumeDraft()
		c.JSON(http.StatusCreated, resp)
	}
}

func writeSubmitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, checkout.ErrEmptyCart), errors.Is(err, checkout.ErrNoCustomer):
		httpx.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, clients.ErrUnauthorized):
		httpx.Error(c, http.StatusUnauthorized, "sesión expirada")
	default:
		httpx.Error(c, http.StatusBadGateway, err.Error())
	}
}

// orderHandler serves the local mirror, never the backend: the UI reads
// what the terminal believes, and the belief only moves on confirmations.
func orderHandler(p *pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		p.mu.Lock()
		wf := p.wf
		p.mu.Unlock()
		if wf == nil {
			httpx.Error(c, http.StatusNotFound, "no hay pedido activo")
			return
		}
		c.JSON(http.StatusOK, mirrorOf(wf))
	}
}

func cancelOrderHandler(p *pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		p.mu.Lock()
		wf := p.wf
		p.session = nil
		p.mu.Unlock()
		if wf == nil {
			httpx.Error(c, http.StatusNotFound, "no hay pedido activo")
			return
		}

		// stop timers and polls before asking the backend; a stage
		// confirmation racing the cancel is resolved by the backend guard
		p.coord.Reset()

		rec, err := p.ext.UpdateStatus(c.Request.Context(), wf.OrderID(), ord.StatusCancelled, "cancelado desde el punto de venta")
		if err != nil {
			if errors.Is(err, clients.ErrConflict) && rec != nil {
				wf.Adopt(rec)
				c.JSON(http.StatusConflict, mirrorOf(wf))
				return
			}
			var se *clients.StatusError
			if errors.As(err, &se) && se.Code == http.StatusUnprocessableEntity {
				httpx.Error(c, http.StatusUnprocessableEntity, se.Msg)
				return
			}
			httpx.Error(c, http.StatusBadGateway, err.Error())
			return
		}
		wf.Adopt(rec)
		c.JSON(http.StatusOK, mirrorOf(wf))
	}
}

// cancelPaymentHandler abandons the reconciliation poll without touching
// the order; the operator can still cancel or re-check out.
func cancelPaymentHandler(p *pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		p.mu.Lock()
		sess := p.session
		p.session = nil
		p.mu.Unlock()
		if sess == nil {
			httpx.Error(c, http.StatusNotFound, "no hay sesión de pago activa")
			return
		}
		sess.Cancel()
		c.JSON(http.StatusOK, gin.H{"cancelled": true})
	}
}

// resetHandler drops all terminal-local state: cart, preview, mirror and
// any background run. Backend records are left as they are.
func resetHandler(p *pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		p.coord.Reset()
		p.mu.Lock()
		p.draft.Clear()
		snap := p.draft.Snapshot()
		p.wf = nil
		p.session = nil
		p.mu.Unlock()
		p.engine.Trigger(snap)
		c.JSON(http.StatusOK, gin.H{"reset": true})
	}
}

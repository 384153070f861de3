package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/pos-checkout/internal/httpx"
	ord "github.com/MikeMC777/pos-checkout/internal/order"
	"github.com/MikeMC777/pos-checkout/internal/pricing"
)

func buildRouter(repo ord.Repository) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger())

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.POST("/orders", createOrderHandler(repo))
	r.POST("/orders/preview", previewHandler())
	r.GET("/orders/:id", getOrderHandler(repo))
	r.PATCH("/orders/:id/status", patchStatusHandler(repo))
	r.PATCH("/orders/:id/payment-status", patchPaymentHandler(repo))
	return r
}

func decimalFromInt(n int) decimal.Decimal { return decimal.NewFromInt(int64(n)) }

// createOrderHandler persists a cart snapshot as a new PENDING/UNPAID order.
// The total is recomputed server-side; client-sent totals are never trusted.
func createOrderHandler(repo ord.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ord.CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Error(c, http.StatusBadRequest, "invalid json")
			return
		}
		if req.PaymentMethod != ord.PaymentMethodCOD && req.PaymentMethod != ord.PaymentMethodBankTransfer {
			httpx.Error(c, http.StatusBadRequest, "unknown payment method")
			return
		}
		in, err := pricing.ParseLines(req.Lines)
		if err != nil {
			httpx.Error(c, http.StatusBadRequest, err.Error())
			return
		}
		q, err := pricing.Compute(in)
		if err != nil {
			httpx.Error(c, http.StatusBadRequest, err.Error())
			return
		}

		o := &ord.Order{
			ID:              uuid.NewString(),
			CustomerID:      req.CustomerID,
			Status:          ord.StatusPending,
			PaymentMethod:   req.PaymentMethod,
			PaymentStatus:   ord.PaymentUnpaid,
			Total:           q.Final.String(),
			ShippingAddress: req.ShippingAddress,
		}
		lines := make([]ord.Line, 0, len(in))
		for _, l := range in {
			lines = append(lines, ord.Line{
				ID:         uuid.NewString(),
				OrderID:    o.ID,
				LineItemID: l.LineItemID,
				Quantity:   l.Quantity,
				UnitPrice:  l.UnitPrice.String(),
				Subtotal:   l.UnitPrice.Mul(decimalFromInt(l.Quantity)).String(),
			})
		}
		if err := repo.Create(c.Request.Context(), o, lines); err != nil {
			httpx.Error(c, http.StatusInternalServerError, "create failed")
			return
		}
		c.JSON(http.StatusCreated, ord.CreateOrderResponse{ID: o.ID, Status: o.Status})
	}
}

func previewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ord.PreviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Error(c, http.StatusBadRequest, "invalid json")
			return
		}
		in, err := pricing.ParseLines(req.Lines)
		if err != nil {
			httpx.Error(c, http.StatusBadRequest, err.Error())
			return
		}
		q, err := pricing.Compute(in)
		if err != nil {
			httpx.Error(c, http.StatusBadRequest, err.Error())
			return
		}
		c.JSON(http.StatusOK, q.Preview())
	}
}

func getOrderHandler(repo ord.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, lines, err := repo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.Error(c, http.StatusNotFound, "order not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": o, "lines": lines})
	}
}

// patchStatusHandler applies one guarded transition. An order already at or
// past the requested status replies 409 with the authoritative record so the
// caller can adopt it as a no-op; a skipped stage or an off-path move (e.g.
// cancelling a DELIVERING order) replies 422.
func patchStatusHandler(repo ord.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ord.StatusPatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Error(c, http.StatusBadRequest, "invalid json")
			return
		}
		rec, err := repo.Advance(c.Request.Context(), c.Param("id"), req.Status)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, rec)
		case errors.Is(err, ord.ErrAlreadyThere):
			c.JSON(http.StatusConflict, rec)
		case errors.Is(err, ord.ErrIllegalTransition):
			httpx.Error(c, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, ord.ErrNotFound):
			httpx.Error(c, http.StatusNotFound, "order not found")
		default:
			httpx.Error(c, http.StatusInternalServerError, "update failed")
		}
	}
}

func patchPaymentHandler(repo ord.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ord.PaymentStatusPatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Error(c, http.StatusBadRequest, "invalid json")
			return
		}
		if req.PaymentStatus != ord.PaymentPaid {
			httpx.Error(c, http.StatusBadRequest, "only PAID can be set")
			return
		}
		rec, err := repo.SetPaymentStatus(c.Request.Context(), c.Param("id"), req.PaymentStatus)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, rec)
		case errors.Is(err, ord.ErrNotFound):
			httpx.Error(c, http.StatusNotFound, "order not found")
		default:
			httpx.Error(c, http.StatusInternalServerError, "update failed")
		}
	}
}

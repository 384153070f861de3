package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/pos-checkout/internal/httpx"
	"github.com/MikeMC777/pos-checkout/internal/ledger"
)

// bankDetails are the receiving account shown to the payer.
type bankDetails struct {
	BankCode      string
	AccountNumber string
}

func buildRouter(store ledger.Store, bank bankDetails) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger())

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.POST("/payment-intents", createIntentHandler(bank))
	r.GET("/payment-match", paymentMatchHandler(store))
	r.POST("/transactions", recordTransactionHandler(store))
	return r
}

type intentRequest struct {
	OrderID string `json:"order_id"`
	Amount  string `json:"amount"`
}

type intentResponse struct {
	QRPayload       string `json:"qr_payload"`
	AccountNumber   string `json:"account_number"`
	BankCode        string `json:"bank_code"`
	TransferContent string `json:"transfer_content"`
}

// createIntentHandler issues the details a payer needs to wire the money:
// account, bank, a QR payload, and a unique transfer-content token the
// reconciliation poll will look for in the ledger.
func createIntentHandler(bank bankDetails) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req intentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Error(c, http.StatusBadRequest, "invalid json")
			return
		}
		amt, err := decimal.NewFromString(req.Amount)
		if err != nil || !amt.IsPositive() {
			httpx.Error(c, http.StatusBadRequest, "invalid amount")
			return
		}
		if req.OrderID == "" {
			httpx.Error(c, http.StatusBadRequest, "order_id is required")
			return
		}
		content := transferContent()
		c.JSON(http.StatusCreated, intentResponse{
			QRPayload:       fmt.Sprintf("BANK|%s|%s|%s|%s", bank.BankCode, bank.AccountNumber, amt.String(), content),
			AccountNumber:   bank.AccountNumber,
			BankCode:        bank.BankCode,
			TransferContent: content,
		})
	}
}

// transferContent builds a short token payers can type as the transfer note.
func transferContent() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "POS" + raw[:10]
}

func paymentMatchHandler(store ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		content := c.Query("content")
		amount := c.Query("amount")
		if content == "" || amount == "" {
			httpx.Error(c, http.StatusBadRequest, "content and amount are required")
			return
		}
		c.JSON(http.StatusOK, gin.H{"matched": store.Match(content, amount)})
	}
}

type transactionRequest struct {
	Content string `json:"content"`
	Amount  string `json:"amount"`
}

// recordTransactionHandler is the bank-feed stand-in: whatever observes the
// incoming transfers posts them here.
func recordTransactionHandler(store ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req transactionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Error(c, http.StatusBadRequest, "invalid json")
			return
		}
		if req.Content == "" {
			httpx.Error(c, http.StatusBadRequest, "content is required")
			return
		}
		tx, err := store.Append(req.Content, req.Amount)
		if err != nil {
			httpx.Error(c, http.StatusBadRequest, err.Error())
			return
		}
		c.JSON(http.StatusCreated, tx)
	}
}

package main

import (
	"log"

	"github.com/MikeMC777/pos-checkout/internal/config"
	"github.com/MikeMC777/pos-checkout/internal/ledger"
)

func main() {
	cfg := config.Load()

	store := ledger.NewMemoryStore()
	r := buildRouter(store, bankDetails{BankCode: cfg.BankCode, AccountNumber: cfg.AccountNumber})

	log.Printf("[payment-service] listening on %s", cfg.PaySvcAddr)
	log.Fatal(r.Run(cfg.PaySvcAddr))
}

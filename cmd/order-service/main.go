package main

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeMC777/pos-checkout/internal/config"
	ord "github.com/MikeMC777/pos-checkout/internal/order"
)

func main() {
	cfg := config.Load()

	pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("[order-service] pgx pool: %v", err)
	}
	defer pool.Close()

	repo := ord.NewPGRepo(pool)
	r := buildRouter(repo)

	log.Printf("[order-service] listening on %s", cfg.OrderSvcAddr)
	log.Fatal(r.Run(cfg.OrderSvcAddr))
}

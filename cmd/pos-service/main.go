package main

import (
	"log"

	"github.com/MikeMC777/pos-checkout/internal/clients"
	"github.com/MikeMC777/pos-checkout/internal/config"
	"github.com/MikeMC777/pos-checkout/internal/fulfillment"
)

func main() {
	cfg := config.Load()

	ext := clients.NewExt(cfg.OrderSvcBaseURL, cfg.PaySvcBaseURL)
	p := newPipeline(ext, fulfillment.NewScheduler(), timings{
		DebounceWindow: cfg.DebounceWindow,
		StageDelay:     cfg.StageDelay,
		PollInterval:   cfg.PollInterval,
		PollMaxWait:    cfg.PollMaxWait,
	})
	defer p.engine.Close()

	r := buildRouter(p)

	log.Printf("[pos-service] listening on %s", cfg.POSSvcAddr)
	log.Fatal(r.Run(cfg.POSSvcAddr))
}

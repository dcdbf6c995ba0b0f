// README: Entry point; loads config, wires services, starts the HTTP server.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gofer/internal/ai"
	"gofer/internal/config"
	httptransport "gofer/internal/http"
	"gofer/internal/infra"
	"gofer/internal/maps"
	"gofer/internal/modules/aiusage"
	"gofer/internal/modules/escrow"
	"gofer/internal/modules/fulfillment"
	"gofer/internal/modules/intent"
	"gofer/internal/modules/notify"
	"gofer/internal/modules/order"
	"gofer/internal/modules/pricing"
	"gofer/internal/modules/stage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		log.Fatal("GOFER_FIREBASE_PROJECT_ID is required")
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatalf("firebase init: %v", err)
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}

	redisClient := infra.NewRedis(cfg.Redis.Addr)

	intentStore := intent.NewStore(
		redisClient,
		time.Duration(cfg.Intent.DraftTTLHours)*time.Hour,
		cfg.Intent.AnalyticsCap,
	)
	intentSvc := intent.NewService(intentStore)

	pricingSvc := pricing.NewService(pricing.NewStore(dbPool), cfg.Escrow.DefaultCurrency)

	stageSvc := stage.NewService(stage.NewStore(dbPool))

	ledgerSvc := escrow.NewService(escrow.NewStore(dbPool), stageSvc)

	var geocoder order.Geocoder
	if cfg.Maps.APIKey != "" {
		g, err := maps.NewGeocodingService(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("maps init: %v", err)
		}
		geocoder = g
	}

	orderSvc := order.NewService(order.NewStore(dbPool), stageSvc, pricingSvc, geocoder)

	notifySvc := notify.NewService(notify.NewStore(redisClient))

	fulfillmentSvc := fulfillment.NewService(orderSvc, stageSvc, ledgerSvc, notifySvc)

	var provider ai.LLMProvider
	if cfg.AI.GeminiKey != "" {
		p, err := ai.NewGeminiProvider(ctx, cfg.AI.GeminiKey)
		if err != nil {
			log.Fatalf("gemini init: %v", err)
		}
		defer p.Close()
		provider = p
	}
	usageSvc := aiusage.NewService(aiusage.NewStore(dbPool))

	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Intents:     intentSvc,
		Orders:      orderSvc,
		Stages:      stageSvc,
		Ledger:      ledgerSvc,
		Fulfillment: fulfillmentSvc,
		AIProvider:  provider,
		AIUsage:     usageSvc,
		Verifier:    verifier,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

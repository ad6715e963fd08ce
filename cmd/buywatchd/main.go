package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	buywatch "github.com/monjuik/go-buywatch"
)

func main() {
	configPath := flag.String("config", "", "path to the JSON config file")
	flag.Parse()

	// A missing .env file is fine; the config layer falls back to the
	// process environment.
	_ = godotenv.Load()

	cfg, err := buywatch.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	chain := &buywatch.RPCChainClient{
		Endpoint:       cfg.RPCURL,
		Logger:         buywatch.NewLogger("chain-rpc"),
		RateLimitDelay: cfg.RateLimitDelay(),
	}
	price := buywatch.NewCoinGeckoPriceSource(buywatch.NewLogger("price"))
	notifier := buywatch.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramGroupID, buywatch.NewLogger("telegram"))

	watcher, err := buywatch.NewWatcher(cfg, chain, price, notifier, buywatch.NewLogger("watcher"))
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: buywatch.NewServer(watcher.Stats, cfg.Environment, nil),
	}

	go func() {
		log.Printf("http server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server stopped: %v", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		watcher.Run(ctx)
		close(done)
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	<-done
}

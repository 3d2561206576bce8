package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"mangrovewatch/bot"
	"mangrovewatch/config"
	"mangrovewatch/geocode"
	"mangrovewatch/metrics"
	"mangrovewatch/vegetation"
)

func main() {
	flag.Parse()
	log.Println("🤖 Starting Mangrove Watch Telegram Bot...")

	cfg := config.Load()
	if cfg.BotToken == "" {
		log.Fatal("❌ No bot token found, set BOT_TOKEN")
	}

	analyzer, err := vegetation.Default()
	if err != nil {
		log.Fatalf("Failed to set up the satellite archive client: %v", err)
	}

	metrics.Register()

	b := bot.New(
		bot.NewTelegram(cfg.BotToken),
		geocode.NewResolver(cfg.GeocoderURL, cfg.GeocoderUserAgent),
		analyzer,
		cfg.BotWorkers,
		cfg.BotPollTimeout,
		cfg.BotMessageTimeout,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := b.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Bot stopped with error: %v", err)
	}
	log.Println("Bot stopped.")
}

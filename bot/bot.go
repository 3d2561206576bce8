package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/gammazero/workerpool"

	"mangrovewatch/geocode"
	"mangrovewatch/metrics"
	"mangrovewatch/vegetation"
)

const (
	greeting = "👋 Hello! I am your Mangrove Watch bot.\n\n" +
		"You can:\n" +
		"📍 Send a location name (e.g., 'Ahmedabad')\n" +
		"📍 Send coordinates (e.g., '21.17, 72.83')\n\n" +
		"I will check 🛰️ satellite vegetation change."
	aliveReply       = "✅ Bot is alive and working!"
	processingReply  = "⏳ Processing your request... This may take a few seconds."
	badFormatReply   = "⚠️ Invalid coordinates format. Try: 21.17, 72.83"
	notFoundReply    = "❌ Could not find that location. Try again."
	geocodeDownReply = "⚠️ Geocoding service timeout/unavailable. Please try again."
	satelliteReply   = "🛰️ Satellite analysis is temporarily unavailable. Please try again later."
	genericApology   = "❌ Sorry, something went wrong while processing your request."

	pollRetryDelay = 3 * time.Second
)

// Messenger is the Telegram surface the bot needs.
type Messenger interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error)
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Resolver turns free text into coordinates.
type Resolver interface {
	Resolve(ctx context.Context, text string) (*geocode.Point, error)
}

// Analyzer runs the multi-window vegetation analysis.
type Analyzer interface {
	EnhancedChange(ctx context.Context, lat, lon float64) (*vegetation.EnhancedResult, error)
}

// Bot consumes Telegram updates one at a time and answers vegetation-change
// queries. Geocoding is offloaded to a worker pool so a slow geocoder cannot
// pile up goroutines.
type Bot struct {
	telegram       Messenger
	resolver       Resolver
	analyzer       Analyzer
	pool           *workerpool.WorkerPool
	pollTimeout    time.Duration
	messageTimeout time.Duration
}

func New(telegram Messenger, resolver Resolver, analyzer Analyzer, workers int, pollTimeout, messageTimeout time.Duration) *Bot {
	if workers < 1 {
		workers = 1
	}
	return &Bot{
		telegram:       telegram,
		resolver:       resolver,
		analyzer:       analyzer,
		pool:           workerpool.New(workers),
		pollTimeout:    pollTimeout,
		messageTimeout: messageTimeout,
	}
}

// Run polls for updates until ctx is cancelled. Handler failures and panics
// are reported to the user and never terminate the loop.
func (b *Bot) Run(ctx context.Context) error {
	log.Info("✅ Telegram bot is running... (polling)")
	defer b.pool.StopWait()

	var offset int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := b.telegram.GetUpdates(ctx, offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Errorf("Failed to fetch updates: %v", err)
			time.Sleep(pollRetryDelay)
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update Update) {
	if update.Message == nil || strings.TrimSpace(update.Message.Text) == "" {
		metrics.BotMessagesTotal.WithLabelValues("skipped").Inc()
		return
	}

	msgCtx, cancel := context.WithTimeout(ctx, b.messageTimeout)
	defer cancel()

	chatID := update.Message.Chat.ID
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Recovered from panic while handling update %d: %v", update.UpdateID, r)
			metrics.BotMessagesTotal.WithLabelValues("panic").Inc()
			b.reply(chatID, genericApology)
		}
	}()

	if err := b.handleMessage(msgCtx, chatID, strings.TrimSpace(update.Message.Text)); err != nil {
		log.Errorf("Failed to handle update %d: %v", update.UpdateID, err)
		metrics.BotMessagesTotal.WithLabelValues("error").Inc()
		b.reply(chatID, genericApology)
		return
	}
	metrics.BotMessagesTotal.WithLabelValues("success").Inc()
}

func (b *Bot) handleMessage(ctx context.Context, chatID int64, text string) error {
	log.Infof("[User Input] %s", text)

	switch {
	case strings.HasPrefix(text, "/start"):
		return b.telegram.SendMessage(ctx, chatID, greeting)
	case strings.HasPrefix(text, "/test"):
		return b.telegram.SendMessage(ctx, chatID, aliveReply)
	case strings.HasPrefix(text, "/"):
		return b.telegram.SendMessage(ctx, chatID, "🤔 Unknown command. Send /start for usage.")
	}

	if err := b.telegram.SendMessage(ctx, chatID, processingReply); err != nil {
		return err
	}

	point, err := b.resolve(ctx, text)
	if err != nil {
		switch {
		case errors.Is(err, geocode.ErrInvalidFormat):
			return b.telegram.SendMessage(ctx, chatID, badFormatReply)
		case errors.Is(err, geocode.ErrNotFound):
			return b.telegram.SendMessage(ctx, chatID, notFoundReply)
		default:
			log.Errorf("Geocoding error: %v", err)
			return b.telegram.SendMessage(ctx, chatID, geocodeDownReply)
		}
	}

	analysis, err := b.analyzer.EnhancedChange(ctx, point.Latitude, point.Longitude)
	if err != nil {
		log.Errorf("Vegetation analysis failed for (%v, %v): %v", point.Latitude, point.Longitude, err)
		return b.telegram.SendMessage(ctx, chatID, satelliteReply)
	}

	return b.telegram.SendMessage(ctx, chatID, renderAnalysis(point, analysis))
}

// resolve runs the geocoder on the worker pool, bounded by ctx.
func (b *Bot) resolve(ctx context.Context, text string) (*geocode.Point, error) {
	type outcome struct {
		point *geocode.Point
		err   error
	}
	done := make(chan outcome, 1)
	b.pool.Submit(func() {
		point, err := b.resolver.Resolve(ctx, text)
		done <- outcome{point: point, err: err}
	})

	select {
	case out := <-done:
		return out.point, out.err
	case <-ctx.Done():
		return nil, fmt.Errorf("geocoding timed out: %w", ctx.Err())
	}
}

func renderAnalysis(point *geocode.Point, analysis *vegetation.EnhancedResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📍 Location: %v, %v\n", point.Latitude, point.Longitude)

	if analysis.VegetationChange != nil {
		fmt.Fprintf(&sb, "🛰️ Vegetation Change: %.2f%%\n", *analysis.VegetationChange)
	} else {
		sb.WriteString("🛰️ Vegetation Change: no recent imagery for this area\n")
	}

	fmt.Fprintf(&sb, "📊 Trend: %s\n", analysis.TrendDirection)
	switch analysis.AlertLevel {
	case vegetation.AlertCritical:
		sb.WriteString("🚨 Alert: critical vegetation loss detected!")
	case vegetation.AlertWarning:
		sb.WriteString("⚠️ Alert: unusual vegetation change detected.")
	default:
		sb.WriteString("✅ Alert: normal.")
	}
	return sb.String()
}

// reply sends a best-effort message outside the per-message deadline, for
// error paths where the original context may already be gone.
func (b *Bot) reply(chatID int64, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := b.telegram.SendMessage(ctx, chatID, text); err != nil {
		log.Errorf("Failed to send reply to chat %d: %v", chatID, err)
	}
}

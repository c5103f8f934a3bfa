// Package telegram connects the conversation machine to the Telegram Bot
// API: it turns updates into events and implements the outbound Messenger.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/settlebot/internal/conversation"
	"github.com/mmynk/settlebot/internal/metrics"
)

const (
	defaultWorkers     = 8
	defaultPollTimeout = 60
	queueSize          = 64
	maxPhotoSize       = 10 << 20
	downloadTimeout    = 30 * time.Second
)

// botAPI is the part of *tgbotapi.BotAPI the adapter uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	GetFileDirectURL(fileID string) (string, error)
}

// EventHandler consumes classified chat events.
type EventHandler interface {
	Handle(ctx context.Context, ev conversation.Event) (conversation.Dispatch, error)
}

// Options tunes the update loop.
type Options struct {
	// Workers is the number of goroutines handling updates. Zero means 8.
	Workers int
	// PollTimeout is the long-polling timeout in seconds. Zero means 60.
	PollTimeout int
	// Debug logs raw Bot API traffic.
	Debug bool
}

// Bot is a Telegram transport.
type Bot struct {
	api         botAPI
	http        *http.Client
	workers     int
	pollTimeout int
}

var _ conversation.Messenger = (*Bot)(nil)

// New authenticates with the Bot API and returns a Bot.
func New(token string, opts Options) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	api.Debug = opts.Debug
	slog.Info("Telegram bot authorized", "username", api.Self.UserName)
	return newBot(api, opts), nil
}

func newBot(api botAPI, opts Options) *Bot {
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	poll := opts.PollTimeout
	if poll <= 0 {
		poll = defaultPollTimeout
	}
	return &Bot{
		api:         api,
		http:        &http.Client{Timeout: downloadTimeout},
		workers:     workers,
		pollTimeout: poll,
	}
}

// Run polls updates until ctx is done. Updates are sharded onto workers
// by sender, so one user's events are handled in arrival order while
// different users proceed in parallel. Events already queued when ctx is
// done are still handled.
func (b *Bot) Run(ctx context.Context, h EventHandler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(u)

	queues := make([]chan tgbotapi.Update, b.workers)
	for i := range queues {
		queues[i] = make(chan tgbotapi.Update, queueSize)
	}

	var g errgroup.Group
	workCtx := context.WithoutCancel(ctx)
	for _, q := range queues {
		g.Go(func() error {
			for upd := range q {
				b.handleUpdate(workCtx, h, upd)
			}
			return nil
		})
	}

	slog.Info("Telegram update loop started", "workers", b.workers)
loop:
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			break loop
		case upd, ok := <-updates:
			if !ok {
				break loop
			}
			from := upd.SentFrom()
			if from == nil {
				continue
			}
			select {
			case queues[shard(from.ID, b.workers)] <- upd:
			case <-ctx.Done():
				b.api.StopReceivingUpdates()
				break loop
			}
		}
	}

	for _, q := range queues {
		close(q)
	}
	err := g.Wait()
	slog.Info("Telegram update loop stopped")
	return err
}

// shard maps a user onto one of n workers.
func shard(userID int64, n int) int {
	return int(uint64(userID) % uint64(n))
}

func (b *Bot) handleUpdate(ctx context.Context, h EventHandler, upd tgbotapi.Update) {
	if cq := upd.CallbackQuery; cq != nil {
		if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			metrics.SendFailures.WithLabelValues("answer").Inc()
			slog.Debug("Failed to answer callback", "error", err)
		}
	}

	ev, photoID, ok := toEvent(upd)
	if !ok {
		return
	}
	if photoID != "" {
		pe := ev.(conversation.PhotoEvent)
		image, err := b.download(ctx, photoID)
		if err != nil {
			// The machine answers a photo without an image as a service outage.
			slog.Warn("Failed to download photo", "user_id", pe.SenderID, "error", err)
			image = nil
		}
		pe.Image = image
		ev = pe
	}

	// Errors are logged by the middleware.
	_, _ = h.Handle(ctx, ev)
}

// toEvent classifies an update. For photos it returns the file ID of the
// largest size; the caller downloads it.
func toEvent(upd tgbotapi.Update) (conversation.Event, string, bool) {
	if cq := upd.CallbackQuery; cq != nil {
		if cq.Message == nil || cq.From == nil {
			return nil, "", false
		}
		return conversation.ButtonEvent{
			Sender:    conversation.Sender{SenderID: cq.From.ID, ChatID: cq.Message.Chat.ID, SenderName: displayName(cq.From)},
			MessageID: cq.Message.MessageID,
			Token:     cq.Data,
		}, "", true
	}

	msg := upd.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return nil, "", false
	}
	sender := conversation.Sender{SenderID: msg.From.ID, ChatID: msg.Chat.ID, SenderName: displayName(msg.From)}

	if len(msg.Photo) > 0 {
		return conversation.PhotoEvent{Sender: sender}, largestPhoto(msg.Photo).FileID, true
	}
	if msg.Text != "" {
		return conversation.TextEvent{Sender: sender, Text: msg.Text}, "", true
	}
	return nil, "", false
}

func largestPhoto(sizes []tgbotapi.PhotoSize) tgbotapi.PhotoSize {
	best := sizes[0]
	for _, p := range sizes[1:] {
		if p.Width*p.Height > best.Width*best.Height {
			best = p
		}
	}
	return best
}

func displayName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	if u.UserName != "" {
		return "@" + u.UserName
	}
	return fmt.Sprintf("user%d", u.ID)
}

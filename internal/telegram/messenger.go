package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mmynk/settlebot/internal/conversation"
	"github.com/mmynk/settlebot/internal/metrics"
)

// SendText sends a message with an optional inline keyboard.
func (b *Bot) SendText(_ context.Context, chatID int64, text string, kb *conversation.Keyboard) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if kb != nil {
		msg.ReplyMarkup = toMarkup(kb)
	}
	sent, err := b.api.Send(msg)
	if err != nil {
		metrics.SendFailures.WithLabelValues("send").Inc()
		return 0, fmt.Errorf("failed to send message: %w", err)
	}
	return sent.MessageID, nil
}

// EditMessage replaces the text and keyboard of a sent message.
func (b *Bot) EditMessage(_ context.Context, chatID int64, messageID int, text string, kb *conversation.Keyboard) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if kb != nil {
		markup := toMarkup(kb)
		edit.ReplyMarkup = &markup
	}
	if _, err := b.api.Send(edit); err != nil {
		// Two quick presses can render the same state twice.
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		metrics.SendFailures.WithLabelValues("edit").Inc()
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

func toMarkup(kb *conversation.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Token))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// download fetches a file by ID through the Bot API file endpoint.
func (b *Bot) download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

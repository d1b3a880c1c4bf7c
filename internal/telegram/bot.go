// AngelaMos | 2026
// bot.go

package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/carterperez-dev/voice-tutor/internal/config"
	"github.com/carterperez-dev/voice-tutor/internal/core"
)

const (
	downloadTimeout  = 30 * time.Second
	maxDownloadBytes = 20 << 20
	voiceFileName    = "reply.ogg"
)

var ErrFileTooLarge = errors.New("file exceeds download limit")

// Bot implements Messenger on top of the Bot API client.
type Bot struct {
	api    *tgbotapi.BotAPI
	client *http.Client
}

func NewBot(cfg config.TelegramConfig) (*Bot, error) {
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.Token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("connect bot api: %w", core.RedactURL(err))
	}

	return &Bot{
		api:    api,
		client: &http.Client{Timeout: downloadTimeout},
	}, nil
}

func (b *Bot) Username() string {
	return b.api.Self.UserName
}

func (b *Bot) API() *tgbotapi.BotAPI {
	return b.api
}

func (b *Bot) SendText(_ context.Context, chatID int64, msg Message) error {
	cfg := tgbotapi.NewMessage(chatID, msg.Text)
	cfg.ParseMode = msg.ParseMode
	if markup := buildMarkup(msg.Keyboard); markup != nil {
		cfg.ReplyMarkup = markup
	}

	if _, err := b.api.Send(cfg); err != nil {
		return fmt.Errorf("send message: %w", core.RedactURL(err))
	}
	return nil
}

func (b *Bot) SendVoice(_ context.Context, chatID int64, audio []byte) error {
	cfg := tgbotapi.NewVoice(chatID, tgbotapi.FileBytes{Name: voiceFileName, Bytes: audio})
	if _, err := b.api.Send(cfg); err != nil {
		return fmt.Errorf("send voice: %w", core.RedactURL(err))
	}
	return nil
}

func (b *Bot) SendInvoice(_ context.Context, chatID int64, inv Invoice) error {
	cfg := tgbotapi.NewInvoice(
		chatID,
		inv.Title,
		inv.Description,
		inv.Payload,
		"",
		"",
		inv.Currency,
		[]tgbotapi.LabeledPrice{{Label: inv.Label, Amount: inv.Amount}},
	)
	// a nil slice is sent as null, which the API rejects
	cfg.SuggestedTipAmounts = []int{}

	if _, err := b.api.Send(cfg); err != nil {
		return fmt.Errorf("send invoice: %w", core.RedactURL(err))
	}
	return nil
}

func (b *Bot) AnswerPreCheckout(_ context.Context, queryID string, ok bool, errMsg string) error {
	cfg := tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: queryID,
		OK:                 ok,
		ErrorMessage:       errMsg,
	}
	if _, err := b.api.Request(cfg); err != nil {
		return fmt.Errorf("answer pre-checkout: %w", core.RedactURL(err))
	}
	return nil
}

func (b *Bot) AnswerCallback(_ context.Context, callbackID string) error {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		return fmt.Errorf("answer callback: %w", core.RedactURL(err))
	}
	return nil
}

func (b *Bot) Download(ctx context.Context, fileID string) ([]byte, error) {
	link, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file %s: %w", fileID, core.RedactURL(err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", core.RedactURL(err))
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", core.RedactURL(err))
	}
	if len(data) > maxDownloadBytes {
		return nil, fmt.Errorf("download file %s: %w", fileID, ErrFileTooLarge)
	}
	return data, nil
}

func (b *Bot) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("build webhook: %w", err)
	}
	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", core.RedactURL(err))
	}
	return nil
}

func (b *Bot) DeleteWebhook() error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", core.RedactURL(err))
	}
	return nil
}

func buildMarkup(kb *Keyboard) any {
	if kb == nil {
		return nil
	}

	if len(kb.Reply) > 0 {
		rows := make([][]tgbotapi.KeyboardButton, 0, len(kb.Reply))
		for _, r := range kb.Reply {
			row := make([]tgbotapi.KeyboardButton, 0, len(r))
			for _, text := range r {
				row = append(row, tgbotapi.NewKeyboardButton(text))
			}
			rows = append(rows, row)
		}
		markup := tgbotapi.NewReplyKeyboard(rows...)
		markup.ResizeKeyboard = true
		return markup
	}

	if len(kb.Inline) > 0 {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb.Inline))
		for _, r := range kb.Inline {
			row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
			for _, btn := range r {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
			}
			rows = append(rows, row)
		}
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	}

	return nil
}

var _ Messenger = (*Bot)(nil)

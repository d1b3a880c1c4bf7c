// AngelaMos | 2026
// poller.go

package telegram

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, update tgbotapi.Update)
}

// Poller long-polls getUpdates and hands every update to the dispatcher
// until ctx is cancelled.
type Poller struct {
	bot        *Bot
	dispatcher Dispatcher
	timeout    int
}

func NewPoller(bot *Bot, dispatcher Dispatcher, timeoutSeconds int) *Poller {
	return &Poller{
		bot:        bot,
		dispatcher: dispatcher,
		timeout:    timeoutSeconds,
	}
}

func (p *Poller) Run(ctx context.Context) error {
	if err := p.bot.DeleteWebhook(); err != nil {
		return err
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = p.timeout

	updates := p.bot.API().GetUpdatesChan(cfg)
	slog.InfoContext(ctx, "polling for updates",
		"bot", p.bot.Username(),
		"timeout", p.timeout,
	)

	for {
		select {
		case <-ctx.Done():
			p.bot.API().StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			p.dispatcher.Dispatch(ctx, update)
		}
	}
}

// AngelaMos | 2026
// messenger.go

package telegram

import (
	"context"
)

type Button struct {
	Text string
	Data string
}

// Keyboard is either an inline keyboard (callback buttons under the
// message) or a persistent reply keyboard. Reply wins if both are set.
type Keyboard struct {
	Inline [][]Button
	Reply  [][]string
}

type Message struct {
	Text      string
	ParseMode string
	Keyboard  *Keyboard
}

type Invoice struct {
	Title       string
	Description string
	Payload     string
	Currency    string
	Label       string
	Amount      int
}

// Messenger is the outbound half of the Bot API the bot needs.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, msg Message) error
	SendVoice(ctx context.Context, chatID int64, audio []byte) error
	SendInvoice(ctx context.Context, chatID int64, inv Invoice) error
	AnswerPreCheckout(ctx context.Context, queryID string, ok bool, errMsg string) error
	AnswerCallback(ctx context.Context, callbackID string) error
	Download(ctx context.Context, fileID string) ([]byte, error)
}

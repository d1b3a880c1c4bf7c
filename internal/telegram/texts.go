// AngelaMos | 2026
// texts.go

package telegram

import (
	"fmt"
	"strings"
	"time"

	"github.com/carterperez-dev/voice-tutor/internal/entitlement"
)

const (
	ButtonMainMenu = "🏠 Main Menu"
	ButtonHelp     = "❓ Help"
	ButtonRetry    = "🔄 Retry"

	CallbackPromo    = "promo"
	CallbackShowMenu = "show_menu"

	CommandStart = "start"

	parseMarkdown   = "Markdown"
	parseMarkdownV2 = "MarkdownV2"

	validUntilLayout = "2006-01-02 15:04:05"
)

var (
	menuKeyboard = &Keyboard{Reply: [][]string{{ButtonMainMenu, ButtonHelp}}}

	retryKeyboard = &Keyboard{Reply: [][]string{
		{ButtonRetry},
		{ButtonMainMenu, ButtonHelp},
	}}
)

func offerKeyboard(products []entitlement.Product) *Keyboard {
	rows := make([][]Button, 0, len(products)+1)
	for _, p := range products {
		rows = append(rows, []Button{{Text: p.Label, Data: p.Code}})
	}
	rows = append(rows, []Button{{Text: "💎 Enter Promo Code", Data: CallbackPromo}})
	return &Keyboard{Inline: rows}
}

const howItWorks = `🎤 **How it works:**
1. Send me a voice message in Spanish
2. I'll analyze your speech with AI
3. Get detailed feedback and an audio response`

func welcomeEntitled(name string) Message {
	return Message{
		Text: fmt.Sprintf("👋 Hi, %s!\n\n"+
			"✅ Your subscription is active.\n"+
			"Send voice messages for analysis! 🎤", name),
		Keyboard: menuKeyboard,
	}
}

func welcomeOffer(name string, products []entitlement.Product) Message {
	return Message{
		Text: fmt.Sprintf("👋 Hi, %s!\n\n"+
			"I'm your personal Spanish practice assistant! 🎯\n\n"+
			"%s\n\n"+
			"🌟 **You need a subscription to access features:**", name, howItWorks),
		ParseMode: parseMarkdown,
		Keyboard:  offerKeyboard(products),
	}
}

func menuEntitled(name string, st entitlement.Status) Message {
	return Message{
		Text: fmt.Sprintf("🎯 **Spanish Practice Bot**\n\n"+
			"👋 Hi, %s!\n\n"+
			"✅ **Your subscription is active**\n"+
			"Type: %s\n"+
			"Valid until: %s\n\n"+
			"🎤 **Send a voice message** to practice Spanish!",
			name, st.Kind.DisplayName(), formatUntil(st.ExpiresAt)),
		ParseMode: parseMarkdown,
		Keyboard:  menuKeyboard,
	}
}

func menuOffer(name string, products []entitlement.Product) Message {
	return Message{
		Text: fmt.Sprintf("🎯 **Spanish Practice Bot**\n\n"+
			"👋 Hi, %s!\n\n"+
			"I'll help you practice Spanish!\n\n"+
			"%s\n\n"+
			"🌟 **Choose a plan:**", name, howItWorks),
		ParseMode: parseMarkdown,
		Keyboard:  offerKeyboard(products),
	}
}

func helpMessage(contact string) Message {
	return Message{
		Text: "Need Help?\n\n" +
			"You can write about your problem here: " + contact + "\n\n" +
			"Our support team will assist you!",
		Keyboard: menuKeyboard,
	}
}

var promoPrompt = Message{Text: "💎 Enter your promo code in the message:"}

func promoActivated(days int) Message {
	return Message{
		Text: fmt.Sprintf("✅ **Promo code activated!**\n\n"+
			"Your subscription is valid for %d days.\n"+
			"You can now send voice messages for analysis! 🎤", days),
		ParseMode: parseMarkdown,
		Keyboard:  menuKeyboard,
	}
}

var (
	promoInvalid     = Message{Text: "❌ Invalid or inactive promo code."}
	promoAlreadyUsed = Message{Text: "❌ You have already used this promo code."}
)

func paymentActivated(kind entitlement.Kind, until time.Time) Message {
	return Message{
		Text: fmt.Sprintf("✅ **Payment successful!**\n\n"+
			"Your subscription is activated.\n"+
			"Type: %s\n"+
			"Valid until: %s\n\n"+
			"You can now send voice messages for analysis! 🎤",
			kind.DisplayName(), formatUntil(until)),
		ParseMode: parseMarkdown,
		Keyboard:  menuKeyboard,
	}
}

var paymentUnrecognized = Message{Text: "✅ Payment successful!"}

func notEntitled(products []entitlement.Product) Message {
	return Message{
		Text: "⚠️ **No active subscription**\n\n" +
			"You need an active subscription to use this feature.\n\n" +
			"Click /start to subscribe!",
		ParseMode: parseMarkdown,
		Keyboard:  offerKeyboard(products),
	}
}

var (
	processingMessage = Message{
		Text:     "🔄 Analyzing your message... (this may take a few seconds)",
		Keyboard: menuKeyboard,
	}

	nothingToRetry = Message{
		Text: "🎤 **Send a voice message**\n\n" +
			"I don't have a saved message to retry.\n\n" +
			"Please send a new voice message.",
		ParseMode: parseMarkdown,
		Keyboard:  menuKeyboard,
	}

	retryOffer = Message{
		Text: "❌ **Processing error**\n\n" +
			"An error occurred while analyzing your voice message.\n\n" +
			"Click \"" + ButtonRetry + "\" to try again with the same audio.",
		ParseMode: parseMarkdown,
		Keyboard:  retryKeyboard,
	}

	genericFailure = Message{
		Text:     "⚠️ Something went wrong. Please try again in a moment.",
		Keyboard: menuKeyboard,
	}
)

func feedbackMessage(text string) Message {
	return Message{Text: text, Keyboard: menuKeyboard}
}

func replyTranscript(text string) Message {
	return Message{
		Text:      "📝 Response text:\n||" + escapeMarkdownV2(text) + "||",
		ParseMode: parseMarkdownV2,
		Keyboard:  menuKeyboard,
	}
}

func formatUntil(t time.Time) string {
	return t.Format(validUntilLayout)
}

var markdownV2Escaper = strings.NewReplacer(
	`\`, `\\`,
	"_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
	"~", `\~`, "`", "\\`", ">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`,
	"=", `\=`, "|", `\|`, "{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
)

func escapeMarkdownV2(s string) string {
	return markdownV2Escaper.Replace(s)
}

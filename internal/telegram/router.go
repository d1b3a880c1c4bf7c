// AngelaMos | 2026
// router.go

package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/carterperez-dev/voice-tutor/internal/analytics"
	"github.com/carterperez-dev/voice-tutor/internal/entitlement"
	"github.com/carterperez-dev/voice-tutor/internal/payment"
	"github.com/carterperez-dev/voice-tutor/internal/state"
	"github.com/carterperez-dev/voice-tutor/internal/user"
	"github.com/carterperez-dev/voice-tutor/internal/voice"
)

type Entitlements interface {
	GetOrCreateUser(ctx context.Context, p user.Profile) (*user.User, error)
	Status(ctx context.Context, userID int64) (entitlement.Status, error)
	ActivateByPromo(ctx context.Context, userID int64, code string) (entitlement.PromoOutcome, error)
}

type Payments interface {
	PreCheckout(payload string) (bool, string)
	OnPaymentConfirmed(ctx context.Context, c payment.Confirmation) (entitlement.PaymentOutcome, error)
}

type Pipeline interface {
	Process(ctx context.Context, userID int64, input *voice.Input) voice.Result
}

type RouterDeps struct {
	Messenger      Messenger
	Entitlements   Entitlements
	Payments       Payments
	Pipeline       Pipeline
	Waiting        state.WaitSet
	Catalog        *entitlement.Catalog
	Sink           analytics.Sink
	SupportContact string
}

// Router maps inbound updates onto the services. Conversations are private
// chats, so the sender's user id doubles as the chat id for replies.
type Router struct {
	deps RouterDeps
	wg   sync.WaitGroup
}

func NewRouter(deps RouterDeps) *Router {
	if deps.Sink == nil {
		deps.Sink = analytics.Noop{}
	}
	return &Router{deps: deps}
}

// Dispatch handles update on its own goroutine. The handler outlives the
// caller's context: a pipeline run finishes even if the request that
// delivered the update is gone.
func (r *Router) Dispatch(ctx context.Context, update tgbotapi.Update) {
	ctx = context.WithoutCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				slog.ErrorContext(ctx, "panic handling update",
					"update_id", update.UpdateID,
					"panic", rec,
					"stack", string(debug.Stack()),
				)
			}
		}()
		r.Handle(ctx, update)
	}()
}

// Wait blocks until in-flight handlers finish or ctx is done.
func (r *Router) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for update handlers: %w", ctx.Err())
	}
}

func (r *Router) Handle(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.PreCheckoutQuery != nil:
		r.handlePreCheckout(ctx, update.PreCheckoutQuery)
	case update.CallbackQuery != nil:
		r.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		r.handleMessage(ctx, update.Message)
	default:
		slog.DebugContext(ctx, "ignoring update", "update_id", update.UpdateID)
	}
}

func (r *Router) handlePreCheckout(ctx context.Context, q *tgbotapi.PreCheckoutQuery) {
	ok, reason := r.deps.Payments.PreCheckout(q.InvoicePayload)
	if !ok {
		slog.InfoContext(ctx, "pre-checkout rejected",
			"query_id", q.ID,
			"payload", q.InvoicePayload,
		)
	}
	if err := r.deps.Messenger.AnswerPreCheckout(ctx, q.ID, ok, reason); err != nil {
		slog.WarnContext(ctx, "answer pre-checkout", "query_id", q.ID, "error", err)
	}
}

func (r *Router) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil {
		slog.DebugContext(ctx, "callback without sender", "callback_id", cb.ID)
		return
	}

	if err := r.deps.Messenger.AnswerCallback(ctx, cb.ID); err != nil {
		slog.WarnContext(ctx, "answer callback", "callback_id", cb.ID, "error", err)
	}

	u, ok := r.identify(ctx, cb.From)
	if !ok {
		return
	}

	r.deps.Sink.Track(ctx, analytics.EventCallbackPressed, u.ID, analytics.Properties{
		"callback_data": cb.Data,
	})

	if product, found := r.deps.Catalog.Lookup(cb.Data); found {
		r.sendInvoice(ctx, u, cb.From.UserName, product)
		return
	}

	switch cb.Data {
	case CallbackPromo:
		if err := r.deps.Waiting.Add(ctx, u.ID); err != nil {
			slog.ErrorContext(ctx, "mark promo waiting", "user_id", u.ID, "error", err)
			r.reply(ctx, u.ID, genericFailure)
			return
		}
		r.reply(ctx, u.ID, promoPrompt)
	case CallbackShowMenu:
		r.showMenu(ctx, u)
	default:
		slog.DebugContext(ctx, "unknown callback", "user_id", u.ID, "data", cb.Data)
	}
}

func (r *Router) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		slog.DebugContext(ctx, "message without sender", "message_id", msg.MessageID)
		return
	}

	u, ok := r.identify(ctx, msg.From)
	if !ok {
		return
	}

	switch {
	case msg.SuccessfulPayment != nil:
		r.handlePayment(ctx, u.ID, msg.SuccessfulPayment)
	case msg.IsCommand():
		r.handleCommand(ctx, u, msg.Command())
	case msg.Text != "" && r.waitingForPromo(ctx, u.ID):
		r.handlePromoCode(ctx, u.ID, msg.Text)
	case msg.Voice != nil:
		r.deps.Pipeline.Process(ctx, u.ID, &voice.Input{
			FileID:   msg.Voice.FileID,
			Duration: msg.Voice.Duration,
		})
	case msg.Text == ButtonMainMenu:
		r.showMenu(ctx, u)
	case msg.Text == ButtonHelp:
		r.reply(ctx, u.ID, helpMessage(r.deps.SupportContact))
	case msg.Text == ButtonRetry:
		r.deps.Pipeline.Process(ctx, u.ID, nil)
	default:
		slog.DebugContext(ctx, "ignoring message", "user_id", u.ID, "message_id", msg.MessageID)
	}
}

func (r *Router) handleCommand(ctx context.Context, u *user.User, command string) {
	r.deps.Sink.Track(ctx, analytics.EventCommandUsed, u.ID, analytics.Properties{
		"command": "/" + command,
	})

	if command != CommandStart {
		slog.DebugContext(ctx, "unknown command", "user_id", u.ID, "command", command)
		return
	}

	st, err := r.deps.Entitlements.Status(ctx, u.ID)
	if err != nil {
		r.fail(ctx, u.ID, "load entitlement status", err)
		return
	}

	if st.Entitled {
		r.reply(ctx, u.ID, welcomeEntitled(u.DisplayName()))
		return
	}
	r.reply(ctx, u.ID, welcomeOffer(u.DisplayName(), r.deps.Catalog.Products()))
}

func (r *Router) handlePromoCode(ctx context.Context, userID int64, text string) {
	if err := r.deps.Waiting.Remove(ctx, userID); err != nil {
		slog.WarnContext(ctx, "clear promo waiting", "user_id", userID, "error", err)
	}

	out, err := r.deps.Entitlements.ActivateByPromo(ctx, userID, text)
	if err != nil {
		r.fail(ctx, userID, "activate promo code", err)
		return
	}

	switch out.Result {
	case entitlement.PromoSuccess:
		r.reply(ctx, userID, promoActivated(out.DurationDays))
	case entitlement.PromoAlreadyUsed:
		r.reply(ctx, userID, promoAlreadyUsed)
	default:
		r.reply(ctx, userID, promoInvalid)
	}
}

func (r *Router) handlePayment(ctx context.Context, userID int64, sp *tgbotapi.SuccessfulPayment) {
	out, err := r.deps.Payments.OnPaymentConfirmed(ctx, payment.Confirmation{
		UserID:    userID,
		Payload:   sp.InvoicePayload,
		Amount:    sp.TotalAmount,
		Currency:  sp.Currency,
		ChargeRef: sp.TelegramPaymentChargeID,
	})
	if err != nil {
		r.fail(ctx, userID, "reconcile payment", err)
		return
	}

	if !out.Activated() {
		r.reply(ctx, userID, paymentUnrecognized)
		return
	}
	r.reply(ctx, userID, paymentActivated(out.Product.Kind, out.Grant.ExpiresAt))
}

func (r *Router) showMenu(ctx context.Context, u *user.User) {
	st, err := r.deps.Entitlements.Status(ctx, u.ID)
	if err != nil {
		r.fail(ctx, u.ID, "load entitlement status", err)
		return
	}

	if st.Entitled {
		r.reply(ctx, u.ID, menuEntitled(u.DisplayName(), st))
		return
	}
	r.reply(ctx, u.ID, menuOffer(u.DisplayName(), r.deps.Catalog.Products()))
}

func (r *Router) sendInvoice(
	ctx context.Context,
	u *user.User,
	username string,
	p entitlement.Product,
) {
	suffix := username
	if suffix == "" {
		suffix = strconv.FormatInt(u.ID, 10)
	}

	err := r.deps.Messenger.SendInvoice(ctx, u.ID, Invoice{
		Title:       p.Title,
		Description: p.Description,
		Payload:     p.Code + "_" + suffix,
		Currency:    p.Currency,
		Label:       p.Kind.DisplayName(),
		Amount:      p.Price,
	})
	if err != nil {
		slog.WarnContext(ctx, "send invoice",
			"user_id", u.ID,
			"product", p.Code,
			"error", err,
		)
	}
}

func (r *Router) waitingForPromo(ctx context.Context, userID int64) bool {
	waiting, err := r.deps.Waiting.Contains(ctx, userID)
	if err != nil {
		slog.WarnContext(ctx, "check promo waiting", "user_id", userID, "error", err)
		return false
	}
	return waiting
}

// identify registers the sender before anything refers to them by id.
func (r *Router) identify(ctx context.Context, from *tgbotapi.User) (*user.User, bool) {
	u, err := r.deps.Entitlements.GetOrCreateUser(ctx, user.Profile{
		ID:        from.ID,
		Username:  from.UserName,
		FirstName: from.FirstName,
		LastName:  from.LastName,
	})
	if err != nil {
		r.fail(ctx, from.ID, "register user", err)
		return nil, false
	}
	return u, true
}

func (r *Router) reply(ctx context.Context, userID int64, msg Message) {
	if err := r.deps.Messenger.SendText(ctx, userID, msg); err != nil {
		slog.WarnContext(ctx, "send message", "user_id", userID, "error", err)
	}
}

func (r *Router) fail(ctx context.Context, userID int64, op string, err error) {
	slog.ErrorContext(ctx, op, "user_id", userID, "error", err)
	r.reply(ctx, userID, genericFailure)
}

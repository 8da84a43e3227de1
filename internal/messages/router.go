package messages

import (
	"context"
	"strings"

	"github.com/angelmondragon/wa-returns-backend/pkg/db/models"
	"github.com/angelmondragon/wa-returns-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wa-returns-backend/pkg/errors"
	"github.com/angelmondragon/wa-returns-backend/pkg/logger"
)

const maxInboundLength = 1000

const helpText = "❓ *How can I help?*\n\n" +
	"*Returns and exchanges:*\n" +
	"• \"return\" - Start a return\n" +
	"• \"exchange\" - Start an exchange\n" +
	"• \"return status <ID>\" - Track a return\n" +
	"• \"exchange status <ID>\" - Track an exchange\n\n" +
	"*Orders:*\n" +
	"• Send an order ID or AWB number - Check its status\n" +
	"• \"history\" - See your recent orders"

const failureText = "⚠️ Sorry, something went wrong. Please try again or contact support."

// Messenger delivers a text to a phone number.
type Messenger interface {
	SendText(ctx context.Context, phone, text string) error
}

type conversationHandler interface {
	Handle(ctx context.Context, phone, text string) (bool, error)
}

type orderResponder interface {
	Respond(ctx context.Context, phone, text string) (string, bool, error)
}

type RouterParams struct {
	Repository     Repository
	Conversation   conversationHandler
	OrderStatus    orderResponder
	Messenger      Messenger
	Logger         *logger.Logger
	SupportContact string
}

// Router is the entry point for inbound customer texts.
type Router struct {
	repo         Repository
	conversation conversationHandler
	orderStatus  orderResponder
	messenger    Messenger
	logg         *logger.Logger
	support      string
}

func NewRouter(params RouterParams) (*Router, error) {
	if params.Conversation == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "conversation handler required")
	}
	if params.Messenger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "messenger required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Router{
		repo:         params.Repository,
		conversation: params.Conversation,
		orderStatus:  params.OrderStatus,
		messenger:    params.Messenger,
		logg:         params.Logger,
		support:      strings.TrimSpace(params.SupportContact),
	}, nil
}

// Route logs the inbound text, lets the conversation handler claim it, then
// the order status responder, and falls back to the help text. Failures are answered with an apology and
// logged; they are not returned because the webhook has already been acked.
func (r *Router) Route(ctx context.Context, phone, text string) {
	clean := Sanitize(text)
	if clean == "" || phone == "" {
		return
	}
	ctx = r.logg.WithPhone(ctx, phone)
	r.record(ctx, phone, enums.MessageDirectionIncoming, clean)

	handled, err := r.conversation.Handle(ctx, phone, clean)
	if err != nil {
		r.logg.Error(ctx, "failed to process inbound message", err)
		r.reply(ctx, phone, failureText)
		return
	}
	if handled {
		return
	}

	if r.orderStatus != nil {
		answer, ok, err := r.orderStatus.Respond(ctx, phone, clean)
		if err != nil {
			r.logg.Error(ctx, "failed to answer order status", err)
			r.reply(ctx, phone, failureText)
			return
		}
		if ok {
			r.reply(ctx, phone, answer)
			return
		}
	}
	r.reply(ctx, phone, r.help())
}

func (r *Router) help() string {
	if r.support == "" {
		return helpText
	}
	return helpText + "\n\n📞 Support: " + r.support
}

func (r *Router) reply(ctx context.Context, phone, text string) {
	if err := r.messenger.SendText(ctx, phone, text); err != nil {
		r.logg.Error(ctx, "failed to send whatsapp message", err)
	}
}

func (r *Router) record(ctx context.Context, phone string, direction enums.MessageDirection, body string) {
	if r.repo == nil {
		return
	}
	err := r.repo.Create(ctx, &models.Message{Phone: phone, Direction: direction, Body: body})
	if err != nil {
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "failed to log message")
	}
}

// Sanitize trims the text, strips angle brackets and caps its length.
func Sanitize(text string) string {
	clean := strings.TrimSpace(text)
	clean = strings.NewReplacer("<", "", ">", "").Replace(clean)
	if runes := []rune(clean); len(runes) > maxInboundLength {
		clean = string(runes[:maxInboundLength])
	}
	return clean
}

package services

import (
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/mailer"
	pubnub "github.com/pubnub/go/v7"

	"event-tickets/models"
	"event-tickets/utils"
)

type mailSender interface {
	SendVerifiedMail(ticket *models.Ticket, ticketURL string) error
}

// NotifyService fans a ticket status change out to interested parties:
// the open ticket page (PubNub channel per ticket) and, on
// verification, the buyer's inbox. Fanout is best-effort; failures are
// logged and never surfaced to the admin action that caused them.
type NotifyService struct {
	pubnub    *pubnub.PubNub
	mailer    mailSender
	breaker   *utils.CircuitBreaker
	publicURL string
	logger    *slog.Logger
}

func NewNotifyService(pn *pubnub.PubNub, mailer mailSender, publicURL string, logger *slog.Logger) *NotifyService {
	return &NotifyService{
		pubnub:    pn,
		mailer:    mailer,
		breaker:   utils.NewCircuitBreaker("pubnub-publish"),
		publicURL: publicURL,
		logger:    logger,
	}
}

// TicketChannel names the PubNub channel a ticket page subscribes to.
func TicketChannel(code string) string {
	return fmt.Sprintf("ticket-%s", code)
}

// TicketStatusChanged publishes the new status and emails the buyer
// when the ticket was just verified.
func (s *NotifyService) TicketStatusChanged(ticket *models.Ticket) {
	s.publishStatus(ticket)

	if ticket.Status == models.StatusVerified {
		url := s.ticketURL(ticket.TicketCode)
		if err := s.mailer.SendVerifiedMail(ticket, url); err != nil {
			s.logger.Error("failed to send verification email",
				"ticketCode", ticket.TicketCode, "error", err)
		}
	}
}

func (s *NotifyService) publishStatus(ticket *models.Ticket) {
	if s.pubnub == nil {
		return
	}

	err := s.breaker.Execute(func() error {
		_, _, err := s.pubnub.Publish().
			Channel(TicketChannel(ticket.TicketCode)).
			Message(map[string]any{
				"ticket_code": ticket.TicketCode,
				"status":      ticket.Status,
			}).
			Execute()
		return err
	})
	if err != nil {
		s.logger.Error("failed to publish ticket status",
			"ticketCode", ticket.TicketCode, "status", ticket.Status, "error", err)
	}
}

func (s *NotifyService) ticketURL(code string) string {
	return fmt.Sprintf("%s/ticket/%s", s.publicURL, code)
}

// Mailer sends buyer-facing email through the PocketBase mail client,
// so SMTP settings configured in the admin UI apply without extra wiring.
type Mailer struct {
	app core.App
}

func NewMailer(app core.App) *Mailer {
	return &Mailer{app: app}
}

func (m *Mailer) SendVerifiedMail(ticket *models.Ticket, ticketURL string) error {
	meta := m.app.Settings().Meta

	message := &mailer.Message{
		From: mail.Address{
			Address: meta.SenderAddress,
			Name:    meta.SenderName,
		},
		To:      []mail.Address{{Address: ticket.BuyerEmail, Name: ticket.BuyerName}},
		Subject: "Your ticket has been verified",
		HTML: fmt.Sprintf(
			`<p>Hi %s,</p>`+
				`<p>Your payment has been verified. Your ticket code is <strong>%s</strong>.</p>`+
				`<p>Open your ticket and present the QR code at the venue for entry:</p>`+
				`<p><a href=%q>%s</a></p>`,
			ticket.BuyerName, ticket.TicketCode, ticketURL, ticketURL,
		),
	}

	return m.app.NewMailClient().Send(message)
}

package models

import (
	"time"
)

// Ticket status lifecycle: pending -> verified | rejected.
// Transitions happen only through the admin UI.
const (
	StatusPending  = "pending"
	StatusVerified = "verified"
	StatusRejected = "rejected"
)

type Ticket struct {
	ID               string    `json:"id"`
	BuyerName        string    `json:"buyer_name"`
	BuyerEmail       string    `json:"buyer_email"`
	BuyerPhone       string    `json:"buyer_phone,omitempty"`
	Category         string    `json:"category"`
	Quantity         int       `json:"quantity"`
	TotalPrice       float64   `json:"total_price"`
	Status           string    `json:"status"`
	BankTransferSlip string    `json:"bank_transfer_slip"`
	TicketCode       string    `json:"ticket_code"`
	Created          time.Time `json:"created"`
	Updated          time.Time `json:"updated"`
}

// CountsAgainstLimit reports whether the ticket consumes category capacity.
// Rejected tickets free their quantity back up.
func (t *Ticket) CountsAgainstLimit() bool {
	return t.Status == StatusPending || t.Status == StatusVerified
}

// PurchaseRequest is the parsed buy-ticket form.
type PurchaseRequest struct {
	BuyerName  string
	BuyerEmail string
	BuyerPhone string
	Category   string
	Quantity   int
	// TotalPrice is the buyer-submitted figure. It is required for
	// compatibility with the purchase form but the stored price is
	// recomputed server-side from the category price.
	TotalPrice float64
}

type PurchaseResult struct {
	TicketCode string `json:"ticketCode"`
	Message    string `json:"message"`
}

// TicketProjection is the read-only payload returned by the public
// verification check and encoded behind the QR credential.
type TicketProjection struct {
	BuyerName  string  `json:"buyerName"`
	BuyerEmail string  `json:"buyerEmail"`
	Quantity   int     `json:"quantity"`
	TotalPrice float64 `json:"totalPrice"`
	TicketCode string  `json:"ticketCode"`
	Status     string  `json:"status"`
}

// Projection builds the public verification view of the ticket.
func (t *Ticket) Projection() *TicketProjection {
	return &TicketProjection{
		BuyerName:  t.BuyerName,
		BuyerEmail: t.BuyerEmail,
		Quantity:   t.Quantity,
		TotalPrice: t.TotalPrice,
		TicketCode: t.TicketCode,
		Status:     t.Status,
	}
}

package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/filesystem"
	"github.com/shopspring/decimal"

	"event-tickets/models"
	"event-tickets/utils"
)

// PurchaseSuccessMessage is returned to the buyer with their ticket code.
const PurchaseSuccessMessage = "Your ticket purchase is being processed. " +
	"You will receive an email once your payment is verified."

type reserver interface {
	Reserve(ctx context.Context, category string, qty, limit, sold int) error
	Release(ctx context.Context, category string, qty int) error
}

type configLoader interface {
	Load(ctx context.Context) (*models.EventConfig, error)
}

// TicketService implements the purchase and verification workflows.
type TicketService struct {
	store        Store
	inventory    *InventoryService
	reservations reserver
	config       configLoader
	logger       *slog.Logger
}

func NewTicketService(store Store, inventory *InventoryService, reservations reserver, config configLoader, logger *slog.Logger) *TicketService {
	return &TicketService{
		store:        store,
		inventory:    inventory,
		reservations: reservations,
		config:       config,
		logger:       logger,
	}
}

// Purchase runs the buy-ticket workflow: validate, resolve the
// category, check availability, take an atomic reservation, store the
// receipt and create the pending ticket. Failures after the receipt is
// stored leave an orphaned file behind; that is tolerated garbage and
// never blocks a retry.
func (s *TicketService) Purchase(ctx context.Context, req *models.PurchaseRequest, slip *filesystem.File) (*models.PurchaseResult, error) {
	if err := validatePurchase(req, slip); err != nil {
		return nil, err
	}

	cfg, err := s.config.Load(ctx)
	if err != nil {
		return nil, err
	}

	cat, ok := cfg.Category(req.Category)
	if !ok {
		return nil, ErrInvalidCategory
	}

	tickets, err := s.inventory.ActiveTickets(ctx, cat.Name)
	if err != nil {
		return nil, fmt.Errorf("read active tickets: %w", err)
	}
	sold := SoldQuantity(tickets)
	remaining := Remaining(cat.Limit, sold)

	if remaining <= 0 {
		return nil, ErrSoldOut
	}
	if req.Quantity > remaining {
		return nil, &InsufficientRemainingError{Remaining: remaining}
	}

	if err := s.reservations.Reserve(ctx, cat.Name, req.Quantity, cat.Limit, sold); err != nil {
		return nil, err
	}

	total := categoryTotal(cat, req.Quantity)
	if req.TotalPrice != total {
		// The submitted figure is never trusted; log the disagreement
		// and store the recomputed price.
		s.logger.Warn("submitted total price differs from computed price",
			"submitted", req.TotalPrice, "computed", total, "category", cat.Name)
	}

	receipt, err := s.storeReceipt(req.BuyerName, slip)
	if err != nil {
		s.releaseQuietly(ctx, cat.Name, req.Quantity)
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	code := utils.GenerateTicketCode()

	ticket, err := s.createTicket(req, cat.Name, total, receipt.Id, code)
	if err != nil {
		s.releaseQuietly(ctx, cat.Name, req.Quantity)
		return nil, fmt.Errorf("create ticket: %w", err)
	}

	s.logger.Info("ticket purchased",
		"ticketCode", code, "category", cat.Name, "quantity", req.Quantity, "id", ticket.Id)

	return &models.PurchaseResult{
		TicketCode: code,
		Message:    PurchaseSuccessMessage,
	}, nil
}

// CheckVerification is the public read-only check backing the QR
// credential. It returns the projection only for verified tickets.
func (s *TicketService) CheckVerification(ctx context.Context, code string) (*models.TicketProjection, error) {
	if code == "" {
		return nil, ErrMissingCode
	}

	record, err := s.findTicketRecord(code)
	if err != nil {
		return nil, err
	}

	ticket := TicketFromRecord(record)
	if ticket.Status != models.StatusVerified {
		return nil, &NotVerifiedError{Status: ticket.Status}
	}

	return ticket.Projection(), nil
}

// FindByCode loads a ticket for the status page.
func (s *TicketService) FindByCode(ctx context.Context, code string) (*models.Ticket, error) {
	if code == "" {
		return nil, ErrTicketNotFound
	}

	record, err := s.findTicketRecord(code)
	if err != nil {
		return nil, err
	}

	return TicketFromRecord(record), nil
}

// findTicketRecord keeps "no such ticket" distinct from store faults:
// only a genuine miss becomes ErrTicketNotFound, anything else stays a
// wrapped error so callers answer with a generic failure.
func (s *TicketService) findTicketRecord(code string) (*core.Record, error) {
	record, err := s.store.FindFirstRecordByData("tickets", "ticketCode", code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find ticket: %w", err)
	}
	return record, nil
}

func validatePurchase(req *models.PurchaseRequest, slip *filesystem.File) error {
	switch {
	case req.BuyerName == "":
		return &ValidationError{Field: "buyerName"}
	case req.BuyerEmail == "":
		return &ValidationError{Field: "buyerEmail"}
	case req.Category == "":
		return &ValidationError{Field: "category"}
	case req.Quantity < 1:
		return &ValidationError{Field: "quantity"}
	case req.TotalPrice <= 0:
		return &ValidationError{Field: "totalPrice"}
	case slip == nil || slip.Size == 0:
		return &ValidationError{Field: "bankTransferSlip"}
	}
	return nil
}

// categoryTotal computes price * quantity with decimal arithmetic so
// fractional prices do not accumulate float error.
func categoryTotal(cat models.TicketCategory, quantity int) float64 {
	total, _ := decimal.NewFromFloat(cat.Price).
		Mul(decimal.NewFromInt(int64(quantity))).
		Float64()
	return total
}

func (s *TicketService) storeReceipt(buyerName string, slip *filesystem.File) (*core.Record, error) {
	collection, err := s.store.FindCollectionByNameOrId("receipts")
	if err != nil {
		return nil, err
	}

	receipt := core.NewRecord(collection)
	receipt.Set("file", slip)
	receipt.Set("alt", fmt.Sprintf("Bank transfer slip from %s", buyerName))

	if err := s.store.Save(receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

func (s *TicketService) createTicket(req *models.PurchaseRequest, category string, total float64, receiptID, code string) (*core.Record, error) {
	collection, err := s.store.FindCollectionByNameOrId("tickets")
	if err != nil {
		return nil, err
	}

	ticket := core.NewRecord(collection)
	ticket.Set("buyerName", req.BuyerName)
	ticket.Set("buyerEmail", req.BuyerEmail)
	ticket.Set("buyerPhone", req.BuyerPhone)
	ticket.Set("category", category)
	ticket.Set("quantity", req.Quantity)
	ticket.Set("totalPrice", total)
	ticket.Set("status", models.StatusPending)
	ticket.Set("bankTransferSlip", receiptID)
	ticket.Set("ticketCode", code)

	if err := s.store.Save(ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) releaseQuietly(ctx context.Context, category string, qty int) {
	if err := s.reservations.Release(ctx, category, qty); err != nil {
		s.logger.Error("failed to release reservation", "category", category, "qty", qty, "error", err)
	}
}

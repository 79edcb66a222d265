package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/filesystem"

	"event-tickets/models"
	"event-tickets/monitoring"
	"event-tickets/services"
)

type ticketAPI interface {
	Purchase(ctx context.Context, req *models.PurchaseRequest, slip *filesystem.File) (*models.PurchaseResult, error)
	CheckVerification(ctx context.Context, code string) (*models.TicketProjection, error)
}

// unknownCategory caps metric label cardinality: the category label
// only ever carries configured category names, never raw client input.
const unknownCategory = "unknown"

type TicketHandler struct {
	tickets ticketAPI
}

func NewTicketHandler(tickets ticketAPI) *TicketHandler {
	return &TicketHandler{tickets: tickets}
}

// BuyTicket - POST /api/buy-ticket (multipart form)
func (h *TicketHandler) BuyTicket(e *core.RequestEvent) error {
	req := &models.PurchaseRequest{
		BuyerName:  e.Request.FormValue("buyerName"),
		BuyerEmail: e.Request.FormValue("buyerEmail"),
		BuyerPhone: e.Request.FormValue("buyerPhone"),
		Category:   e.Request.FormValue("category"),
	}
	// Unparseable numbers behave like missing fields.
	req.Quantity, _ = strconv.Atoi(e.Request.FormValue("quantity"))
	req.TotalPrice, _ = strconv.ParseFloat(e.Request.FormValue("totalPrice"), 64)

	var slip *filesystem.File
	if files, err := e.FindUploadedFiles("bankTransferSlip"); err == nil && len(files) > 0 {
		slip = files[0]
	}

	result, err := h.tickets.Purchase(e.Request.Context(), req, slip)
	if err != nil {
		return h.purchaseError(e, req.Category, err)
	}

	monitoring.TrackPurchase(req.Category, "accepted")

	return e.JSON(http.StatusOK, map[string]any{
		"success":    true,
		"message":    result.Message,
		"ticketCode": result.TicketCode,
	})
}

func (h *TicketHandler) purchaseError(e *core.RequestEvent, category string, err error) error {
	var vErr *services.ValidationError
	var insErr *services.InsufficientRemainingError

	switch {
	case errors.As(err, &vErr):
		monitoring.TrackPurchase(unknownCategory, "validation_error")
		return e.JSON(http.StatusBadRequest, map[string]string{
			"error": "Missing required fields",
		})

	case errors.Is(err, services.ErrInvalidCategory):
		monitoring.TrackPurchase(unknownCategory, "invalid_category")
		return e.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid ticket category",
		})

	case errors.Is(err, services.ErrSoldOut):
		monitoring.TrackPurchase(category, "sold_out")
		return e.JSON(http.StatusBadRequest, map[string]string{
			"error": "This ticket category is sold out",
		})

	case errors.As(err, &insErr):
		monitoring.TrackPurchase(category, "insufficient")
		return e.JSON(http.StatusBadRequest, map[string]string{
			"error": "Only " + strconv.Itoa(insErr.Remaining) + " ticket(s) remaining for this category",
		})

	case errors.Is(err, services.ErrConflict):
		monitoring.TrackPurchase(category, "conflict")
		return e.JSON(http.StatusConflict, map[string]string{
			"error": "Those tickets were just claimed by another purchase. Please try again.",
		})

	default:
		// Storage and unexpected faults: details stay server-side. The
		// request may have died before category validation, so the
		// label stays the sentinel.
		monitoring.TrackPurchase(unknownCategory, "error")
		e.App.Logger().Error("buy ticket failed", "error", err)
		return e.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to process ticket purchase",
		})
	}
}

// VerifyTicket - GET /api/verify-ticket?code=<code>
// Backs the QR credential: venue scanners call this at the gate.
func (h *TicketHandler) VerifyTicket(e *core.RequestEvent) error {
	code := e.Request.URL.Query().Get("code")

	projection, err := h.tickets.CheckVerification(e.Request.Context(), code)
	if err != nil {
		return h.verifyError(e, err)
	}

	monitoring.TrackVerificationCheck("valid")

	return e.JSON(http.StatusOK, map[string]any{
		"valid":  true,
		"ticket": projection,
	})
}

func (h *TicketHandler) verifyError(e *core.RequestEvent, err error) error {
	var nvErr *services.NotVerifiedError

	switch {
	case errors.Is(err, services.ErrMissingCode):
		monitoring.TrackVerificationCheck("missing_code")
		return e.JSON(http.StatusBadRequest, map[string]any{
			"valid": false,
			"error": "No ticket code provided",
		})

	case errors.Is(err, services.ErrTicketNotFound):
		monitoring.TrackVerificationCheck("not_found")
		return e.JSON(http.StatusNotFound, map[string]any{
			"valid": false,
			"error": "Ticket not found",
		})

	case errors.As(err, &nvErr):
		monitoring.TrackVerificationCheck("not_verified")
		return e.JSON(http.StatusBadRequest, map[string]any{
			"valid":  false,
			"status": nvErr.Status,
			"error":  "Ticket is " + nvErr.Status,
		})

	default:
		monitoring.TrackVerificationCheck("error")
		e.App.Logger().Error("verify ticket failed", "error", err)
		return e.JSON(http.StatusInternalServerError, map[string]any{
			"valid": false,
			"error": "Failed to verify ticket",
		})
	}
}

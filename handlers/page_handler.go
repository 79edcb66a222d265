package handlers

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"

	"github.com/pocketbase/pocketbase/core"
	registry "github.com/pocketbase/pocketbase/tools/template"
	qrcode "github.com/skip2/go-qrcode"

	"event-tickets/models"
	"event-tickets/services"
)

const qrSize = 300

type ticketFinder interface {
	FindByCode(ctx context.Context, code string) (*models.Ticket, error)
}

// PageHandler renders the buyer-facing pages: the event home page and
// the per-ticket status page with its QR credential.
type PageHandler struct {
	config    *services.EventConfigService
	inventory *services.InventoryService
	tickets   ticketFinder
	publicURL string
	viewsDir  string
	templates *registry.Registry
}

func NewPageHandler(config *services.EventConfigService, inventory *services.InventoryService, tickets ticketFinder, publicURL string) *PageHandler {
	return &PageHandler{
		config:    config,
		inventory: inventory,
		tickets:   tickets,
		publicURL: publicURL,
		viewsDir:  "views",
		templates: registry.NewRegistry(),
	}
}

type homePageData struct {
	Config       *models.EventConfig
	Content      template.HTML
	ImageURL     string
	Availability []services.CategoryAvailability
}

// Home - GET /
func (h *PageHandler) Home(e *core.RequestEvent) error {
	ctx := e.Request.Context()

	cfg, err := h.config.Load(ctx)
	if err != nil {
		if errors.Is(err, services.ErrNotConfigured) {
			return e.HTML(http.StatusOK, "<h1>Event not configured yet</h1>")
		}
		return h.renderError(e, err)
	}

	availability, err := h.inventory.Availability(ctx, cfg)
	if err != nil {
		return h.renderError(e, err)
	}

	data := homePageData{
		Config:       cfg,
		Content:      template.HTML(cfg.Content),
		Availability: availability,
	}
	if cfg.FeaturedImage != "" {
		data.ImageURL = fmt.Sprintf("/api/files/event_config/%s/%s", cfg.ID, cfg.FeaturedImage)
	}

	html, err := h.templates.LoadFiles(
		filepath.Join(h.viewsDir, "layout.html"),
		filepath.Join(h.viewsDir, "home.html"),
	).Render(data)
	if err != nil {
		return h.renderError(e, err)
	}

	return e.HTML(http.StatusOK, html)
}

type ticketPageData struct {
	Ticket     *models.Ticket
	IsPending  bool
	IsVerified bool
	IsRejected bool
	TicketURL  string
	QRImageURL string
}

// TicketPage - GET /ticket/{code}
func (h *PageHandler) TicketPage(e *core.RequestEvent) error {
	code := e.Request.PathValue("code")

	ticket, err := h.tickets.FindByCode(e.Request.Context(), code)
	if err != nil {
		if errors.Is(err, services.ErrTicketNotFound) {
			return h.renderNotFound(e)
		}
		return h.renderError(e, err)
	}

	data := ticketPageData{
		Ticket:     ticket,
		IsPending:  ticket.Status == models.StatusPending,
		IsVerified: ticket.Status == models.StatusVerified,
		IsRejected: ticket.Status == models.StatusRejected,
		TicketURL:  fmt.Sprintf("%s/ticket/%s", h.publicURL, ticket.TicketCode),
		QRImageURL: fmt.Sprintf("/ticket/%s/qr.png", ticket.TicketCode),
	}

	html, err := h.templates.LoadFiles(
		filepath.Join(h.viewsDir, "layout.html"),
		filepath.Join(h.viewsDir, "ticket.html"),
	).Render(data)
	if err != nil {
		return h.renderError(e, err)
	}

	return e.HTML(http.StatusOK, html)
}

// TicketQR - GET /ticket/{code}/qr.png
// The credential only exists for verified tickets; everything else 404s.
func (h *PageHandler) TicketQR(e *core.RequestEvent) error {
	code := e.Request.PathValue("code")

	ticket, err := h.tickets.FindByCode(e.Request.Context(), code)
	if err != nil || ticket.Status != models.StatusVerified {
		return e.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}

	verifyURL := fmt.Sprintf("%s/api/verify-ticket?code=%s", h.publicURL, ticket.TicketCode)
	png, err := qrcode.Encode(verifyURL, qrcode.Medium, qrSize)
	if err != nil {
		return h.renderError(e, err)
	}

	e.Response.Header().Set("Content-Type", "image/png")
	e.Response.WriteHeader(http.StatusOK)
	_, err = e.Response.Write(png)
	return err
}

func (h *PageHandler) renderNotFound(e *core.RequestEvent) error {
	html, err := h.templates.LoadFiles(
		filepath.Join(h.viewsDir, "layout.html"),
		filepath.Join(h.viewsDir, "not_found.html"),
	).Render(nil)
	if err != nil {
		return e.HTML(http.StatusNotFound, "<h1>Ticket not found</h1>")
	}
	return e.HTML(http.StatusNotFound, html)
}

func (h *PageHandler) renderError(e *core.RequestEvent, err error) error {
	e.App.Logger().Error("page render failed", "path", e.Request.URL.Path, "error", err)
	return e.HTML(http.StatusInternalServerError, "<h1>Something went wrong</h1>")
}

package services

import (
	"context"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"event-tickets/models"
)

// SoldQuantity sums the quantities of tickets that count against a
// category limit (pending and verified; rejected tickets free their
// capacity back up).
func SoldQuantity(tickets []*core.Record) int {
	total := 0
	for _, t := range tickets {
		switch t.GetString("status") {
		case models.StatusPending, models.StatusVerified:
			total += t.GetInt("quantity")
		}
	}
	return total
}

// Remaining computes the capacity left in a category, never negative.
func Remaining(limit, sold int) int {
	remaining := limit - sold
	if remaining < 0 {
		return 0
	}
	return remaining
}

// activeTicketsFilter matches every ticket that consumes capacity in
// the given category.
const activeTicketsFilter = "category = {:category} && (status = 'pending' || status = 'verified')"

// InventoryService reads ticket records and computes availability.
type InventoryService struct {
	store Store
}

func NewInventoryService(store Store) *InventoryService {
	return &InventoryService{store: store}
}

// ActiveTickets fetches all pending and verified tickets for a category.
func (s *InventoryService) ActiveTickets(ctx context.Context, category string) ([]*core.Record, error) {
	return s.store.FindRecordsByFilter(
		"tickets",
		activeTicketsFilter,
		"",
		0,
		0,
		dbx.Params{"category": category},
	)
}

// CategoryAvailability is the per-category view rendered on the home page.
type CategoryAvailability struct {
	Category  models.TicketCategory
	Sold      int
	Remaining int
}

// Availability computes remaining capacity for every configured category.
func (s *InventoryService) Availability(ctx context.Context, cfg *models.EventConfig) ([]CategoryAvailability, error) {
	result := make([]CategoryAvailability, 0, len(cfg.TicketCategories))
	for _, cat := range cfg.TicketCategories {
		tickets, err := s.ActiveTickets(ctx, cat.Name)
		if err != nil {
			return nil, err
		}
		sold := SoldQuantity(tickets)
		result = append(result, CategoryAvailability{
			Category:  cat,
			Sold:      sold,
			Remaining: Remaining(cat.Limit, sold),
		})
	}
	return result, nil
}

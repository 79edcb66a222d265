package services

import (
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"event-tickets/models"
)

// Store is the slice of the PocketBase app the workflows depend on.
// core.App satisfies it; tests substitute a mock.
type Store interface {
	FindCollectionByNameOrId(nameOrId string) (*core.Collection, error)
	FindFirstRecordByData(collectionModelOrIdentifier any, key string, value any) (*core.Record, error)
	FindRecordsByFilter(collectionModelOrIdentifier any, filter string, sort string, limit int, offset int, params ...dbx.Params) ([]*core.Record, error)
	Save(model core.Model) error
}

var _ Store = (core.App)(nil)

// TicketFromRecord maps a tickets record into the domain model.
func TicketFromRecord(r *core.Record) *models.Ticket {
	return &models.Ticket{
		ID:               r.Id,
		BuyerName:        r.GetString("buyerName"),
		BuyerEmail:       r.GetString("buyerEmail"),
		BuyerPhone:       r.GetString("buyerPhone"),
		Category:         r.GetString("category"),
		Quantity:         r.GetInt("quantity"),
		TotalPrice:       r.GetFloat("totalPrice"),
		Status:           r.GetString("status"),
		BankTransferSlip: r.GetString("bankTransferSlip"),
		TicketCode:       r.GetString("ticketCode"),
		Created:          r.GetDateTime("created").Time(),
		Updated:          r.GetDateTime("updated").Time(),
	}
}

// EventConfigFromRecord maps the singleton event_config record.
func EventConfigFromRecord(r *core.Record) (*models.EventConfig, error) {
	cfg := &models.EventConfig{
		ID:                r.Id,
		FeaturedImage:     r.GetString("featuredImage"),
		Content:           r.GetString("content"),
		TicketLabel:       r.GetString("ticketLabel"),
		Currency:          r.GetString("currency"),
		BankAccountName:   r.GetString("bankAccountName"),
		BankAccountNumber: r.GetString("bankAccountNumber"),
	}
	if err := r.UnmarshalJSONField("ticketCategories", &cfg.TicketCategories); err != nil {
		return nil, err
	}
	return cfg, nil
}

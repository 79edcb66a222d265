package services

import (
	"context"
	"io"
	"log/slog"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/stretchr/testify/mock"

	"event-tickets/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ticketsCollection builds an in-memory collection carrying the fields
// the workflows read and write, without touching a database.
func ticketsCollection() *core.Collection {
	col := core.NewBaseCollection("tickets")
	col.Fields.Add(
		&core.TextField{Name: "buyerName"},
		&core.EmailField{Name: "buyerEmail"},
		&core.TextField{Name: "buyerPhone"},
		&core.TextField{Name: "category"},
		&core.NumberField{Name: "quantity", OnlyInt: true},
		&core.NumberField{Name: "totalPrice"},
		&core.SelectField{Name: "status", Values: []string{
			models.StatusPending, models.StatusVerified, models.StatusRejected,
		}},
		&core.TextField{Name: "bankTransferSlip"},
		&core.TextField{Name: "ticketCode"},
	)
	return col
}

func receiptsCollection() *core.Collection {
	col := core.NewBaseCollection("receipts")
	col.Fields.Add(&core.TextField{Name: "alt"})
	return col
}

func eventConfigCollection() *core.Collection {
	col := core.NewBaseCollection("event_config")
	col.Fields.Add(
		&core.TextField{Name: "content"},
		&core.JSONField{Name: "ticketCategories"},
		&core.TextField{Name: "ticketLabel"},
		&core.TextField{Name: "currency"},
		&core.TextField{Name: "bankAccountName"},
		&core.TextField{Name: "bankAccountNumber"},
	)
	return col
}

func newTicketRecord(status string, quantity int) *core.Record {
	r := core.NewRecord(ticketsCollection())
	r.Set("status", status)
	r.Set("quantity", quantity)
	return r
}

// mockStore is a testify mock over the Store slice of the app.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) FindCollectionByNameOrId(nameOrId string) (*core.Collection, error) {
	args := m.Called(nameOrId)
	if col, ok := args.Get(0).(*core.Collection); ok {
		return col, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) FindFirstRecordByData(collection any, key string, value any) (*core.Record, error) {
	args := m.Called(collection, key, value)
	if rec, ok := args.Get(0).(*core.Record); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) FindRecordsByFilter(collection any, filter string, sort string, limit int, offset int, params ...dbx.Params) ([]*core.Record, error) {
	args := m.Called(collection, filter, sort, limit, offset, params)
	if recs, ok := args.Get(0).([]*core.Record); ok {
		return recs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) Save(model core.Model) error {
	args := m.Called(model)
	return args.Error(0)
}

type mockReserver struct {
	mock.Mock
}

func (m *mockReserver) Reserve(ctx context.Context, category string, qty, limit, sold int) error {
	args := m.Called(ctx, category, qty, limit, sold)
	return args.Error(0)
}

func (m *mockReserver) Release(ctx context.Context, category string, qty int) error {
	args := m.Called(ctx, category, qty)
	return args.Error(0)
}

type mockConfigLoader struct {
	mock.Mock
}

func (m *mockConfigLoader) Load(ctx context.Context) (*models.EventConfig, error) {
	args := m.Called(ctx)
	if cfg, ok := args.Get(0).(*models.EventConfig); ok {
		return cfg, args.Error(1)
	}
	return nil, args.Error(1)
}

package services

import (
	"context"
	"testing"

	"github.com/pocketbase/pocketbase/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"event-tickets/models"
)

func TestSoldQuantity(t *testing.T) {
	tickets := []*core.Record{
		newTicketRecord(models.StatusPending, 2),
		newTicketRecord(models.StatusVerified, 3),
		newTicketRecord(models.StatusRejected, 5),
	}

	// Rejected tickets do not consume capacity.
	assert.Equal(t, 5, SoldQuantity(tickets))
	assert.Equal(t, 0, SoldQuantity(nil))
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, 2, Remaining(2, 0))
	assert.Equal(t, 0, Remaining(2, 2))
	// Never negative, even when over-limit tickets already exist.
	assert.Equal(t, 0, Remaining(2, 5))
}

func TestAvailability(t *testing.T) {
	store := &mockStore{}
	inventory := NewInventoryService(store)

	cfg := &models.EventConfig{
		TicketCategories: []models.TicketCategory{
			{Name: "First Row", Price: 100, Limit: 5},
			{Name: "General", Price: 50, Limit: 10},
		},
	}

	store.On("FindRecordsByFilter", "tickets", activeTicketsFilter, "", 0, 0, mock.Anything).
		Return([]*core.Record{newTicketRecord(models.StatusVerified, 3)}, nil).Once()
	store.On("FindRecordsByFilter", "tickets", activeTicketsFilter, "", 0, 0, mock.Anything).
		Return([]*core.Record{}, nil).Once()

	availability, err := inventory.Availability(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, availability, 2)

	assert.Equal(t, "First Row", availability[0].Category.Name)
	assert.Equal(t, 3, availability[0].Sold)
	assert.Equal(t, 2, availability[0].Remaining)

	assert.Equal(t, 10, availability[1].Remaining)
	store.AssertExpectations(t)
}

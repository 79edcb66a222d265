package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

// Seeds a default event configuration so the home page renders before
// an admin has filled anything in. The admin UI is the intended editor.
func init() {
	m.Register(func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("event_config")
		if err != nil {
			return err
		}

		existing, err := app.FindRecordsByFilter(collection, "id != ''", "", 1, 0)
		if err == nil && len(existing) > 0 {
			return nil
		}

		record := core.NewRecord(collection)
		record.Set("content", "<p>Event details go here.</p>")
		record.Set("ticketCategories", []map[string]any{
			{"name": "General", "price": 50, "limit": 100},
		})
		record.Set("ticketLabel", "Buy Tickets")
		record.Set("currency", "USD")

		return app.Save(record)
	}, func(app core.App) error {
		// Keep whatever the admin has entered.
		return nil
	})
}

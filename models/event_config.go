package models

// TicketCategory is one priced tier defined by the administrator.
type TicketCategory struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Limit int     `json:"limit"`
}

// EventConfig is the singleton page/sales configuration record.
// It is mutated only through the admin UI; the purchase workflow
// reads it to validate category, price and limit.
type EventConfig struct {
	ID                string           `json:"id"`
	FeaturedImage     string           `json:"featured_image"`
	Content           string           `json:"content"`
	TicketCategories  []TicketCategory `json:"ticket_categories"`
	TicketLabel       string           `json:"ticket_label"`
	Currency          string           `json:"currency"`
	BankAccountName   string           `json:"bank_account_name"`
	BankAccountNumber string           `json:"bank_account_number"`
}

// Categories returns the configured categories keyed by name.
func (c *EventConfig) Categories() map[string]TicketCategory {
	byName := make(map[string]TicketCategory, len(c.TicketCategories))
	for _, cat := range c.TicketCategories {
		byName[cat.Name] = cat
	}
	return byName
}

// Category looks up a single category by exact name match.
func (c *EventConfig) Category(name string) (TicketCategory, bool) {
	cat, ok := c.Categories()[name]
	return cat, ok
}

package utils

import (
	"strings"

	"github.com/google/uuid"
)

// TicketCodeLength is the length of the public ticket identifier.
const TicketCodeLength = 12

// GenerateTicketCode derives a short uppercase code from a random UUID.
// Collisions are treated as negligible; the tickets collection still
// carries a unique index on the code as the hard guarantee.
func GenerateTicketCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:TicketCodeLength])
}

package model

import "time"

// Customer is the billed party. Identity management lives elsewhere; the
// billing core only needs a name and an address for notifications.
type Customer struct {
	ID        string // UUID
	Name      string
	Email     string
	CreatedAt time.Time
}

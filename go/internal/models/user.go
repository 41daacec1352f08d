package models

import (
	"time"
)

// User represents a player with a wallet balance in currency units
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

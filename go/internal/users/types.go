package users

import "github.com/mcdev12/foguetinho/go/internal/models"

const (
	// DefaultInitialBalance is credited to every new user
	DefaultInitialBalance int64 = 1000
	// RankingSize is how many users the ranking returns
	RankingSize   = 20
	minNameLength = 2
)

// SignUpRequest represents the data needed to create or fetch a user
type SignUpRequest struct {
	Name string `json:"name" validate:"required"`
}

// RankingEntry is one row of the public leaderboard
type RankingEntry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
}

func toRankingEntry(u models.User) RankingEntry {
	return RankingEntry{ID: u.ID, Name: u.Name, Balance: u.Balance}
}

// Package repository provides PostgreSQL and SQLite persistence for histories,
// predictions and outcomes.
package repository

import (
	"fmt"

	"github.com/yourusername/propedge/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	History    HistoryRepository
	Prediction PredictionRepository
	Outcome    OutcomeRepository
}

// NewPostgresRepositories creates PostgreSQL-backed repositories
func NewPostgresRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		History:    NewPostgresHistoryRepository(db),
		Prediction: NewPostgresPredictionRepository(db),
		Outcome:    NewPostgresOutcomeRepository(db),
	}, nil
}

// NewSQLiteRepositories creates SQLite-backed repositories
func NewSQLiteRepositories(db *database.SQLite) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		History:    NewSQLiteHistoryRepository(db),
		Prediction: NewSQLitePredictionRepository(db),
		Outcome:    NewSQLiteOutcomeRepository(db),
	}, nil
}

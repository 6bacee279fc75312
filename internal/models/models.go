// Package models provides domain models for the trade journal.
package models

import (
	"time"
)

// Quote is a last-traded price observation.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// ImportRecord describes one completed CSV import batch.
type ImportRecord struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Imported  int       `json:"imported"`
	Skipped   int       `json:"skipped"`
	AccountID string    `json:"accountId,omitempty"`
	At        time.Time `json:"at"`
}

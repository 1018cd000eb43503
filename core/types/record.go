// Package types defines the records flowing through the ranking pipeline.
package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Record is one candidate restaurant as supplied by a source
type Record struct {
	// ID identifies the restaurant; preserved verbatim from the source
	ID string `json:"id"`

	// Service is the service quality score (nominally 1-100)
	Service float64 `json:"service"`

	// Price is the price in monetary units (nominally 25,000-70,000)
	Price decimal.Decimal `json:"price"`

	// Row is the 1-based data row in the source, 0 when unknown
	Row int `json:"row,omitempty"`
}

// String returns a short description used in logs and errors
func (r Record) String() string {
	return fmt.Sprintf("%s (service=%v, price=%s)", r.ID, r.Service, r.Price.String())
}

// RankedResult is a scored record
type RankedResult struct {
	Record

	// Score is the defuzzified suitability score
	Score float64 `json:"score"`

	// Rank is the 1-based position in the ranking
	Rank int `json:"rank"`

	// Degenerate is set when no rule fired for the record
	Degenerate bool `json:"degenerate,omitempty"`
}

// RoundedScore returns the score rounded to places decimal places.
// Negative places leave the score unrounded.
func (r RankedResult) RoundedScore(places int32) decimal.Decimal {
	d := decimal.NewFromFloat(r.Score)
	if places < 0 {
		return d
	}
	return d.Round(places)
}

// SkippedRecord is a record dropped under the skip failure policy
type SkippedRecord struct {
	// Record is the offending input
	Record Record `json:"record"`

	// Reason explains why the record was dropped
	Reason string `json:"reason"`
}

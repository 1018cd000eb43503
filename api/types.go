// Package api - API types for ranking
// These types define the contract for the ranking endpoints.
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"restaurant-rank/core/types"
)

// RankRequest is the JSON input to POST /rank
type RankRequest struct {
	// Profile selects the membership profile (optional)
	Profile string `json:"profile,omitempty"`

	// TopK is the number of results to keep; negative keeps all (optional)
	TopK *int `json:"top_k,omitempty"`

	// OnError is the per-record failure policy, fail or skip (optional)
	OnError string `json:"on_error,omitempty"`

	// Save stores the run in history when a store is configured
	Save bool `json:"save,omitempty"`

	// Records are the restaurants to rank
	Records []RecordInput `json:"records"`
}

// RecordInput is one restaurant in a request
type RecordInput struct {
	ID      string          `json:"id"`
	Service float64         `json:"service"`
	Price   decimal.Decimal `json:"price"`
}

func (r RecordInput) record(row int) types.Record {
	return types.Record{ID: r.ID, Service: r.Service, Price: r.Price, Row: row}
}

// ProfileInfo describes a compiled profile
type ProfileInfo struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Anchors     map[string]float64 `json:"anchors"`
}

// RunSummary is one entry of GET /runs
type RunSummary struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Profile   string    `json:"profile"`
	CreatedAt time.Time `json:"created_at"`
	Count     int       `json:"count"`
	Mean      float64   `json:"mean"`
}

// ErrorBody is the error envelope
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

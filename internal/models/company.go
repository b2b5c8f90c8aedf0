package models

import "time"

// Company represents an employer with cached review aggregates.
//
// ReviewCount, AvgDifficulty and LastReviewAt are denormalisations over the
// APPROVED reviews of the company. They are recomputed in full after every
// transition into or out of APPROVED; no code path patches them incrementally.
type Company struct {
	ID            string     `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	Slug          string     `db:"slug" json:"slug"`
	Website       *string    `db:"website" json:"website,omitempty"`
	LogoURI       *string    `db:"logo_uri" json:"logo_uri,omitempty"`
	Industry      *string    `db:"industry" json:"industry,omitempty"`
	HQLocation    *string    `db:"hq_location" json:"hq_location,omitempty"`
	Description   *string    `db:"description" json:"description,omitempty"`
	ReviewCount   int        `db:"review_count" json:"review_count"`
	AvgDifficulty *float64   `db:"avg_difficulty" json:"avg_difficulty,omitempty"`
	LastReviewAt  *time.Time `db:"last_review_at" json:"last_review_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// CompanyStats is the aggregate snapshot produced by a recompute.
type CompanyStats struct {
	ReviewCount   int        `db:"review_count" json:"review_count"`
	AvgDifficulty *float64   `db:"avg_difficulty" json:"avg_difficulty,omitempty"`
	LastReviewAt  *time.Time `db:"last_review_at" json:"last_review_at,omitempty"`
}

// CompanyFilter captures listing criteria for companies.
type CompanyFilter struct {
	Query     string
	Industry  string
	Location  string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

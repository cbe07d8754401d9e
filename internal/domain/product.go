package domain

import "time"

// RawRow is one line of the price-catalog export, already reduced from the
// source file's column layout by the infrastructure mapper. Immutable once
// produced; the builder only reads it.
type RawRow struct {
	Name       string    `json:"name"`
	Brand      string    `json:"brand,omitempty"`
	Package    string    `json:"package,omitempty"`
	StoreID    string    `json:"storeId,omitempty"`
	Price      float64   `json:"price"`
	Currency   string    `json:"currency,omitempty"`
	Unit       string    `json:"unit,omitempty"`
	ObservedAt time.Time `json:"observedAt,omitempty"`
}

// StoreQuote is one store's price for a product.
type StoreQuote struct {
	StoreID    string    `json:"storeId"`
	Price      float64   `json:"price"`
	Currency   string    `json:"currency,omitempty"`
	ObservedAt time.Time `json:"observedAt,omitempty"`
}

// SearchRecord is one indexed product: all quotes that share a product key,
// plus the normalized forms and tokens used for scoring. Records are immutable
// after the index is built.
type SearchRecord struct {
	ProductKey        string       `json:"productKey"`
	Name              string       `json:"name"`
	Brand             string       `json:"brand,omitempty"`
	Package           string       `json:"package,omitempty"`
	NormalizedName    string       `json:"normalizedName"`
	NormalizedBrand   string       `json:"normalizedBrand,omitempty"`
	NormalizedPackage string       `json:"normalizedPackage,omitempty"`
	Tokens            []string     `json:"tokens"`
	StoreRows         []StoreQuote `json:"storeRows"`
}

// QueryResult is one ranked match produced by a search call.
type QueryResult struct {
	ProductKey string        `json:"productKey"`
	Score      float64       `json:"score"`
	Record     *SearchRecord `json:"record"`
	StoreRows  []StoreQuote  `json:"storeRows"`
}

// Snapshot is one versioned pull of the full raw dataset.
type Snapshot struct {
	Version   string    `json:"version"`
	Columns   []string  `json:"columns"`
	Rows      []RawRow  `json:"-"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// BuildReport summarizes one index build. Row-level failures are recorded
// here instead of aborting the build.
type BuildReport struct {
	TotalRows   int      `json:"totalRows"`
	IndexedRows int      `json:"indexedRows"`
	SkippedRows int      `json:"skippedRows"`
	RowErrors   []string `json:"rowErrors,omitempty"`
}

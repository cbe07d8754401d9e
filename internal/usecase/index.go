package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/pricewatch/backend/internal/domain"
)

// productKeyLength is the number of hex digits kept from the key digest
const productKeyLength = 16

// Index is an immutable in-memory mapping from product key to search record,
// built once per dataset snapshot. Reads are safe for concurrent use; the
// only mutation point is construction.
type Index struct {
	records map[string]*domain.SearchRecord
	keys    []string // sorted for stable iteration
	columns []string
	version string
	builtAt time.Time
}

// Record returns the search record for a product key
func (idx *Index) Record(key string) (*domain.SearchRecord, bool) {
	record, ok := idx.records[key]
	return record, ok
}

// AllRecords returns every record in stable (key-sorted) order
func (idx *Index) AllRecords() []*domain.SearchRecord {
	records := make([]*domain.SearchRecord, 0, len(idx.keys))
	for _, key := range idx.keys {
		records = append(records, idx.records[key])
	}
	return records
}

// RecordCount returns the number of distinct products in the index
func (idx *Index) RecordCount() int {
	return len(idx.records)
}

// Columns returns the detected field names of the snapshot the index was built from
func (idx *Index) Columns() []string {
	columns := make([]string, len(idx.columns))
	copy(columns, idx.columns)
	return columns
}

// Version returns the snapshot version marker the index was built from
func (idx *Index) Version() string {
	return idx.version
}

// BuiltAt returns when the index was constructed
func (idx *Index) BuiltAt() time.Time {
	return idx.builtAt
}

// IndexBuilder turns raw snapshot rows into an Index
type IndexBuilder struct {
	normalizer         *Normalizer
	enableDebugLogging bool
}

// NewIndexBuilder creates a builder using the given normalizer. The same
// normalizer must be shared with the matcher so both sides of every
// comparison normalize identically.
func NewIndexBuilder(normalizer *Normalizer, enableDebugLogging bool) *IndexBuilder {
	return &IndexBuilder{
		normalizer:         normalizer,
		enableDebugLogging: enableDebugLogging,
	}
}

// Build constructs a new Index from a snapshot. Rows without a product name
// are skipped and reported, never fatal. Returns ErrEmptyIndex when no row
// survives; a silently empty index is never produced. The prior index, if
// any, is untouched.
func (b *IndexBuilder) Build(snapshot *domain.Snapshot) (*Index, *domain.BuildReport, error) {
	report := &domain.BuildReport{TotalRows: len(snapshot.Rows)}
	records := make(map[string]*domain.SearchRecord)

	for i, row := range snapshot.Rows {
		if strings.TrimSpace(row.Name) == "" {
			report.SkippedRows++
			report.RowErrors = append(report.RowErrors,
				fmt.Sprintf("row %d: %v: missing product name", i, domain.ErrMalformedRow))
			continue
		}

		normName := b.normalizer.Normalize(row.Name)
		normBrand := b.normalizer.Normalize(row.Brand)
		normPackage := b.normalizer.Normalize(row.Package)
		key := b.productKey(row)

		record, ok := records[key]
		if !ok {
			searchText := normName
			if normBrand != "" {
				searchText = normName + " " + normBrand
			}
			record = &domain.SearchRecord{
				ProductKey:        key,
				Name:              strings.TrimSpace(row.Name),
				Brand:             strings.TrimSpace(row.Brand),
				Package:           strings.TrimSpace(row.Package),
				NormalizedName:    normName,
				NormalizedBrand:   normBrand,
				NormalizedPackage: normPackage,
				Tokens:            b.normalizer.Tokenize(searchText),
			}
			records[key] = record
		}

		record.StoreRows = append(record.StoreRows, domain.StoreQuote{
			StoreID:    row.StoreID,
			Price:      row.Price,
			Currency:   row.Currency,
			ObservedAt: row.ObservedAt,
		})
		report.IndexedRows++
	}

	if len(records) == 0 {
		return nil, report, fmt.Errorf("%w: %d rows, %d skipped",
			domain.ErrEmptyIndex, report.TotalRows, report.SkippedRows)
	}

	keys := make([]string, 0, len(records))
	for key := range records {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	if b.enableDebugLogging {
		log.Printf("[INDEX] Built %d products from %d rows (%d skipped), version %q",
			len(records), report.TotalRows, report.SkippedRows, snapshot.Version)
	}

	return &Index{
		records: records,
		keys:    keys,
		columns: snapshot.Columns,
		version: snapshot.Version,
		builtAt: time.Now(),
	}, report, nil
}

// productKey derives the stable grouping key for a row from its
// grouping-normalized name, brand and package. Store-specific fields never
// participate, so one product aggregates quotes across stores.
func (b *IndexBuilder) productKey(row domain.RawRow) string {
	basis := b.normalizer.NormalizeKey(row.Name) + "|" +
		b.normalizer.NormalizeKey(row.Brand) + "|" +
		b.normalizer.NormalizeKey(row.Package)
	digest := sha256.Sum256([]byte(basis))
	return hex.EncodeToString(digest[:])[:productKeyLength]
}

package arfigyelo

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/pricewatch/backend/internal/domain"
)

// Column keyword sets, matched accent- and case-insensitively against the
// export header. The export's column layout is not fixed, so detection works
// by substring, like the upstream dataset tooling does.
var (
	nameKeywords     = []string{"termek", "megnevez", "product", "item", "cikk"}
	brandKeywords    = []string{"marka", "brand", "gyarto"}
	packageKeywords  = []string{"kiszereles", "mennyiseg", "csomagolas", "unit", "size"}
	storeKeywords    = []string{"aruhaz", "bolt", "lanc", "uzlet", "store"}
	priceKeywords    = []string{"ar", "brutto", "price"}
	currencyKeywords = []string{"penznem", "valuta", "currency"}
	dateKeywords     = []string{"datum", "date", "ido"}
)

// defaultCurrency is assumed when the export carries no currency column
const defaultCurrency = "HUF"

var headerFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// ColumnSchema holds the detected column positions of one export. A value of
// -1 means the column is absent.
type ColumnSchema struct {
	NameCol     int
	BrandCol    int
	PackageCol  int
	StoreCol    int
	CurrencyCol int
	DateCol     int
	PriceCols   []int
}

// DetectColumns resolves the export's opaque header into a column schema.
// The first column is the name fallback, matching the source dataset's own
// convention. Price columns fall back to whichever unassigned columns hold
// numeric values in the sample rows.
func DetectColumns(header []string, sample [][]string) ColumnSchema {
	folded := make([]string, len(header))
	for i, col := range header {
		folded[i] = foldHeader(col)
	}

	schema := ColumnSchema{
		NameCol:     pickColumn(folded, nameKeywords),
		BrandCol:    pickColumn(folded, brandKeywords),
		PackageCol:  pickColumn(folded, packageKeywords),
		StoreCol:    pickColumn(folded, storeKeywords),
		CurrencyCol: pickColumn(folded, currencyKeywords),
		DateCol:     pickColumn(folded, dateKeywords),
	}
	if schema.NameCol < 0 && len(header) > 0 {
		schema.NameCol = 0
	}

	assigned := map[int]bool{
		schema.NameCol: true, schema.BrandCol: true, schema.PackageCol: true,
		schema.StoreCol: true, schema.CurrencyCol: true, schema.DateCol: true,
	}
	for i, col := range folded {
		if assigned[i] {
			continue
		}
		if containsAny(col, priceKeywords) {
			schema.PriceCols = append(schema.PriceCols, i)
		}
	}
	if len(schema.PriceCols) == 0 {
		schema.PriceCols = numericColumns(folded, sample, assigned)
	}

	return schema
}

// MapRows converts export rows into RawRows using the detected schema. One
// export line with several price columns yields one RawRow per priced column,
// attributed to the store column when present or the price column's header
// otherwise. Lines whose price cells are all empty still yield one unpriced
// row so the product is indexed.
func MapRows(header []string, rows [][]string, schema ColumnSchema) []domain.RawRow {
	out := make([]domain.RawRow, 0, len(rows))

	for _, row := range rows {
		base := domain.RawRow{
			Name:       cell(row, schema.NameCol),
			Brand:      cell(row, schema.BrandCol),
			Package:    cell(row, schema.PackageCol),
			StoreID:    cell(row, schema.StoreCol),
			Currency:   defaultCurrency,
			ObservedAt: parseDate(cell(row, schema.DateCol)),
		}
		if currency := cell(row, schema.CurrencyCol); currency != "" {
			base.Currency = currency
		}

		priced := false
		for _, col := range schema.PriceCols {
			price, ok := parsePrice(cell(row, col))
			if !ok {
				continue
			}
			raw := base
			raw.Price = price
			if raw.StoreID == "" && col < len(header) {
				raw.StoreID = strings.TrimSpace(header[col])
			}
			out = append(out, raw)
			priced = true
		}
		if !priced {
			out = append(out, base)
		}
	}

	return out
}

// pickColumn returns the first column whose folded header contains any keyword
func pickColumn(folded []string, keywords []string) int {
	for i, col := range folded {
		if containsAny(col, keywords) {
			return i
		}
	}
	return -1
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}

// numericColumns finds unassigned columns whose sample cells parse as prices
func numericColumns(folded []string, sample [][]string, assigned map[int]bool) []int {
	var cols []int
	for i := range folded {
		if assigned[i] {
			continue
		}
		numeric := false
		for _, row := range sample {
			value := cell(row, i)
			if value == "" {
				continue
			}
			if _, ok := parsePrice(value); !ok {
				numeric = false
				break
			}
			numeric = true
		}
		if numeric {
			cols = append(cols, i)
		}
	}
	return cols
}

// foldHeader lowercases a header cell and strips accents for keyword matching
func foldHeader(s string) string {
	folded, _, err := transform.String(headerFolder, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// parsePrice parses a price cell, accepting Hungarian formatting: grouping
// spaces, a decimal comma, and an optional "Ft" suffix.
func parsePrice(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.ToLower(s), "ft")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// dateLayouts are the formats seen in the export
var dateLayouts = []string{"2006-01-02", "2006.01.02.", "2006.01.02", "2006-01-02 15:04:05"}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

package usecase

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/pricewatch/backend/internal/domain"
)

const (
	// defaultMinScore is the permissive similarity cutoff used when the
	// caller does not override it
	defaultMinScore = 45.0

	// minPartialLength is the minimum rune length before partial-substring
	// credit applies, to avoid two-letter queries matching everything
	minPartialLength = 4

	// scanChunkSize is how many records one pool task scores
	scanChunkSize = 512
)

// MatcherConfig holds configuration for the matcher
type MatcherConfig struct {
	MinScore           float64
	Workers            int
	EnableDebugLogging bool
}

// Matcher scores free-text queries against every product in an index and
// returns a ranked top-K result set. Search is a pure function of the index,
// query and limit; the matcher itself holds only configuration and the
// worker pool used for the parallel scan.
type Matcher struct {
	normalizer         *Normalizer
	minScore           float64
	pool               *ants.Pool
	enableDebugLogging bool
}

// NewMatcher creates a matcher sharing the index's normalizer so queries and
// records normalize identically.
func NewMatcher(normalizer *Normalizer, config MatcherConfig) (*Matcher, error) {
	minScore := config.MinScore
	if minScore <= 0 {
		minScore = defaultMinScore
	}

	workers := config.Workers
	if workers < 1 {
		workers = runtime.NumCPU() / 2
		if workers < 1 {
			workers = 1
		}
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create scoring pool: %w", err)
	}

	return &Matcher{
		normalizer:         normalizer,
		minScore:           minScore,
		pool:               pool,
		enableDebugLogging: config.EnableDebugLogging,
	}, nil
}

// Release frees the scoring worker pool
func (m *Matcher) Release() {
	m.pool.Release()
}

// Search scores the query against every record in the index and returns at
// most limit results, ordered by descending score. Ties break by shorter
// normalized name, then product key, so results are fully deterministic.
// minScore < 0 uses the configured default; records below it are dropped.
// Empty or whitespace-only queries and non-positive limits fail with
// ErrInvalidQuery.
func (m *Matcher) Search(ctx context.Context, idx *Index, query string, limit int, minScore float64) ([]domain.QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidQuery)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", domain.ErrInvalidQuery, limit)
	}
	if minScore < 0 {
		minScore = m.minScore
	}

	normalizedQuery := m.normalizer.Normalize(query)
	queryTokens := m.normalizer.Tokenize(normalizedQuery)

	if m.enableDebugLogging {
		log.Printf("[MATCH] Query %q normalized to %q (%d tokens, min score %.1f)",
			query, normalizedQuery, len(queryTokens), minScore)
	}

	records := idx.AllRecords()
	scores := make([]float64, len(records))

	var wg sync.WaitGroup
	for start := 0; start < len(records); start += scanChunkSize {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		default:
		}

		end := start + scanChunkSize
		if end > len(records) {
			end = len(records)
		}

		chunkStart, chunkEnd := start, end
		wg.Add(1)
		task := func() {
			defer wg.Done()
			for i := chunkStart; i < chunkEnd; i++ {
				scores[i] = scoreTokens(queryTokens, records[i].Tokens)
			}
		}
		if err := m.pool.Submit(task); err != nil {
			// Pool released or overloaded; score inline
			task()
		}
	}
	wg.Wait()

	results := make([]domain.QueryResult, 0, limit)
	for i, record := range records {
		if scores[i] < minScore {
			continue
		}
		results = append(results, domain.QueryResult{
			ProductKey: record.ProductKey,
			Score:      scores[i],
			Record:     record,
			StoreRows:  record.StoreRows,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		li, lj := len(results[i].Record.NormalizedName), len(results[j].Record.NormalizedName)
		if li != lj {
			return li < lj
		}
		return results[i].ProductKey < results[j].ProductKey
	})

	if len(results) > limit {
		results = results[:limit]
	}

	if m.enableDebugLogging {
		log.Printf("[MATCH] Query %q matched %d of %d products", query, len(results), len(records))
	}

	return results, nil
}

// scoreTokens computes the similarity between two token sequences in [0, 100]
// as the larger of a token-set ratio and a partial-substring ratio, so token
// order never matters and substring overlap still earns credit.
func scoreTokens(queryTokens, recordTokens []string) float64 {
	score := tokenSetRatio(queryTokens, recordTokens)
	if score >= 100 {
		return 100
	}

	partial := partialRatio(strings.Join(queryTokens, " "), strings.Join(recordTokens, " "))
	if partial > score {
		score = partial
	}
	return score
}

// tokenSetRatio compares token sequences order-independently, in the manner
// of fuzzywuzzy's token_set_ratio: the sorted token intersection is compared
// against each side's full sorted token set, and the best pairwise similarity
// wins. A query whose tokens are all contained in the record scores 100.
func tokenSetRatio(queryTokens, recordTokens []string) float64 {
	querySet := uniqueSorted(queryTokens)
	recordSet := uniqueSorted(recordTokens)
	if len(querySet) == 0 || len(recordSet) == 0 {
		return 0
	}

	inBoth := make(map[string]bool, len(querySet))
	for _, token := range querySet {
		inBoth[token] = true
	}

	var intersection, queryOnly, recordOnly []string
	for _, token := range recordSet {
		if inBoth[token] {
			intersection = append(intersection, token)
		} else {
			recordOnly = append(recordOnly, token)
		}
	}
	recordTokenSet := make(map[string]bool, len(recordSet))
	for _, token := range recordSet {
		recordTokenSet[token] = true
	}
	for _, token := range querySet {
		if !recordTokenSet[token] {
			queryOnly = append(queryOnly, token)
		}
	}

	if len(intersection) > 0 && (len(queryOnly) == 0 || len(recordOnly) == 0) {
		return 100
	}

	base := strings.Join(intersection, " ")
	combinedQuery := strings.TrimSpace(base + " " + strings.Join(queryOnly, " "))
	combinedRecord := strings.TrimSpace(base + " " + strings.Join(recordOnly, " "))

	best := ratio(base, combinedQuery)
	if r := ratio(base, combinedRecord); r > best {
		best = r
	}
	if r := ratio(combinedQuery, combinedRecord); r > best {
		best = r
	}
	return best
}

// partialRatio returns the best similarity between the shorter string and any
// same-length window of the longer one. Very short strings get no partial
// credit to avoid false positives.
func partialRatio(s1, s2 string) float64 {
	shorter, longer := []rune(s1), []rune(s2)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) < minPartialLength {
		return 0
	}
	if len(shorter) == len(longer) {
		return ratioRunes(shorter, longer)
	}

	best := 0.0
	for offset := 0; offset+len(shorter) <= len(longer); offset++ {
		window := longer[offset : offset+len(shorter)]
		if r := ratioRunes(shorter, window); r > best {
			best = r
			if best >= 100 {
				break
			}
		}
	}
	return best
}

// ratio is the normalized Levenshtein similarity between two strings in [0, 100]
func ratio(s1, s2 string) float64 {
	return ratioRunes([]rune(s1), []rune(s2))
}

func ratioRunes(r1, r2 []rune) float64 {
	if len(r1) == 0 && len(r2) == 0 {
		return 100
	}
	if len(r1) == 0 || len(r2) == 0 {
		return 0
	}

	maxLen := len(r1)
	if len(r2) > maxLen {
		maxLen = len(r2)
	}
	distance := levenshteinDistance(r1, r2)
	return (1 - float64(distance)/float64(maxLen)) * 100
}

// levenshteinDistance calculates the edit distance between two rune slices
func levenshteinDistance(r1, r2 []rune) int {
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	m := len(r1)
	n := len(r2)

	// Use two rows instead of the full matrix for space efficiency
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

// uniqueSorted returns the sorted distinct tokens of a sequence
func uniqueSorted(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if !seen[token] {
			seen[token] = true
			out = append(out, token)
		}
	}
	sort.Strings(out)
	return out
}

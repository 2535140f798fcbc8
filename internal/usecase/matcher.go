package usecase

import (
	"log"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/thamani/backend/internal/domain"
)

// Package-level compiled regex patterns for performance
var (
	punctuationRegex = regexp.MustCompile(`[^\w\s]`)
	storageRegex     = regexp.MustCompile(`(\d+)\s*(tb|gb|mb)\b`)
	ramRegex         = regexp.MustCompile(`(\d+)\s*gb\s*(?:ram|memory)\b`)
	screenSizeRegex  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:inch|")`)
	modelTokenRegex  = regexp.MustCompile(`\b[a-z]+\d+[a-z]*\b`)
)

// brandAliases maps a canonical brand to the tokens that imply it in a
// listing title. Sub-brands collapse onto the parent so "Galaxy A54" and
// "Samsung A54" compare as the same brand.
var brandAliases = map[string][]string{
	"samsung": {"samsung", "galaxy"},
	"apple":   {"apple", "iphone", "ipad", "macbook"},
	"huawei":  {"huawei", "honor"},
	"xiaomi":  {"xiaomi", "redmi", "poco"},
	"oppo":    {"oppo", "oneplus"},
	"tecno":   {"tecno", "infinix", "itel"},
	"hp":      {"hp", "hewlett packard"},
	"dell":    {"dell"},
	"lenovo":  {"lenovo", "thinkpad"},
	"asus":    {"asus"},
	"acer":    {"acer"},
	"lg":      {"lg"},
	"sony":    {"sony", "xperia"},
	"nokia":   {"nokia", "hmd"},
	"vivo":    {"vivo"},
	"realme":  {"realme"},
}

// categoryKeywords assigns a coarse product category from title tokens.
var categoryKeywords = map[string][]string{
	"smartphone": {"phone", "smartphone", "mobile", "android"},
	"laptop":     {"laptop", "notebook", "ultrabook", "macbook", "chromebook"},
	"tablet":     {"tablet", "ipad", "tab"},
	"headphones": {"headphones", "earphones", "earbuds", "airpods"},
	"tv":         {"tv", "television", "led", "oled", "qled"},
	"appliance":  {"fridge", "refrigerator", "washing", "microwave", "oven"},
}

// fillerWords are marketing tokens stripped before name comparison.
var fillerWords = map[string]bool{
	"new": true, "original": true, "genuine": true, "brand": true,
	"latest": true, "hot": true, "sale": true, "offer": true,
}

// MatcherConfig holds scoring weights and the grouping threshold. These
// approximate live retailer data and are meant to be tuned from config.
type MatcherConfig struct {
	SimilarityThreshold float64
	BrandBonus          float64
	CategoryBonus       float64
	SpecWeight          float64
	PricePenalty        float64
	EnableDebugLogging  bool
}

// Matcher groups normalized listings that represent the same product
// across retailers and derives per-group price statistics.
type Matcher struct {
	threshold     float64
	brandBonus    float64
	categoryBonus float64
	specWeight    float64
	pricePenalty  float64
	debug         bool
}

// NewMatcher creates a matcher, falling back to defaults for unset fields.
func NewMatcher(config MatcherConfig) *Matcher {
	m := &Matcher{
		threshold:     config.SimilarityThreshold,
		brandBonus:    config.BrandBonus,
		categoryBonus: config.CategoryBonus,
		specWeight:    config.SpecWeight,
		pricePenalty:  config.PricePenalty,
		debug:         config.EnableDebugLogging,
	}
	if m.threshold <= 0 || m.threshold > 1 {
		m.threshold = 0.75
	}
	if m.brandBonus <= 0 {
		m.brandBonus = 0.2
	}
	if m.categoryBonus <= 0 {
		m.categoryBonus = 0.1
	}
	if m.specWeight <= 0 {
		m.specWeight = 0.15
	}
	if m.pricePenalty <= 0 {
		m.pricePenalty = 0.1
	}
	return m
}

// Match clusters products into groups. Grouping is greedy: products are
// visited in descending (rating, review count) order; each unassigned
// product seeds a group and absorbs the best-scoring unassigned candidate
// per retailer above the threshold. Products matching nothing remain as
// singleton groups, which is a normal outcome.
//
// The visit order uses a full deterministic tie-break, so the resulting
// groups do not depend on the input slice order.
func (m *Matcher) Match(products []domain.NormalizedProduct) []domain.MatchGroup {
	if len(products) == 0 {
		return nil
	}

	order := seedOrder(products)
	assigned := make([]bool, len(products))
	var groups []domain.MatchGroup

	for _, seedIdx := range order {
		if assigned[seedIdx] {
			continue
		}
		assigned[seedIdx] = true
		seed := products[seedIdx]

		// best unassigned candidate per retailer
		best := make(map[string]int)
		bestScore := make(map[string]float64)

		for _, candIdx := range order {
			if assigned[candIdx] {
				continue
			}
			cand := products[candIdx]
			if cand.Retailer == seed.Retailer {
				continue
			}

			score := m.Score(seed, cand)
			if m.debug {
				log.Printf("[MATCH] %q vs %q = %.3f", seed.Name, cand.Name, score)
			}
			if score < m.threshold {
				continue
			}
			if prev, ok := bestScore[cand.Retailer]; !ok || score > prev {
				best[cand.Retailer] = candIdx
				bestScore[cand.Retailer] = score
			}
		}

		members := []domain.NormalizedProduct{seed}
		for _, idx := range sortedValues(best) {
			assigned[idx] = true
			members = append(members, products[idx])
		}
		sortMembers(members)

		groups = append(groups, domain.MatchGroup{
			Name:    seed.Name,
			Members: members,
			Summary: summarize(members),
		})
	}

	sortGroups(groups)
	return groups
}

// Score computes the pairwise similarity of two products on a 0-1 scale.
func (m *Matcher) Score(a, b domain.NormalizedProduct) float64 {
	score := nameSimilarity(a.Name, b.Name)

	if a.Brand != "" && a.Brand == b.Brand {
		score += m.brandBonus
	}

	if ca := extractCategory(a.Name); ca != "" && ca == extractCategory(b.Name) {
		score += m.categoryBonus
	}

	score += specSimilarity(extractSpecs(a.Name), extractSpecs(b.Name)) * m.specWeight

	// listings priced far apart are rarely the same product
	if gap := priceGap(a.Price, b.Price); gap > 0.5 {
		score -= m.pricePenalty
	}

	return math.Min(1.0, math.Max(0.0, score))
}

// seedOrder returns product indices in descending (rating, review count)
// order with a deterministic tie-break on name, retailer and URL.
func seedOrder(products []domain.NormalizedProduct) []int {
	order := make([]int, len(products))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool {
		a, b := products[order[x]], products[order[y]]
		ar, br := ratingOf(a), ratingOf(b)
		if ar != br {
			return ar > br
		}
		arc, brc := reviewsOf(a), reviewsOf(b)
		if arc != brc {
			return arc > brc
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Retailer != b.Retailer {
			return a.Retailer < b.Retailer
		}
		return a.URL < b.URL
	})
	return order
}

func ratingOf(p domain.NormalizedProduct) float64 {
	if p.Rating == nil {
		return -1
	}
	return *p.Rating
}

func reviewsOf(p domain.NormalizedProduct) int {
	if p.ReviewCount == nil {
		return -1
	}
	return *p.ReviewCount
}

// sortedValues returns map values ordered by key for deterministic output.
func sortedValues(m map[string]int) []int {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := make([]int, 0, len(m))
	for _, k := range keys {
		values = append(values, m[k])
	}
	return values
}

// sortMembers orders group members by ascending price, retailer as tie-break.
func sortMembers(members []domain.NormalizedProduct) {
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].Price != members[j].Price {
			return members[i].Price < members[j].Price
		}
		return members[i].Retailer < members[j].Retailer
	})
}

// sortGroups orders groups by retailer coverage, then price, then name.
func sortGroups(groups []domain.MatchGroup) {
	sort.SliceStable(groups, func(i, j int) bool {
		if len(groups[i].Members) != len(groups[j].Members) {
			return len(groups[i].Members) > len(groups[j].Members)
		}
		if groups[i].Summary.MinPrice != groups[j].Summary.MinPrice {
			return groups[i].Summary.MinPrice < groups[j].Summary.MinPrice
		}
		return groups[i].Name < groups[j].Name
	})
}

// summarize derives group price statistics. Out-of-stock members stay in
// the group for display but are excluded from the statistics; when nothing
// is in stock the statistics fall back to all members and no best-price
// member is designated.
func summarize(members []domain.NormalizedProduct) domain.GroupSummary {
	inStock := make([]int, 0, len(members))
	for i, p := range members {
		if p.InStock {
			inStock = append(inStock, i)
		}
	}

	pool := inStock
	bestEligible := true
	if len(pool) == 0 {
		pool = make([]int, len(members))
		for i := range members {
			pool[i] = i
		}
		bestEligible = false
	}

	summary := domain.GroupSummary{
		MinPrice:       members[pool[0]].Price,
		MaxPrice:       members[pool[0]].Price,
		BestPriceIndex: -1,
	}

	var sum float64
	bestIdx := pool[0]
	for _, i := range pool {
		price := members[i].Price
		sum += price
		if price < summary.MinPrice {
			summary.MinPrice = price
			bestIdx = i
		}
		if price > summary.MaxPrice {
			summary.MaxPrice = price
		}
	}
	summary.AvgPrice = sum / float64(len(pool))

	if bestEligible {
		summary.BestPriceIndex = bestIdx
	}

	summary.Savings = summary.MaxPrice - summary.MinPrice
	if summary.MaxPrice > 0 {
		summary.SavingsPercent = summary.Savings / summary.MaxPrice * 100
	}

	return summary
}

// nameSimilarity is a fuzzy token-overlap ratio (Dice coefficient) of the
// cleaned names; tokens within edit distance 1 count as matching so minor
// spelling variants across retailers still line up.
func nameSimilarity(a, b string) float64 {
	ta := tokenizeName(a)
	tb := tokenizeName(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	matched := 0
	used := make([]bool, len(tb))
	for _, t1 := range ta {
		for j, t2 := range tb {
			if used[j] {
				continue
			}
			if tokensMatch(t1, t2) {
				used[j] = true
				matched++
				break
			}
		}
	}

	return 2 * float64(matched) / float64(len(ta)+len(tb))
}

// tokensMatch reports whether two tokens are equal or nearly so.
func tokensMatch(t1, t2 string) bool {
	if t1 == t2 {
		return true
	}
	// fuzzy match only for longer tokens to avoid false positives
	if len(t1) < 4 || len(t2) < 4 {
		return false
	}
	diff := len(t1) - len(t2)
	if diff < -1 || diff > 1 {
		return false
	}
	return levenshteinDistance(t1, t2) <= 1
}

// tokenizeName lowercases, strips punctuation and filler words.
func tokenizeName(s string) []string {
	cleaned := punctuationRegex.ReplaceAllString(strings.ToLower(s), " ")
	words := strings.Fields(cleaned)

	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if fillerWords[w] {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// extractBrand infers the canonical brand from a product title, or "".
func extractBrand(name string) string {
	lower := " " + punctuationRegex.ReplaceAllString(strings.ToLower(name), " ") + " "

	// deterministic iteration over the alias table
	brands := make([]string, 0, len(brandAliases))
	for brand := range brandAliases {
		brands = append(brands, brand)
	}
	sort.Strings(brands)

	for _, brand := range brands {
		for _, alias := range brandAliases[brand] {
			if strings.Contains(lower, " "+alias+" ") {
				return brand
			}
		}
	}
	return ""
}

// extractCategory infers a coarse category from a product title, or "".
func extractCategory(name string) string {
	lower := " " + punctuationRegex.ReplaceAllString(strings.ToLower(name), " ") + " "

	categories := make([]string, 0, len(categoryKeywords))
	for c := range categoryKeywords {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	for _, category := range categories {
		for _, keyword := range categoryKeywords[category] {
			if strings.Contains(lower, " "+keyword+" ") {
				return category
			}
		}
	}
	return ""
}

// extractSpecs pulls technical specifications out of a product title:
// storage size, RAM size, screen size and model tokens like "a54".
func extractSpecs(name string) map[string]string {
	lower := strings.ToLower(name)
	specs := make(map[string]string)

	// RAM first so "8GB RAM" is not also claimed as storage
	ramRange := ramRegex.FindStringIndex(lower)
	if m := ramRegex.FindStringSubmatch(lower); m != nil {
		specs["ram"] = m[1] + "gb"
	}

	for _, loc := range storageRegex.FindAllStringSubmatchIndex(lower, -1) {
		if ramRange != nil && loc[0] >= ramRange[0] && loc[0] < ramRange[1] {
			continue
		}
		specs["storage"] = lower[loc[2]:loc[3]] + lower[loc[4]:loc[5]]
		break
	}

	if m := screenSizeRegex.FindStringSubmatch(lower); m != nil {
		specs["screen"] = m[1]
	}

	if models := modelTokenRegex.FindAllString(lower, -1); len(models) > 0 {
		specs["model"] = strings.Join(models, " ")
	}

	return specs
}

// specSimilarity is the fraction of shared spec keys with equal values.
func specSimilarity(a, b map[string]string) float64 {
	common := 0
	matches := 0
	for k, va := range a {
		vb, ok := b[k]
		if !ok {
			continue
		}
		common++
		if va == vb {
			matches++
		}
	}
	if common == 0 {
		return 0
	}
	return float64(matches) / float64(common)
}

// priceGap is the relative difference between two prices.
func priceGap(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	return math.Abs(a-b) / math.Max(a, b)
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	// Use two rows instead of full matrix for space efficiency
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

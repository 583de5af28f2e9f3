package feed

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/currency"
	"golang.org/x/text/unicode/norm"
)

// SlugFallback replaces a slug that would otherwise be empty.
const SlugFallback = "item"

var (
	amountPattern = regexp.MustCompile(`[0-9]+(\.[0-9]+)?`)
	slugInvalid   = regexp.MustCompile(`[^a-z0-9-]+`)
	slugDashes    = regexp.MustCompile(`-{2,}`)
)

// NormalizePrice accepts "<amount> <CCY>", "<CCY> <amount>" or a bare
// amount. The amount is kept as the exact decimal string found upstream.
func NormalizePrice(raw, defaultCurrency string) (Money, bool) {
	amount := amountPattern.FindString(raw)
	if amount == "" {
		return Money{}, false
	}

	code := defaultCurrency
	notLetter := func(r rune) bool { return !unicode.IsLetter(r) }
	for _, token := range strings.FieldsFunc(raw, notLetter) {
		if !isCurrencyToken(token) {
			continue
		}
		if _, err := currency.ParseISO(token); err == nil {
			code = token
			break
		}
	}

	return Money{Amount: amount, Currency: code}, true
}

func NormalizeAvailability(raw string) (Availability, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.Join(strings.Fields(value), "_")

	switch a := Availability(value); a {
	case InStock, OutOfStock, PreOrder, BackOrder:
		return a, true
	default:
		return "", false
	}
}

func isCurrencyToken(token string) bool {
	if len(token) != 3 {
		return false
	}
	for _, r := range token {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// Slugify is a pure function of its input.
func Slugify(raw string) string {
	slug := strings.ToLower(raw)
	slug = slugInvalid.ReplaceAllString(slug, "-")
	slug = slugDashes.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if slug == "" {
		return SlugFallback
	}
	return slug
}

// NormalizeText composes text to NFC and trims surrounding whitespace.
func NormalizeText(raw string) string {
	return strings.TrimSpace(norm.NFC.String(raw))
}

// SlugAllocator hands out unique slugs within one run. A colliding slug
// gets the first free "-2", "-3", ... suffix, in call order.
type SlugAllocator struct {
	used map[string]bool
}

func NewSlugAllocator() *SlugAllocator {
	return &SlugAllocator{used: make(map[string]bool)}
}

func (a *SlugAllocator) Allocate(seed string) string {
	base := Slugify(seed)

	slug := base
	for n := 2; a.used[slug]; n++ {
		slug = base + "-" + strconv.Itoa(n)
	}

	a.used[slug] = true
	return slug
}

package model

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownCountry  = errors.New("unknown country")
	ErrUnknownCategory = errors.New("unknown category")
)

type Country string

const (
	CountryChina         Country = "CN"
	CountryFrance        Country = "FR"
	CountryJapan         Country = "JP"
	CountrySingapore     Country = "SG"
	CountryUnitedKingdom Country = "UK"
	CountryUnitedStates  Country = "US"
)

// Countries lists the supported countries in display order.
var Countries = []Country{
	CountryChina,
	CountryFrance,
	CountryJapan,
	CountrySingapore,
	CountryUnitedKingdom,
	CountryUnitedStates,
}

var countryNames = map[Country]string{
	CountryChina:         "China",
	CountryFrance:        "France",
	CountryJapan:         "Japan",
	CountrySingapore:     "Singapore",
	CountryUnitedKingdom: "United Kingdom",
	CountryUnitedStates:  "United States",
}

// ParseCountry uppercases s and checks it against Countries. Empty input is
// accepted and means no country filter.
func ParseCountry(s string) (Country, error) {
	c := Country(strings.ToUpper(strings.TrimSpace(s)))
	if c == "" {
		return "", nil
	}
	if _, ok := countryNames[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCountry, s)
	}
	return c, nil
}

func (c Country) Name() string {
	return countryNames[c]
}

// Lower is the lowercase code used in links and form values.
func (c Country) Lower() string {
	return strings.ToLower(string(c))
}

type Category string

const (
	CategoryBusiness      Category = "business"
	CategoryEntertainment Category = "entertainment"
	CategoryGeneral       Category = "general"
	CategoryHealth        Category = "health"
	CategoryScience       Category = "science"
	CategorySports        Category = "sports"
	CategoryTechnology    Category = "technology"
)

var Categories = []Category{
	CategoryBusiness,
	CategoryEntertainment,
	CategoryGeneral,
	CategoryHealth,
	CategoryScience,
	CategorySports,
	CategoryTechnology,
}

// ParseCategory matches s case-insensitively and returns the canonical value.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Label is the display name, e.g. "Business".
func (c Category) Label() string {
	if c == "" {
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

// Filter is the set of values a user narrows the headlines with.
type Filter struct {
	Search   string   `json:"search"`
	Category Category `json:"category"`
	Country  Country  `json:"country"`
}

// NewFilter normalizes and validates the enumerated values. The search term
// is kept exactly as supplied.
func NewFilter(search, category, country string) (Filter, error) {
	cat, err := ParseCategory(category)
	if err != nil {
		return Filter{}, err
	}
	cc, err := ParseCountry(country)
	if err != nil {
		return Filter{}, err
	}
	return Filter{
		Search:   search,
		Category: cat,
		Country:  cc,
	}, nil
}

// IsEmpty reports whether there is nothing to search for. A blank search
// term counts as empty.
func (f Filter) IsEmpty() bool {
	return strings.TrimSpace(f.Search) == "" && f.Category == "" && f.Country == ""
}

// Key is the cache key for the whole filter tuple. The search term is hashed
// so user input never ends up verbatim in a storage key.
func (f Filter) Key() string {
	sum := sha256.Sum256([]byte(f.Search))
	return fmt.Sprintf("headlines:%s:%s:%s", f.Country, f.Category, hex.EncodeToString(sum[:8]))
}

func (f Filter) String() string {
	parts := make([]string, 0, 3)
	if f.Country != "" {
		parts = append(parts, string(f.Country))
	}
	if f.Category != "" {
		parts = append(parts, f.Category.Label())
	}
	if f.Search != "" {
		parts = append(parts, fmt.Sprintf("%q", f.Search))
	}
	if len(parts) == 0 {
		return "all"
	}
	return strings.Join(parts, " / ")
}

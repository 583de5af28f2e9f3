package feed

import (
	"fmt"
	"strings"
)

const GoogleNamespace = "http://base.google.com/ns/1.0"

// Feed processing types

type Metadata struct {
	Title       string
	Link        string
	Description string
	Language    string
	FeedType    string
}

// Field names a semantic product field resolved by the extractor.
type Field string

const (
	FieldID           Field = "id"
	FieldTitle        Field = "title"
	FieldLink         Field = "link"
	FieldImage        Field = "image"
	FieldPrice        Field = "price"
	FieldAvailability Field = "availability"
	FieldDescription  Field = "description"
	FieldBrand        Field = "brand"
	FieldCondition    Field = "condition"
	FieldProductType  Field = "product_type"
	FieldCategory     Field = "category"
)

// RawFields holds the first non-empty candidate per field. Empty means absent.
type RawFields struct {
	ID           string
	Title        string
	Link         string
	Price        string
	Availability string
	Image        string
	Description  string
	Brand        string
	Condition    string
	ProductType  string
	Category     string
}

func (f RawFields) Get(field Field) string {
	switch field {
	case FieldID:
		return f.ID
	case FieldTitle:
		return f.Title
	case FieldLink:
		return f.Link
	case FieldImage:
		return f.Image
	case FieldPrice:
		return f.Price
	case FieldAvailability:
		return f.Availability
	case FieldDescription:
		return f.Description
	case FieldBrand:
		return f.Brand
	case FieldCondition:
		return f.Condition
	case FieldProductType:
		return f.ProductType
	case FieldCategory:
		return f.Category
	default:
		return ""
	}
}

type Availability string

const (
	InStock    Availability = "in_stock"
	OutOfStock Availability = "out_of_stock"
	PreOrder   Availability = "preorder"
	BackOrder  Availability = "backorder"
)

var schemaAvailability = map[Availability]string{
	InStock:    "https://schema.org/InStock",
	OutOfStock: "https://schema.org/OutOfStock",
	PreOrder:   "https://schema.org/PreOrder",
	BackOrder:  "https://schema.org/BackOrder",
}

// Label is the human-readable form used in page markup ("in stock").
func (a Availability) Label() string {
	return strings.ReplaceAll(string(a), "_", " ")
}

func (a Availability) SchemaURL() string {
	return schemaAvailability[a]
}

// Money keeps the amount as the decimal string found upstream so no
// rounding ever happens between input and output.
type Money struct {
	Amount   string
	Currency string
}

// String is the "<amount> <currency>" form used by the feed and HTML pages.
func (m Money) String() string {
	return m.Amount + " " + m.Currency
}

func (m Money) IsZero() bool {
	return m.Amount == ""
}

type Product struct {
	ID             string
	Title          string
	SourceLink     string
	Price          Money
	Availability   Availability
	ImageURL       string
	Description    string
	Brand          string
	Condition      string
	ProductType    string
	GoogleCategory string
	Slug           string
}

// SkipReason explains why an upstream entry was left out of the output.
type SkipReason struct {
	Index   int // 1-based upstream position
	ID      string
	Missing []Field
	Reason  string
}

func (s SkipReason) String() string {
	if s.ID != "" {
		return fmt.Sprintf("Entry #%d (%s) skipped: %s", s.Index, s.ID, s.Reason)
	}
	return fmt.Sprintf("Entry #%d skipped: %s", s.Index, s.Reason)
}

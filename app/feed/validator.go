package feed

import (
	"cmp"
	"fmt"
	"strings"
)

type Validator struct {
	required         []Field
	defaultCurrency  string
	defaultCondition string
}

func NewValidator(required []string, defaultCurrency, defaultCondition string) *Validator {
	fields := make([]Field, 0, len(required))
	for _, name := range required {
		fields = append(fields, Field(name))
	}

	return &Validator{
		required:         fields,
		defaultCurrency:  defaultCurrency,
		defaultCondition: cmp.Or(defaultCondition, "new"),
	}
}

// Run normalizes the extracted fields of the entry at the given 1-based
// position and either returns a product or the reason it was skipped.
// The product's slug is assigned later, once run order is known.
func (v *Validator) Run(fields RawFields, index int) (Product, *SkipReason) {
	id := NormalizeText(fields.ID)
	if id == "" {
		return Product{}, &SkipReason{
			Index:   index,
			Missing: []Field{FieldID},
			Reason:  "missing id",
		}
	}

	price, priceOK := NormalizePrice(fields.Price, v.defaultCurrency)
	availability, availabilityOK := NormalizeAvailability(fields.Availability)

	product := Product{
		ID:             id,
		Title:          NormalizeText(fields.Title),
		SourceLink:     strings.TrimSpace(fields.Link),
		Price:          price,
		Availability:   availability,
		ImageURL:       strings.TrimSpace(fields.Image),
		Description:    NormalizeText(fields.Description),
		Brand:          NormalizeText(fields.Brand),
		Condition:      cmp.Or(strings.ToLower(NormalizeText(fields.Condition)), v.defaultCondition),
		ProductType:    NormalizeText(fields.ProductType),
		GoogleCategory: NormalizeText(fields.Category),
	}

	present := map[Field]bool{
		FieldID:           true,
		FieldTitle:        product.Title != "",
		FieldLink:         product.SourceLink != "",
		FieldImage:        product.ImageURL != "",
		FieldPrice:        priceOK,
		FieldAvailability: availabilityOK,
		FieldDescription:  product.Description != "",
		FieldBrand:        product.Brand != "",
		FieldCondition:    strings.TrimSpace(fields.Condition) != "",
		FieldProductType:  product.ProductType != "",
		FieldCategory:     product.GoogleCategory != "",
	}

	var missing []Field
	for _, field := range v.required {
		if !present[field] {
			missing = append(missing, field)
		}
	}

	if len(missing) > 0 {
		names := make([]string, len(missing))
		for i, field := range missing {
			names[i] = string(field)
		}
		return Product{}, &SkipReason{
			Index:   index,
			ID:      id,
			Missing: missing,
			Reason:  fmt.Sprintf("missing required: [%s]", strings.Join(names, ", ")),
		}
	}

	return product, nil
}

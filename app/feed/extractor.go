package feed

// candidates lists, per field, the tags tried in order. The first
// non-empty trimmed value wins.
var candidates = map[Field][]string{
	FieldID:           {"g:id", "id", "guid"},
	FieldTitle:        {"g:title", "title"},
	FieldLink:         {"g:link", "link"},
	FieldPrice:        {"g:price", "price"},
	FieldAvailability: {"g:availability", "availability"},
	FieldImage:        {"g:image_link", "image_link", "image"},
	FieldDescription:  {"g:description", "description", "summary"},
	FieldBrand:        {"g:brand", "brand"},
	FieldCondition:    {"g:condition", "condition"},
	FieldProductType:  {"g:product_type", "product_type"},
	FieldCategory:     {"g:google_product_category", "google_product_category"},
}

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Run resolves every semantic field of an entry. It never fails: a field
// with no usable candidate is left empty.
func (x *Extractor) Run(entry RawEntry) RawFields {
	fields := RawFields{
		ID:           first(entry, FieldID),
		Title:        first(entry, FieldTitle),
		Link:         first(entry, FieldLink),
		Price:        first(entry, FieldPrice),
		Availability: first(entry, FieldAvailability),
		Image:        first(entry, FieldImage),
		Description:  first(entry, FieldDescription),
		Brand:        first(entry, FieldBrand),
		Condition:    first(entry, FieldCondition),
		ProductType:  first(entry, FieldProductType),
		Category:     first(entry, FieldCategory),
	}

	if fields.ID == "" {
		fields.ID = fields.Title
	}
	if fields.ID == "" {
		fields.ID = fields.Link
	}

	return fields
}

func first(entry RawEntry, field Field) string {
	for _, tag := range candidates[field] {
		if v := entry.Lookup(tag); v != "" {
			return v
		}
	}
	return ""
}

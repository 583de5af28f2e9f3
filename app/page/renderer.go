package page

import (
	"cmp"
	_ "embed"
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/lysyi3m/catalog-comb/app/feed"
	"github.com/lysyi3m/catalog-comb/app/summarizer"
)

//go:embed templates/product.html
var defaultTemplate string

var placeholderPattern = regexp.MustCompile(`\{\{ ([A-Za-z0-9_]+) \}\}`)

var conditionSchema = map[string]string{
	"new":         "https://schema.org/NewCondition",
	"used":        "https://schema.org/UsedCondition",
	"refurbished": "https://schema.org/RefurbishedCondition",
	"damaged":     "https://schema.org/DamagedCondition",
}

// LoadTemplate reads a page template from path, or returns the embedded
// default when path is empty.
func LoadTemplate(path string) (string, error) {
	if path == "" {
		return defaultTemplate, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read template: %w", err)
	}

	return string(data), nil
}

type Renderer struct {
	siteBase string
	template string
}

func NewRenderer(siteBase, template string) *Renderer {
	return &Renderer{
		siteBase: siteBase,
		template: template,
	}
}

// Render substitutes every "{{ name }}" placeholder of the template.
// Placeholders with no value are left in place and returned as unresolved.
func (r *Renderer) Render(product feed.Product) (string, []string) {
	placeholders := r.htmlContext(product)
	for name, value := range r.jsonContext(product) {
		placeholders[name] = value
	}

	var unresolved []string
	out := placeholderPattern.ReplaceAllStringFunc(r.template, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if value, ok := placeholders[name]; ok {
			return value
		}
		unresolved = append(unresolved, name)
		return match
	})

	return out, unresolved
}

// htmlContext holds values for HTML text and attribute positions.
func (r *Renderer) htmlContext(product feed.Product) map[string]string {
	pageURL := feed.ProductURL(r.siteBase, product.Slug)
	title := cmp.Or(product.Title, product.ID)
	description := cmp.Or(product.Description, title)

	values := map[string]string{
		"title":            title,
		"description":      description,
		"meta_description": summarizer.PlainText(description),
		"price":            product.Price.String(),
		"availability":     product.Availability.Label(),
		"condition":        product.Condition,
		"brand":            product.Brand,
		"image_link":       webURL(product.ImageURL),
		"buy_url":          cmp.Or(webURL(product.SourceLink), pageURL),
		"page_url":         pageURL,
		"slug":             product.Slug,
		"product_type":     product.ProductType,
		"category":         product.GoogleCategory,
	}

	for name, value := range values {
		values[name] = html.EscapeString(value)
	}

	return values
}

// jsonContext holds complete JSON literals for the JSON-LD block. Encoding
// escapes <, > and & so a value cannot close the surrounding script tag.
func (r *Renderer) jsonContext(product feed.Product) map[string]string {
	title := cmp.Or(product.Title, product.ID)
	availability := cmp.Or(product.Availability.SchemaURL(), feed.InStock.SchemaURL())
	condition := cmp.Or(conditionSchema[product.Condition], conditionSchema["new"])

	return map[string]string{
		"title_json":          jsonString(title),
		"description_json":    jsonString(summarizer.PlainText(cmp.Or(product.Description, title))),
		"brand_json":          jsonString(product.Brand),
		"image_json":          jsonString(webURL(product.ImageURL)),
		"link_json":           jsonString(feed.ProductURL(r.siteBase, product.Slug)),
		"sku_json":            jsonString(product.ID),
		"price_number":        jsonString(product.Price.Amount),
		"price_currency_json": jsonString(product.Price.Currency),
		"availability_schema": jsonString(availability),
		"condition_schema":    jsonString(condition),
	}
}

// webURL returns raw when it is an absolute http or https URL and ""
// otherwise, so upstream links cannot inject other schemes into href or src.
func webURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return raw
	default:
		return ""
	}
}

func jsonString(s string) string {
	data, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(data)
}

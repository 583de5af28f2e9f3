package feed

import (
	"testing"
)

const merchantFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:g="http://base.google.com/ns/1.0">
  <channel>
    <title>Upstream Store</title>
    <link>https://upstream.example.com</link>
    <description>Upstream catalog</description>
    <language>ar</language>
    <item>
      <g:id>SKU-1</g:id>
      <title><![CDATA[Men's Shoes]]></title>
      <link>https://upstream.example.com/buy/sku-1</link>
      <description><![CDATA[<p>Comfortable <b>leather</b> shoes</p>]]></description>
      <g:price>123.45 SAR</g:price>
      <g:availability>in stock</g:availability>
      <g:image_link>https://cdn.example.com/sku-1.jpg</g:image_link>
      <g:brand>Acme</g:brand>
    </item>
    <item>
      <id>SKU-2</id>
      <title>Desk Lamp</title>
      <link>https://upstream.example.com/buy/sku-2</link>
      <price>SAR 99</price>
      <availability>out_of_stock</availability>
      <image>https://cdn.example.com/sku-2.jpg</image>
    </item>
  </channel>
</rss>`

func TestParseMerchantFeed(t *testing.T) {
	parser := NewParser()
	metadata, entries, err := parser.Run([]byte(merchantFeed))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if metadata.Title != "Upstream Store" {
		t.Errorf("Expected title 'Upstream Store', got: %s", metadata.Title)
	}
	if metadata.Language != "ar" {
		t.Errorf("Expected language 'ar', got: %s", metadata.Language)
	}
	if metadata.FeedType != "rss" {
		t.Errorf("Expected feed type 'rss', got: %s", metadata.FeedType)
	}

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}

	first := entries[0]
	if got := first.Lookup("g:id"); got != "SKU-1" {
		t.Errorf("Expected g:id 'SKU-1', got '%s'", got)
	}
	if got := first.Lookup("g:price"); got != "123.45 SAR" {
		t.Errorf("Expected g:price '123.45 SAR', got '%s'", got)
	}
	if got := first.Lookup("title"); got != "Men's Shoes" {
		t.Errorf("Expected CDATA title to be unwrapped, got '%s'", got)
	}
	if got := first.Lookup("id"); got != "" {
		t.Errorf("Expected no generic id, got '%s'", got)
	}

	second := entries[1]
	if got := second.Lookup("id"); got != "SKU-2" {
		t.Errorf("Expected generic id 'SKU-2', got '%s'", got)
	}
	if got := second.Lookup("price"); got != "SAR 99" {
		t.Errorf("Expected generic price 'SAR 99', got '%s'", got)
	}
	if got := second.Lookup("g:price"); got != "" {
		t.Errorf("Expected no namespaced price, got '%s'", got)
	}
	if got := second.Lookup("image"); got != "https://cdn.example.com/sku-2.jpg" {
		t.Errorf("Expected generic image, got '%s'", got)
	}
}

func TestParseAtomFeed(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:g="http://base.google.com/ns/1.0">
  <title>Atom Store</title>
  <id>urn:store</id>
  <updated>2024-01-01T00:00:00Z</updated>
  <entry>
    <id>urn:product:1</id>
    <title>Atom Product</title>
    <link href="https://upstream.example.com/p/1"/>
    <summary>Short summary</summary>
    <updated>2024-01-01T00:00:00Z</updated>
    <g:price>10 USD</g:price>
  </entry>
</feed>`

	parser := NewParser()
	metadata, entries, err := parser.Run([]byte(atomData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if metadata.FeedType != "atom" {
		t.Errorf("Expected feed type 'atom', got: %s", metadata.FeedType)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if got := entry.Lookup("guid"); got != "urn:product:1" {
		t.Errorf("Expected guid from atom id, got '%s'", got)
	}
	if got := entry.Lookup("link"); got != "https://upstream.example.com/p/1" {
		t.Errorf("Expected link from href, got '%s'", got)
	}
	if got := entry.Lookup("description"); got != "Short summary" {
		t.Errorf("Expected description from summary, got '%s'", got)
	}
	if got := entry.Lookup("g:price"); got != "10 USD" {
		t.Errorf("Expected g:price '10 USD', got '%s'", got)
	}
}

func TestParseMalformedFeed(t *testing.T) {
	parser := NewParser()

	if _, _, err := parser.Run([]byte("this is not a feed")); err == nil {
		t.Error("Expected error for malformed feed")
	}
}

func TestLookupZeroEntry(t *testing.T) {
	var entry RawEntry

	if got := entry.Lookup("title"); got != "" {
		t.Errorf("Expected empty lookup on zero entry, got '%s'", got)
	}
}

func TestParseAtomGenericTags(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Store</title>
  <id>urn:store</id>
  <updated>2024-01-01T00:00:00Z</updated>
  <entry>
    <id>SKU-9</id>
    <title>Reading Lamp</title>
    <link href="https://upstream.example.com/p/9"/>
    <updated>2024-01-01T00:00:00Z</updated>
    <price>10 SAR</price>
    <availability>in stock</availability>
    <image_link>https://cdn.example.com/9.jpg</image_link>
  </entry>
  <entry>
    <id>SKU-10</id>
    <title>Floor Lamp</title>
    <link href="https://upstream.example.com/p/10"/>
    <updated>2024-01-01T00:00:00Z</updated>
    <price>25 SAR</price>
  </entry>
</feed>`

	_, entries, err := NewParser().Run([]byte(atomData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}

	fields := NewExtractor().Run(entries[0])
	if fields.ID != "SKU-9" {
		t.Errorf("Expected id 'SKU-9', got '%s'", fields.ID)
	}
	if fields.Price != "10 SAR" {
		t.Errorf("Expected price '10 SAR', got '%s'", fields.Price)
	}
	if fields.Availability != "in stock" {
		t.Errorf("Expected availability 'in stock', got '%s'", fields.Availability)
	}
	if fields.Image != "https://cdn.example.com/9.jpg" {
		t.Errorf("Expected image link, got '%s'", fields.Image)
	}

	validator := NewValidator([]string{"id", "title", "link", "image", "price", "availability"}, "SAR", "new")
	product, skip := validator.Run(fields, 1)
	if skip != nil {
		t.Fatalf("Expected entry to be kept, got: %s", skip)
	}
	if product.Price.String() != "10 SAR" {
		t.Errorf("Expected price '10 SAR', got '%s'", product.Price.String())
	}

	second := NewExtractor().Run(entries[1])
	if second.Price != "25 SAR" {
		t.Errorf("Expected second entry price '25 SAR', got '%s'", second.Price)
	}
	if second.Availability != "" {
		t.Errorf("Expected no availability on second entry, got '%s'", second.Availability)
	}
}

func TestParseCustomGooglePrefix(t *testing.T) {
	rssData := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:google="http://base.google.com/ns/1.0">
  <channel>
    <title>Store</title>
    <item>
      <title>T</title>
      <link>https://upstream.example.com/a1</link>
      <google:id>A1</google:id>
      <google:price>10</google:price>
      <google:availability>in stock</google:availability>
    </item>
  </channel>
</rss>`

	_, entries, err := NewParser().Run([]byte(rssData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}

	fields := NewExtractor().Run(entries[0])
	if fields.ID != "A1" {
		t.Errorf("Expected id 'A1' from google prefix, got '%s'", fields.ID)
	}
	if fields.Price != "10" {
		t.Errorf("Expected price '10', got '%s'", fields.Price)
	}
	if fields.Availability != "in stock" {
		t.Errorf("Expected availability 'in stock', got '%s'", fields.Availability)
	}
}

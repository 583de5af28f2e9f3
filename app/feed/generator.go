package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lysyi3m/catalog-comb/app/cfg"
)

// ProductURL is the canonical, site-owned page URL of a product.
func ProductURL(siteBase, slug string) string {
	return fmt.Sprintf("%s/product/%s/", strings.TrimRight(siteBase, "/"), slug)
}

type Generator struct {
	siteBase string
	channel  cfg.Channel
}

func NewGenerator(siteBase string, channel cfg.Channel) *Generator {
	return &Generator{
		siteBase: siteBase,
		channel:  channel,
	}
}

// Run emits the Merchant RSS document. Item order follows products and
// no timestamps are written, so equal input gives equal bytes.
func (g *Generator) Run(products []Product) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(fmt.Sprintf(`<rss version="2.0" xmlns:g="%s">`, GoogleNamespace))
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", g.channel.Title, 4)
	g.writeElement(&buf, "link", g.channel.Link, 4)
	g.writeElement(&buf, "description", g.channel.Description, 4)
	g.writeElement(&buf, "language", g.channel.Language, 4)

	for _, product := range products {
		if product.Slug == "" {
			return "", fmt.Errorf("product %s has no slug", product.ID)
		}
		g.writeItem(&buf, product)
	}

	buf.WriteString("  </channel>\n</rss>\n")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, product Product) {
	buf.WriteString("    <item>\n")

	g.writeElement(buf, "g:id", product.ID, 6)
	g.writeCDATA(buf, "title", product.Title, 6)
	g.writeElement(buf, "link", ProductURL(g.siteBase, product.Slug), 6)

	buf.WriteString(`      <guid isPermaLink="false">`)
	xml.EscapeText(buf, []byte(product.ID))
	buf.WriteString("</guid>\n")

	g.writeCDATA(buf, "description", product.Description, 6)
	if !product.Price.IsZero() {
		g.writeElement(buf, "g:price", product.Price.String(), 6)
	}
	g.writeElement(buf, "g:availability", string(product.Availability), 6)
	g.writeElement(buf, "g:condition", product.Condition, 6)
	g.writeElement(buf, "g:image_link", product.ImageURL, 6)

	g.writeCDATA(buf, "g:brand", product.Brand, 6)
	g.writeCDATA(buf, "g:product_type", product.ProductType, 6)
	g.writeElement(buf, "g:google_product_category", product.GoogleCategory, 6)
	g.writeElement(buf, "g:link_source", product.SourceLink, 6)

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	buf.WriteString(strings.Repeat(" ", indent))
	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

// xmlSafe replaces runes XML 1.0 does not allow with U+FFFD, as
// xml.EscapeText does for escaped text.
func xmlSafe(s string) string {
	return strings.Map(func(r rune) rune {
		if isXMLChar(r) {
			return r
		}
		return utf8.RuneError
	}, s)
}

func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}

// writeCDATA wraps content in a CDATA section. An embedded "]]>" is split
// across two sections so the document stays well-formed.
func (g *Generator) writeCDATA(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	buf.WriteString(strings.Repeat(" ", indent))
	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString("><![CDATA[")
	buf.WriteString(strings.ReplaceAll(xmlSafe(content), "]]>", "]]]]><![CDATA[>"))
	buf.WriteString("]]></")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

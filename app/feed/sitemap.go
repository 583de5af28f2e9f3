package feed

import (
	"bytes"
	"encoding/xml"
	"strings"
)

const sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

type Sitemap struct {
	siteBase string
}

func NewSitemap(siteBase string) *Sitemap {
	return &Sitemap{siteBase: strings.TrimRight(siteBase, "/")}
}

// Run lists the site root followed by every product page in product order.
func (s *Sitemap) Run(products []Product) string {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<urlset xmlns="` + sitemapNamespace + `">`)
	buf.WriteString("\n")

	s.writeURL(&buf, s.siteBase+"/")
	for _, product := range products {
		s.writeURL(&buf, ProductURL(s.siteBase, product.Slug))
	}

	buf.WriteString("</urlset>\n")

	return buf.String()
}

func (s *Sitemap) writeURL(buf *bytes.Buffer, loc string) {
	buf.WriteString("  <url><loc>")
	xml.EscapeText(buf, []byte(loc))
	buf.WriteString("</loc></url>\n")
}

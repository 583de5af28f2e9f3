package feed

import (
	"bytes"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const defaultGooglePrefix = "g"

// RawEntry is one upstream <item> or <entry>, read-only for the rest of
// the run.
type RawEntry struct {
	item     *gofeed.Item
	node     *goquery.Selection
	prefixes []string
}

func NewRawEntry(item *gofeed.Item) RawEntry {
	return RawEntry{item: item}
}

// Lookup returns the trimmed text of a tag. "g:name" reads the Google
// Merchant namespace under any prefix the document bound to it, a bare
// name reads the generic element.
func (e RawEntry) Lookup(tag string) string {
	if e.item == nil {
		return ""
	}

	if name, ok := strings.CutPrefix(tag, "g:"); ok {
		return e.extension(name)
	}

	if v := e.standard(tag); v != "" {
		return v
	}
	return e.element(tag)
}

func (e RawEntry) standard(tag string) string {
	switch tag {
	case "title":
		return strings.TrimSpace(e.item.Title)
	case "link":
		return strings.TrimSpace(e.item.Link)
	case "description":
		return strings.TrimSpace(e.item.Description)
	case "guid":
		return strings.TrimSpace(e.item.GUID)
	case "image":
		if v := e.custom(tag); v != "" {
			return v
		}
		if e.item.Image != nil {
			return strings.TrimSpace(e.item.Image.URL)
		}
		return ""
	default:
		return e.custom(tag)
	}
}

func (e RawEntry) extension(name string) string {
	if len(e.item.Extensions) == 0 {
		return ""
	}

	keys := make([]string, 0, len(e.item.Extensions))
	for k := range e.item.Extensions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// gofeed keys extensions by the prefix declared in the document and
	// falls back to the namespace URI when no prefix is declared.
	prefixes := e.prefixes
	if len(prefixes) == 0 {
		prefixes = []string{defaultGooglePrefix}
	}

	for _, prefix := range slices.Concat(prefixes, []string{GoogleNamespace}) {
		for _, key := range keys {
			if !strings.EqualFold(key, prefix) {
				continue
			}
			for _, el := range e.item.Extensions[key][name] {
				if v := strings.TrimSpace(el.Value); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

func (e RawEntry) custom(name string) string {
	if len(e.item.Custom) == 0 {
		return ""
	}

	if v := strings.TrimSpace(e.item.Custom[name]); v != "" {
		return v
	}

	keys := make([]string, 0, len(e.item.Custom))
	for k := range e.item.Custom {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if strings.EqualFold(k, name) {
			if v := strings.TrimSpace(e.item.Custom[k]); v != "" {
				return v
			}
		}
	}
	return ""
}

// element reads a direct child of the raw entry node. gofeed drops
// unknown Atom elements, so Atom entries keep their node for these.
func (e RawEntry) element(name string) string {
	if e.node == nil || name == "" {
		return ""
	}

	for _, child := range e.node.Children().EachIter() {
		if goquery.NodeName(child) == strings.ToLower(name) {
			if v := strings.TrimSpace(child.Text()); v != "" {
				return v
			}
		}
	}
	return ""
}

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses an RSS, Atom or JSON feed document. Entries keep upstream order.
func (p *Parser) Run(data []byte) (*Metadata, []RawEntry, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title:       feed.Title,
		Link:        feed.Link,
		Description: feed.Description,
		Language:    feed.Language,
		FeedType:    feed.FeedType,
	}

	var prefixes []string
	var nodes []*goquery.Selection

	if feed.FeedType == "rss" || feed.FeedType == "atom" {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
		if err != nil {
			slog.Debug("Raw feed markup unavailable", "error", err)
		} else {
			prefixes = googlePrefixes(doc)
			if feed.FeedType == "atom" {
				nodes = atomEntries(doc, len(feed.Items))
			}
		}
	}

	entries := make([]RawEntry, 0, len(feed.Items))
	for i, item := range feed.Items {
		if item == nil {
			continue
		}
		entry := NewRawEntry(item)
		entry.prefixes = prefixes
		if nodes != nil {
			entry.node = nodes[i]
		}
		entries = append(entries, entry)
	}

	return metadata, entries, nil
}

// googlePrefixes lists every prefix the document binds to the Google
// Merchant namespace, in document order, followed by "g".
func googlePrefixes(doc *goquery.Document) []string {
	var prefixes []string

	for _, node := range doc.Find("*").Nodes {
		for _, attr := range node.Attr {
			prefix, ok := strings.CutPrefix(attr.Key, "xmlns:")
			if !ok || strings.TrimSpace(attr.Val) != GoogleNamespace {
				continue
			}
			if !slices.Contains(prefixes, prefix) {
				prefixes = append(prefixes, prefix)
			}
		}
	}

	if !slices.Contains(prefixes, defaultGooglePrefix) {
		prefixes = append(prefixes, defaultGooglePrefix)
	}
	return prefixes
}

// atomEntries returns the <entry> nodes of the document, or nil when they
// cannot be matched one to one with the parsed items.
func atomEntries(doc *goquery.Document, count int) []*goquery.Selection {
	selection := doc.Find("feed > entry")
	if selection.Length() != count {
		slog.Debug("Atom entries do not match parsed items", "entries", selection.Length(), "items", count)
		return nil
	}

	nodes := make([]*goquery.Selection, 0, count)
	for _, node := range selection.EachIter() {
		nodes = append(nodes, node)
	}
	return nodes
}

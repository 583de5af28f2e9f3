package summarizer

import (
	"cmp"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mattn/go-runewidth"
)

const (
	DefaultWidth = 280
	ellipsis     = "…"
)

type Summarizer interface {
	Summarize(ctx context.Context, title, description string) string
}

// Truncator shortens the description (or the title when there is none)
// to a fixed display width. It is the default Summarizer.
type Truncator struct {
	width int
}

func NewTruncator(width int) *Truncator {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Truncator{width: width}
}

func (t *Truncator) Summarize(_ context.Context, title, description string) string {
	text := PlainText(cmp.Or(strings.TrimSpace(description), strings.TrimSpace(title)))
	return runewidth.Truncate(text, t.width, ellipsis)
}

// PlainText drops any markup and collapses whitespace runs to one space.
func PlainText(s string) string {
	if strings.ContainsAny(s, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}

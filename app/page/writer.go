package page

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lysyi3m/catalog-comb/app/feed"
)

const PagesDir = "product"

// WriteResult summarizes one WritePages call.
type WriteResult struct {
	Pages      int
	Unresolved int
}

// WritePages renders every product into <dir>/product/<slug>/index.html,
// one at a time in product order.
func (r *Renderer) WritePages(dir string, products []feed.Product) (WriteResult, error) {
	var result WriteResult

	for _, product := range products {
		if product.Slug == "" {
			return result, fmt.Errorf("product %s has no slug", product.ID)
		}

		content, unresolved := r.Render(product)
		if len(unresolved) > 0 {
			slog.Debug("Unresolved template placeholders", "slug", product.Slug, "placeholders", unresolved)
			result.Unresolved += len(unresolved)
		}

		pageDir := filepath.Join(dir, PagesDir, product.Slug)
		if err := os.MkdirAll(pageDir, 0755); err != nil {
			return result, fmt.Errorf("failed to create page directory: %w", err)
		}

		if err := os.WriteFile(filepath.Join(pageDir, "index.html"), []byte(content), 0644); err != nil {
			return result, fmt.Errorf("failed to write page %s: %w", product.Slug, err)
		}

		result.Pages++
	}

	return result, nil
}

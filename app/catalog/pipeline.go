package catalog

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lysyi3m/catalog-comb/app/database"
	"github.com/lysyi3m/catalog-comb/app/feed"
	"github.com/lysyi3m/catalog-comb/app/page"
	"github.com/lysyi3m/catalog-comb/app/source"
	"github.com/lysyi3m/catalog-comb/app/summarizer"
)

const (
	FeedFile    = "products-feed.xml"
	SitemapFile = "sitemap.xml"
	ReportFile  = "run-report.json"
)

var ErrNoProducts = errors.New("no valid products")

type Fetcher interface {
	Run(ctx context.Context) (*source.Document, error)
}

type Options struct {
	OutputDir string
	Profile   string
}

type Pipeline struct {
	fetcher    Fetcher
	parser     *feed.Parser
	extractor  *feed.Extractor
	validator  *feed.Validator
	summarizer summarizer.Summarizer
	generator  *feed.Generator
	sitemap    *feed.Sitemap
	renderer   *page.Renderer
	history    database.RunRepository
	options    Options
}

func NewPipeline(
	fetcher Fetcher,
	validator *feed.Validator,
	summarize summarizer.Summarizer,
	generator *feed.Generator,
	sitemap *feed.Sitemap,
	renderer *page.Renderer,
	options Options,
) *Pipeline {
	return &Pipeline{
		fetcher:    fetcher,
		parser:     feed.NewParser(),
		extractor:  feed.NewExtractor(),
		validator:  validator,
		summarizer: summarize,
		generator:  generator,
		sitemap:    sitemap,
		renderer:   renderer,
		options:    options,
	}
}

// WithHistory records every run in the given repository. Recording
// failures are logged and never fail the run.
func (p *Pipeline) WithHistory(history database.RunRepository) *Pipeline {
	p.history = history
	return p
}

// Run rebuilds the catalog from the upstream feed. The returned report is
// never nil. A fetch or parse failure, or a run that keeps no product,
// returns an error and writes no output.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		StartedAt: time.Now(),
		Profile:   p.options.Profile,
	}

	err := p.run(ctx, report)

	report.Duration = time.Since(report.StartedAt)
	switch {
	case errors.Is(err, ErrNoProducts):
		report.Status = database.RunStatusEmpty
	case err != nil:
		report.Status = database.RunStatusFailed
		report.Err = err
	default:
		report.Status = database.RunStatusSuccess
	}

	p.record(report)

	return report, err
}

func (p *Pipeline) run(ctx context.Context, report *Report) error {
	doc, err := p.fetcher.Run(ctx)
	if err != nil {
		return err
	}
	report.Source = doc.Location
	report.Origin = string(doc.Origin)

	metadata, entries, err := p.parser.Run(doc.Data)
	if err != nil {
		return err
	}
	report.Total = len(entries)

	slog.Debug("Feed parsed", "source", doc.Location, "type", metadata.FeedType, "entries", len(entries))

	products := p.validateAll(entries, report)
	report.Kept = len(products)

	if len(products) == 0 {
		return ErrNoProducts
	}

	p.finalize(ctx, products)

	if err := p.writeOutputs(products, report); err != nil {
		return err
	}

	slog.Info("Catalog built",
		"source", report.Source,
		"total", report.Total,
		"kept", report.Kept,
		"skipped", report.Skipped(),
		"pages", report.Pages)

	return nil
}

func (p *Pipeline) validateAll(entries []feed.RawEntry, report *Report) []feed.Product {
	products := make([]feed.Product, 0, len(entries))

	for i, entry := range entries {
		fields := p.extractor.Run(entry)

		product, skip := p.validator.Run(fields, i+1)
		if skip != nil {
			slog.Debug("Entry skipped", "index", skip.Index, "id", skip.ID, "reason", skip.Reason)
			report.Skips = append(report.Skips, *skip)
			continue
		}

		products = append(products, product)
	}

	return products
}

// finalize summarizes descriptions and assigns slugs in upstream order.
func (p *Pipeline) finalize(ctx context.Context, products []feed.Product) {
	slugs := feed.NewSlugAllocator()

	for i := range products {
		product := &products[i]
		product.Description = p.summarizer.Summarize(ctx, product.Title, product.Description)

		product.Slug = slugs.Allocate(cmp.Or(product.ID, product.Title, product.SourceLink))
	}
}

func (p *Pipeline) writeOutputs(products []feed.Product, report *Report) error {
	dir := p.options.OutputDir

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	rss, err := p.generator.Run(products)
	if err != nil {
		return fmt.Errorf("failed to generate feed: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FeedFile), []byte(rss), 0644); err != nil {
		return fmt.Errorf("failed to write feed: %w", err)
	}
	report.Outputs = append(report.Outputs, FeedFile)

	// Pages of products that left the upstream feed must not survive a rebuild.
	if err := os.RemoveAll(filepath.Join(dir, page.PagesDir)); err != nil {
		return fmt.Errorf("failed to clear pages: %w", err)
	}

	result, err := p.renderer.WritePages(dir, products)
	report.Pages = result.Pages
	report.Unresolved = result.Unresolved
	if err != nil {
		return fmt.Errorf("failed to write pages: %w", err)
	}
	report.Outputs = append(report.Outputs, page.PagesDir+"/")

	if result.Unresolved > 0 {
		slog.Warn("Template has unresolved placeholders", "count", result.Unresolved)
	}

	if err := os.WriteFile(filepath.Join(dir, SitemapFile), []byte(p.sitemap.Run(products)), 0644); err != nil {
		return fmt.Errorf("failed to write sitemap: %w", err)
	}
	report.Outputs = append(report.Outputs, SitemapFile)

	report.Outputs = append(report.Outputs, ReportFile)
	report.Duration = time.Since(report.StartedAt)
	report.Status = database.RunStatusSuccess

	data, err := report.JSON()
	if err != nil {
		return fmt.Errorf("failed to encode run report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ReportFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write run report: %w", err)
	}

	return nil
}

func (p *Pipeline) record(report *Report) {
	if p.history == nil {
		return
	}

	id, err := p.history.CreateRun(report.Run())
	if err != nil {
		slog.Warn("Failed to record run history", "error", err)
		return
	}

	slog.Debug("Run recorded", "run_id", id, "status", report.Status)
}

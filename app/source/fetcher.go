package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

var ErrNoSource = errors.New("no feed source available")

// Origin names where the feed document came from.
type Origin string

const (
	OriginURL   Origin = "url"
	OriginFile  Origin = "file"
	OriginStdin Origin = "stdin"
)

type Document struct {
	Data     []byte
	Origin   Origin
	Location string
}

type Fetcher struct {
	url        string
	file       string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
	stdin      io.Reader
}

func NewFetcher(url, file, userAgent string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		url:        url,
		file:       file,
		userAgent:  userAgent,
		timeout:    timeout,
		httpClient: &http.Client{},
		stdin:      pipedStdin(),
	}
}

// WithStdin replaces the standard input reader. A nil reader disables the
// stdin fallback.
func (f *Fetcher) WithStdin(r io.Reader) *Fetcher {
	f.stdin = r
	return f
}

// Run tries the configured URL, then the local file, then piped stdin.
// A configured URL that fails is an error; the file and stdin are only
// fallbacks for an unconfigured URL and are skipped when absent or empty.
func (f *Fetcher) Run(ctx context.Context) (*Document, error) {
	if f.url != "" {
		data, err := f.fetchURL(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch feed: %w", err)
		}
		return &Document{Data: data, Origin: OriginURL, Location: f.url}, nil
	}

	if f.file != "" {
		data, err := os.ReadFile(f.file)
		switch {
		case err == nil && len(bytes.TrimSpace(data)) > 0:
			return &Document{Data: data, Origin: OriginFile, Location: f.file}, nil
		case err != nil && !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("failed to read feed file: %w", err)
		default:
			slog.Debug("Feed file not available", "file", f.file)
		}
	}

	if f.stdin != nil {
		data, err := io.ReadAll(f.stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		if len(bytes.TrimSpace(data)) > 0 {
			return &Document{Data: data, Origin: OriginStdin, Location: "-"}, nil
		}
	}

	return nil, ErrNoSource
}

func (f *Fetcher) fetchURL(ctx context.Context) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/xml,text/xml;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

// pipedStdin returns os.Stdin only when it is a pipe or a redirected file.
func pipedStdin() io.Reader {
	stat, err := os.Stdin.Stat()
	if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
		return nil
	}
	return os.Stdin
}

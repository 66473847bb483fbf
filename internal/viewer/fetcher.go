package viewer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/orrn/queueview/internal/core"
)

const maxSnapshotSize = 8 << 20

// Fetcher produces one snapshot per call.
type Fetcher interface {
	Fetch(ctx context.Context) (*core.Snapshot, error)
}

// HTTPFetcher reads snapshots from the json/ endpoint below a queue page.
type HTTPFetcher struct {
	url    *url.URL
	client *http.Client
	clock  Clock
}

// NewHTTPFetcher resolves json/ against the queue page URL, so
// http://host/printqueue/hanna/ is polled at
// http://host/printqueue/hanna/json/?nocache=<ms>.
func NewHTTPFetcher(page string, client *http.Client, clock Clock) (*HTTPFetcher, error) {
	base, err := url.Parse(page)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", page, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid endpoint %q: scheme must be http or https", page)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	if client == nil {
		client = InstrumentClient(nil, Loading)
	}
	if clock == nil {
		clock = RealClock()
	}

	return &HTTPFetcher{
		url:    base.ResolveReference(&url.URL{Path: "json/"}),
		client: client,
		clock:  clock,
	}, nil
}

// URL returns the request URL for the next poll.
func (f *HTTPFetcher) URL() string {
	u := *f.url
	q := u.Query()
	q.Set("nocache", strconv.FormatInt(f.clock.Now().UnixMilli(), 10))
	u.RawQuery = q.Encode()
	return u.String()
}

func (f *HTTPFetcher) Fetch(ctx context.Context) (*core.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("failed to fetch snapshot: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	return core.DecodeSnapshot(body)
}

// StoreFetcher publishes a queue straight from the store, skipping HTTP.
type StoreFetcher struct {
	Store   core.QueueStore
	Queue   string
	Options core.PublishOptions
	// Loading, when set, counts the store read as a request.
	Loading *LoadingBar
}

func (f *StoreFetcher) Fetch(ctx context.Context) (*core.Snapshot, error) {
	if f.Loading != nil {
		f.Loading.Begin()
		defer f.Loading.End()
	}

	q, err := core.LoadPrintQueue(ctx, f.Store, f.Queue)
	if err != nil {
		return nil, err
	}
	return q.Snapshot(f.Options), nil
}

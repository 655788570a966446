// package imagecache stores album covers and avatars keyed by URL
//
// Concurrent requests for the same URL share one download. Entries live in a
// byte-bounded [freecache.Cache], so the oldest images are evicted first once
// the configured size is reached.
package imagecache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coocood/freecache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/desertthunder/cloudmatch/internal/metrics"
	"github.com/desertthunder/cloudmatch/internal/shared"
)

const (
	defaultSizeBytes    = 64 * 1024 * 1024
	defaultFetchTimeout = 15 * time.Second
	defaultWorkers      = 4
	// freecache rejects smaller caches
	minSizeBytes = 512 * 1024
)

// Fetcher downloads the raw bytes behind an image URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc adapts a function to [Fetcher].
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) { return f(ctx, url) }

// Image is a cached download. Width, Height and Format are read from the
// header only; call [Image.Decode] for pixels.
type Image struct {
	URL    string
	Data   []byte
	Format string
	Width  int
	Height int
}

// Decode decodes the full image.
func (i *Image) Decode() (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(i.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: cannot decode %s: %v", shared.ErrInvalidInput, i.URL, err)
	}
	return img, nil
}

type Options struct {
	SizeBytes    int
	FetchTimeout time.Duration
	Workers      int
	Metrics      metrics.Recorder
	Logger       *log.Logger
}

// Cache is safe for concurrent use.
type Cache struct {
	fetcher Fetcher
	store   *freecache.Cache
	flight  singleflight.Group
	timeout time.Duration
	workers int
	metrics metrics.Recorder
	logger  *log.Logger

	// freecache refuses entries larger than 1/1024 of its size
	maxEntry int
}

func New(fetcher Fetcher, opts Options) *Cache {
	if opts.SizeBytes <= 0 {
		opts.SizeBytes = defaultSizeBytes
	}
	opts.SizeBytes = max(opts.SizeBytes, minSizeBytes)
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}

	return &Cache{
		fetcher:  fetcher,
		store:    freecache.NewCache(opts.SizeBytes),
		timeout:  opts.FetchTimeout,
		workers:  opts.Workers,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		maxEntry: opts.SizeBytes / 1024,
	}
}

// Get returns a cached image without fetching.
func (c *Cache) Get(url string) (*Image, bool) {
	img, ok := c.lookup(url)
	if ok {
		c.metrics.IncCacheHits()
	} else {
		c.metrics.IncCacheMisses()
	}
	return img, ok
}

// GetOrFetch returns the cached image for url or downloads it.
//
// Concurrent callers for the same url share one download. The download is not
// tied to any single caller, so a caller whose ctx ends gets ctx.Err() while
// the others still receive the result. Failed downloads are not cached.
func (c *Cache) GetOrFetch(ctx context.Context, url string) (*Image, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: image url", shared.ErrMissingArgument)
	}
	if img, ok := c.Get(url); ok {
		return img, nil
	}

	ch := c.flight.DoChan(url, func() (any, error) {
		if img, ok := c.lookup(url); ok {
			return img, nil
		}
		return c.download(context.WithoutCancel(ctx), url)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Image), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Prefetch warms the cache for urls with bounded concurrency.
//
// Individual failures are logged and skipped; only ctx cancellation is returned.
func (c *Cache) Prefetch(ctx context.Context, urls []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}

		g.Go(func() error {
			if _, err := c.GetOrFetch(gctx, u); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				c.logger.Warn("prefetch failed", "url", u, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int64 {
	return c.store.EntryCount()
}

func (c *Cache) lookup(url string) (*Image, bool) {
	data, err := c.store.Get([]byte(url))
	if err != nil {
		return nil, false
	}
	return newImage(url, data), true
}

func (c *Cache) download(ctx context.Context, url string) (*Image, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		c.metrics.IncImageFetches("error")
		return nil, err
	}
	c.metrics.IncImageFetches("ok")

	if err := c.store.Set([]byte(url), data, 0); errors.Is(err, freecache.ErrLargeEntry) {
		c.logger.Warn("image exceeds cache entry limit and will be fetched again", "url", url, "bytes", len(data), "limit", c.maxEntry)
	} else if err != nil {
		c.logger.Debug("image not cached", "url", url, "bytes", len(data), "error", err)
	}
	return newImage(url, data), nil
}

func newImage(url string, data []byte) *Image {
	img := &Image{URL: url, Data: data}
	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		img.Format = format
		img.Width = cfg.Width
		img.Height = cfg.Height
	}
	return img
}

// HTTPFetcher downloads images with an [http.Client].
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher uses [http.DefaultClient] when client is nil.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %w: %v", shared.ErrNetwork, shared.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %w: image %s returned %d", shared.ErrNetwork, shared.ErrServiceUnavailable, url, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: image %s returned %d", shared.ErrAPIRequest, url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read image: %v", shared.ErrNetwork, err)
	}
	return data, nil
}

// package cloud holds the current page of the user's cloud drive
//
// The [Store] replaces a page atomically on fetch and otherwise only mutates
// single records in place, so a match updates exactly one row without a reload.
package cloud

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/text/cases"

	"github.com/desertthunder/cloudmatch/internal/metrics"
	"github.com/desertthunder/cloudmatch/internal/models"
	"github.com/desertthunder/cloudmatch/internal/services"
	"github.com/desertthunder/cloudmatch/internal/shared"
)

const (
	DefaultPageSize = 200
	changeBuffer    = 64
)

// SongSource lists songs from the provider.
type SongSource interface {
	CloudSongs(ctx context.Context, limit, offset int) (*services.CloudPage, error)
}

type Options struct {
	PageSize int
	Sort     []SortKey // nil uses [DefaultSort]
	Metrics  metrics.Recorder
	Logger   *log.Logger
}

// ChangeKind describes a [Change].
type ChangeKind int

const (
	PageLoaded ChangeKind = iota
	SongUpdated
	Resorted
)

// Change notifies observers that the store was modified.
type Change struct {
	Kind    ChangeKind
	Version uint64
	SongID  string // ID before the update, set for SongUpdated
	Song    models.CloudSong
}

// PageResult describes an applied fetch.
type PageResult struct {
	Page      models.Page
	Songs     []models.CloudSong
	Usage     models.Usage
	Version   uint64
	Requested int  // page number asked for
	Clamped   bool // Page.Number differs from Requested
}

// Snapshot is a consistent copy of the store.
type Snapshot struct {
	Songs   []models.CloudSong
	Page    models.Page
	Usage   models.Usage
	Version uint64
	Loaded  bool
	Sort    []SortKey
}

// Store is safe for concurrent use.
type Store struct {
	src     SongSource
	size    int
	metrics metrics.Recorder
	logger  *log.Logger

	mu      sync.RWMutex
	songs   []models.CloudSong
	page    models.Page
	usage   models.Usage
	version uint64
	loaded  bool
	sort    []SortKey
	issued  uint64
	applied uint64

	changes chan Change
}

func NewStore(src SongSource, opts Options) *Store {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Sort == nil {
		opts.Sort = DefaultSort
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}

	return &Store{
		src:     src,
		size:    opts.PageSize,
		metrics: opts.Metrics,
		logger:  shared.WithLogger(opts.Logger, "component", "cloud"),
		sort:    slices.Clone(opts.Sort),
		changes: make(chan Change, changeBuffer),
	}
}

// FetchPage loads page number of the drive with limit songs per page and
// replaces the current page with it.
//
// A page past the end is clamped to the last page. The last known total is
// used up front; when the response's total clamps the request to a different
// page, that page is fetched once more. On error the current page is left untouched.
// When fetches overlap only the most recently issued completion is applied;
// older ones return [shared.ErrSuperseded].
func (s *Store) FetchPage(ctx context.Context, page, limit int) (*PageResult, error) {
	if page <= 0 || limit <= 0 {
		return nil, fmt.Errorf("%w: page %d, limit %d", shared.ErrInvalidArgument, page, limit)
	}

	s.mu.Lock()
	s.issued++
	seq := s.issued
	target := page
	if s.loaded {
		target = models.Page{Size: limit, Total: s.page.Total}.Clamp(page)
	}
	s.mu.Unlock()

	resp, err := s.fetch(ctx, target, limit)
	if err != nil {
		return nil, err
	}

	info := models.Page{Number: target, Size: limit, Total: resp.Total}
	if want := info.Clamp(page); want != target {
		s.logger.Debug("total changed, refetching", "requested", page, "fetched", target, "page", want)
		target = want
		if resp, err = s.fetch(ctx, target, limit); err != nil {
			return nil, err
		}
		info = models.Page{Number: target, Size: limit, Total: resp.Total}
	}

	songs := slices.Clone(resp.Songs)

	s.mu.Lock()
	if seq <= s.applied {
		s.mu.Unlock()
		s.metrics.IncPageFetches("superseded")
		return nil, fmt.Errorf("%w: page %d", shared.ErrSuperseded, page)
	}
	sortSongs(songs, s.sort)
	s.applied = seq
	s.songs = songs
	s.page = info
	s.usage = resp.Usage
	s.version++
	s.loaded = true
	result := &PageResult{
		Page:      info,
		Songs:     slices.Clone(songs),
		Usage:     resp.Usage,
		Version:   s.version,
		Requested: page,
		Clamped:   target != page,
	}
	s.mu.Unlock()

	s.metrics.IncPageFetches("ok")
	s.logger.Debug("page loaded", "page", info.Number, "pages", info.TotalPages(), "songs", len(songs), "total", info.Total)
	s.emit(Change{Kind: PageLoaded, Version: result.Version})
	return result, nil
}

func (s *Store) fetch(ctx context.Context, page, limit int) (*services.CloudPage, error) {
	resp, err := s.src.CloudSongs(ctx, limit, (page-1)*limit)
	if err != nil {
		s.metrics.IncPageFetches("error")
		return nil, fmt.Errorf("failed to fetch page %d: %w", page, err)
	}
	return resp, nil
}

// Refresh reloads page 1 at the current page size.
func (s *Store) Refresh(ctx context.Context) (*PageResult, error) {
	s.mu.RLock()
	limit := s.size
	if s.loaded {
		limit = s.page.Size
	}
	s.mu.RUnlock()

	return s.FetchPage(ctx, 1, limit)
}

// Search filters the current page by a case-insensitive substring of name,
// artist or album. An empty query returns the whole page.
func (s *Store) Search(text string) []models.CloudSong {
	s.mu.RLock()
	defer s.mu.RUnlock()

	text = strings.TrimSpace(text)
	if text == "" {
		return slices.Clone(s.songs)
	}

	fold := cases.Fold()
	needle := fold.String(text)

	var out []models.CloudSong
	for _, song := range s.songs {
		for _, field := range [...]string{song.Name, song.Artist, song.Album} {
			if strings.Contains(fold.String(field), needle) {
				out = append(out, song)
				break
			}
		}
	}
	return out
}

// ApplySort reorders the current page and remembers keys for later pages.
//
// Calling it without keys restores [DefaultSort].
func (s *Store) ApplySort(keys ...SortKey) {
	if len(keys) == 0 {
		keys = DefaultSort
	}

	s.mu.Lock()
	s.sort = slices.Clone(keys)
	sortSongs(s.songs, s.sort)
	version := s.version
	s.mu.Unlock()

	s.emit(Change{Kind: Resorted, Version: version})
}

// SortKeys returns the keys applied to each page.
func (s *Store) SortKeys() []SortKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.sort)
}

// UpdateSong applies fn to the song with id, provided the page has not been
// replaced since version was read.
//
// Nothing else in the store changes.
func (s *Store) UpdateSong(version uint64, id string, fn func(*models.CloudSong)) error {
	s.mu.Lock()
	if version != s.version {
		current := s.version
		s.mu.Unlock()
		return fmt.Errorf("%w: have %d, page is at %d", shared.ErrVersionConflict, version, current)
	}

	i := slices.IndexFunc(s.songs, func(song models.CloudSong) bool { return song.ID == id })
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", shared.ErrSongNotFound, id)
	}

	updated := s.songs[i]
	fn(&updated)
	s.songs[i] = updated
	s.mu.Unlock()

	s.emit(Change{Kind: SongUpdated, Version: version, SongID: id, Song: updated})
	return nil
}

// Lookup returns the song with id and the page version it was read at.
func (s *Store) Lookup(id string) (models.CloudSong, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, song := range s.songs {
		if song.ID == id {
			return song, s.version, true
		}
	}
	return models.CloudSong{}, s.version, false
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Songs:   slices.Clone(s.songs),
		Page:    s.page,
		Usage:   s.usage,
		Version: s.version,
		Loaded:  s.loaded,
		Sort:    slices.Clone(s.sort),
	}
}

// PageSize returns the size used by [Store.Refresh].
func (s *Store) PageSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loaded {
		return s.page.Size
	}
	return s.size
}

// Changes delivers modifications. Sends never block, so a reader that falls
// behind should re-read [Store.Snapshot].
func (s *Store) Changes() <-chan Change {
	return s.changes
}

func (s *Store) emit(c Change) {
	select {
	case s.changes <- c:
	default:
	}
}

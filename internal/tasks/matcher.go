package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/cloudmatch/internal/cloud"
	"github.com/desertthunder/cloudmatch/internal/matchlog"
	"github.com/desertthunder/cloudmatch/internal/metrics"
	"github.com/desertthunder/cloudmatch/internal/models"
	"github.com/desertthunder/cloudmatch/internal/services"
	"github.com/desertthunder/cloudmatch/internal/shared"
)

// UnknownArtist is the placeholder the provider uses for songs without artist tags.
const UnknownArtist = "未知艺术家"

// CopiedMessage is the log message recorded by [Matcher.NoteCopied].
const CopiedMessage = "song name copied"

// IdentitySource reports the logged-in user, or nil.
type IdentitySource interface {
	Identity() *models.Identity
}

type MatcherOptions struct {
	Metrics metrics.Recorder
	Logger  *log.Logger
}

// MatchOutcome describes a match request that reached the provider.
type MatchOutcome struct {
	Song    models.CloudSong     // Song as stored after the attempt
	Entry   models.MatchLogEntry // Entry appended to the match log
	Applied bool                 // False when the page was replaced mid-flight
	Message string               // Human readable summary
}

// Matcher binds cloud songs to catalog ids and records each attempt.
type Matcher struct {
	svc     services.MatchService
	store   *cloud.Store
	log     *matchlog.Log
	who     IdentitySource
	metrics metrics.Recorder
	logger  *log.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewMatcher(svc services.MatchService, store *cloud.Store, history *matchlog.Log, who IdentitySource, opts MatcherOptions) *Matcher {
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}

	return &Matcher{
		svc:      svc,
		store:    store,
		log:      history,
		who:      who,
		metrics:  opts.Metrics,
		logger:   shared.WithLogger(opts.Logger, "component", "matcher"),
		inFlight: make(map[string]struct{}),
	}
}

// PerformMatch asks the provider to bind cloudSongID to targetID.
//
// Input errors and concurrent calls for the same song return before any
// request is made and leave no log entry. Once the request is sent, the
// outcome is always returned, together with an error when the provider
// rejected the match or could not be reached. Nothing is retried.
func (m *Matcher) PerformMatch(ctx context.Context, cloudSongID, targetID string) (*MatchOutcome, error) {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return nil, fmt.Errorf("%w: match target id is empty", shared.ErrInvalidArgument)
	}

	if !m.acquire(cloudSongID) {
		return nil, fmt.Errorf("%w: %s", shared.ErrConcurrentMatch, cloudSongID)
	}
	defer m.release(cloudSongID)

	song, version, ok := m.store.Lookup(cloudSongID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrSongNotFound, cloudSongID)
	}
	id := m.who.Identity()
	if id == nil {
		return nil, fmt.Errorf("%w: log in before matching", shared.ErrAuth)
	}

	m.logger.Info("matching", "song", song.Name, "id", song.ID, "target", targetID)
	err := m.svc.MatchCloudSong(ctx, id.UserID, song.ID, targetID)
	if err != nil {
		return m.fail(song, version, targetID, err)
	}

	applied := m.apply(version, song.ID, func(s *models.CloudSong) {
		s.ID = targetID
		s.Status = models.StatusMatched()
	})
	entry := m.log.Append(models.MatchLogEntry{
		SongName:    song.Name,
		CloudSongID: song.ID,
		MatchSongID: targetID,
		Status:      models.LogSuccess,
	})
	m.metrics.IncMatches("matched")

	updated := song
	if applied {
		updated.ID = targetID
		updated.Status = models.StatusMatched()
	}
	return &MatchOutcome{
		Song:    updated,
		Entry:   entry,
		Applied: applied,
		Message: fmt.Sprintf("matched %q to %s", song.Name, targetID),
	}, nil
}

func (m *Matcher) fail(song models.CloudSong, version uint64, targetID string, err error) (*MatchOutcome, error) {
	outcome := "error"
	reason := err.Error()
	var rejected *shared.MatchError
	if errors.As(err, &rejected) {
		outcome = "rejected"
		reason = rejected.Reason
	} else {
		err = fmt.Errorf("match %s -> %s failed: %w", song.ID, targetID, err)
	}

	status := models.StatusFailed(reason)
	applied := m.apply(version, song.ID, func(s *models.CloudSong) { s.Status = status })
	entry := m.log.Append(models.MatchLogEntry{
		SongName:    song.Name,
		CloudSongID: song.ID,
		MatchSongID: targetID,
		Message:     reason,
		Status:      models.LogFailed,
	})
	m.metrics.IncMatches(outcome)
	m.logger.Warn("match failed", "song", song.Name, "id", song.ID, "target", targetID, "reason", reason)

	if applied {
		song.Status = status
	}
	return &MatchOutcome{
		Song:    song,
		Entry:   entry,
		Applied: applied,
		Message: fmt.Sprintf("match failed: %s", reason),
	}, err
}

// apply updates the stored song, reporting false when the page moved on.
func (m *Matcher) apply(version uint64, id string, fn func(*models.CloudSong)) bool {
	err := m.store.UpdateSong(version, id, fn)
	if err == nil {
		return true
	}
	m.logger.Warn("match result not applied to page", "id", id, "error", err)
	return false
}

func (m *Matcher) acquire(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inFlight[id]; busy {
		return false
	}
	m.inFlight[id] = struct{}{}
	return true
}

func (m *Matcher) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inFlight, id)
}

// NoteCopied records that the search label for song was copied.
func (m *Matcher) NoteCopied(song models.CloudSong) models.MatchLogEntry {
	return m.log.Append(models.MatchLogEntry{
		SongName:    song.Name,
		CloudSongID: song.ID,
		Message:     CopiedMessage,
		Status:      models.LogInfo,
	})
}

// CopyLabel is the text copied to search the catalog for song: "name-artist",
// or just the name when the artist is unknown.
func CopyLabel(song models.CloudSong) string {
	artist := strings.TrimSpace(song.Artist)
	if artist == "" || artist == UnknownArtist {
		return song.Name
	}
	return song.Name + "-" + artist
}

package tasks

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/cloudmatch/internal/cloud"
	"github.com/desertthunder/cloudmatch/internal/matchlog"
	"github.com/desertthunder/cloudmatch/internal/models"
	"github.com/desertthunder/cloudmatch/internal/services"
	"github.com/desertthunder/cloudmatch/internal/services/servicestest"
	"github.com/desertthunder/cloudmatch/internal/shared"
	tu "github.com/desertthunder/cloudmatch/internal/testing"
)

type staticIdentity struct{ id *models.Identity }

func (s staticIdentity) Identity() *models.Identity { return s.id }

var listener = staticIdentity{&models.Identity{UserID: 7, Nickname: "listener"}}

func testSongs() []models.CloudSong {
	return []models.CloudSong{
		{ID: "A", Name: "晴天", Artist: "周杰伦", AddedAt: time.Unix(3, 0)},
		{ID: "B", Name: "Demo", Artist: UnknownArtist, AddedAt: time.Unix(2, 0)},
		{ID: "C", Name: "Intro", Artist: "Band", AddedAt: time.Unix(1, 0)},
	}
}

type fixture struct {
	fake    *servicestest.FakeCloudService
	store   *cloud.Store
	log     *matchlog.Log
	matcher *Matcher
}

func newFixture(t *testing.T, who IdentitySource) *fixture {
	t.Helper()
	fake := &servicestest.FakeCloudService{
		CloudSongsFn: servicestest.Library(testSongs(), models.Usage{}),
	}
	store := cloud.NewStore(fake, cloud.Options{PageSize: 10})
	if _, err := store.FetchPage(context.Background(), 1, 10); err != nil {
		t.Fatalf("failed to load page: %v", err)
	}
	log := matchlog.New(10)
	return &fixture{
		fake:    fake,
		store:   store,
		log:     log,
		matcher: NewMatcher(fake, store, log, who, MatcherOptions{}),
	}
}

func TestPerformMatch(t *testing.T) {
	t.Run("Success Updates One Song", func(t *testing.T) {
		f := newFixture(t, listener)
		var gotUID int64
		f.fake.MatchCloudSongFn = func(_ context.Context, uid int64, songID, targetID string) error {
			gotUID = uid
			return nil
		}
		before := f.store.Snapshot()

		out, err := f.matcher.PerformMatch(context.Background(), "A", " 9999 ")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotUID != 7 {
			t.Errorf("expected uid 7, got %d", gotUID)
		}
		if !out.Applied || out.Song.ID != "9999" || out.Song.Status.Kind != models.Matched {
			t.Errorf("unexpected outcome %+v", out)
		}
		if !strings.Contains(out.Message, "9999") {
			t.Errorf("expected message to mention target, got %q", out.Message)
		}

		after := f.store.Snapshot()
		if after.Version != before.Version || after.Page != before.Page {
			t.Error("expected no page reload")
		}
		if f.fake.CloudSongsCalls.Load() != 1 {
			t.Errorf("expected no refetch, got %d fetches", f.fake.CloudSongsCalls.Load())
		}
		for i, song := range after.Songs {
			if before.Songs[i].ID == "A" {
				continue
			}
			if song != before.Songs[i] {
				t.Errorf("expected %s untouched", song.ID)
			}
		}

		entries := f.log.Entries()
		if len(entries) != 1 {
			t.Fatalf("expected 1 log entry, got %d", len(entries))
		}
		e := entries[0]
		if !e.Success() || e.CloudSongID != "A" || e.MatchSongID != "9999" || e.Message != "" || e.SongName != "晴天" {
			t.Errorf("unexpected entry %+v", e)
		}
	})

	t.Run("Rejection Marks Song Failed", func(t *testing.T) {
		f := newFixture(t, listener)
		f.fake.MatchCloudSongFn = func(_ context.Context, _ int64, songID, targetID string) error {
			return &shared.MatchError{SongID: songID, TargetID: targetID, Reason: "歌曲不存在"}
		}

		out, err := f.matcher.PerformMatch(context.Background(), "B", "123")
		if !errors.Is(err, shared.ErrMatchRejected) {
			t.Fatalf("expected ErrMatchRejected, got %v", err)
		}
		var me *shared.MatchError
		if !errors.As(err, &me) || me.Reason != "歌曲不存在" {
			t.Errorf("expected MatchError with reason, got %v", err)
		}

		song, _, ok := f.store.Lookup("B")
		if !ok {
			t.Fatal("expected id to be unchanged")
		}
		if song.Status != models.StatusFailed("歌曲不存在") {
			t.Errorf("unexpected status %s", song.Status)
		}
		if out == nil || out.Entry.Status != models.LogFailed || out.Entry.Message != "歌曲不存在" {
			t.Errorf("unexpected outcome %+v", out)
		}
		if f.log.Len() != 1 {
			t.Errorf("expected 1 log entry, got %d", f.log.Len())
		}
	})

	t.Run("Transport Failure", func(t *testing.T) {
		f := newFixture(t, listener)
		f.fake.MatchCloudSongFn = func(context.Context, int64, string, string) error {
			return shared.ErrNetwork
		}

		out, err := f.matcher.PerformMatch(context.Background(), "C", "5")
		if !errors.Is(err, shared.ErrNetwork) {
			t.Fatalf("expected ErrNetwork, got %v", err)
		}
		if out.Song.Status.Kind != models.MatchFailed {
			t.Errorf("expected failed status, got %s", out.Song.Status)
		}
		if latest, _ := f.log.Latest(); latest.Status != models.LogFailed {
			t.Errorf("expected failed entry, got %+v", latest)
		}
	})

	t.Run("Blank Target", func(t *testing.T) {
		f := newFixture(t, listener)

		for _, target := range []string{"", "   "} {
			if _, err := f.matcher.PerformMatch(context.Background(), "A", target); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument for %q, got %v", target, err)
			}
		}
		if f.fake.MatchCalls.Load() != 0 || f.log.Len() != 0 {
			t.Error("expected no request and no log entry")
		}
	})

	t.Run("Unknown Song", func(t *testing.T) {
		f := newFixture(t, listener)
		if _, err := f.matcher.PerformMatch(context.Background(), "Z", "1"); !errors.Is(err, shared.ErrSongNotFound) {
			t.Errorf("expected ErrSongNotFound, got %v", err)
		}
		if f.log.Len() != 0 {
			t.Error("expected no log entry")
		}
	})

	t.Run("No Session", func(t *testing.T) {
		f := newFixture(t, staticIdentity{})
		if _, err := f.matcher.PerformMatch(context.Background(), "A", "1"); !errors.Is(err, shared.ErrAuth) {
			t.Errorf("expected ErrAuth, got %v", err)
		}
		if f.fake.MatchCalls.Load() != 0 {
			t.Error("expected no request")
		}
	})

	t.Run("Concurrent Calls For Same Song", func(t *testing.T) {
		f := newFixture(t, listener)
		entered := make(chan struct{})
		release := make(chan struct{})
		f.fake.MatchCloudSongFn = func(_ context.Context, _ int64, songID, _ string) error {
			if songID == "A" {
				close(entered)
				<-release
			}
			return nil
		}

		done := make(chan error, 1)
		go func() {
			_, err := f.matcher.PerformMatch(context.Background(), "A", "1")
			done <- err
		}()
		<-entered

		if _, err := f.matcher.PerformMatch(context.Background(), "A", "2"); !errors.Is(err, shared.ErrConcurrentMatch) {
			t.Errorf("expected ErrConcurrentMatch, got %v", err)
		}
		if _, err := f.matcher.PerformMatch(context.Background(), "B", "3"); err != nil {
			t.Errorf("expected a different song to match concurrently, got %v", err)
		}

		close(release)
		if err := <-done; err != nil {
			t.Fatalf("expected first match to succeed, got %v", err)
		}
		if f.fake.MatchCalls.Load() != 2 {
			t.Errorf("expected 2 requests, got %d", f.fake.MatchCalls.Load())
		}
		if f.log.Len() != 2 {
			t.Errorf("expected 2 log entries, got %d", f.log.Len())
		}
	})

	t.Run("Page Replaced Mid Flight", func(t *testing.T) {
		f := newFixture(t, listener)
		f.fake.MatchCloudSongFn = func(context.Context, int64, string, string) error {
			if _, err := f.store.Refresh(context.Background()); err != nil {
				t.Errorf("refresh failed: %v", err)
			}
			return nil
		}

		out, err := f.matcher.PerformMatch(context.Background(), "A", "9")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if out.Applied {
			t.Error("expected update to be dropped")
		}
		if _, _, ok := f.store.Lookup("A"); !ok {
			t.Error("expected reloaded page to keep the original id")
		}
		if latest, _ := f.log.Latest(); !latest.Success() {
			t.Errorf("expected success entry, got %+v", latest)
		}
	})

	t.Run("Transport Failure Keeps Cookie Out Of Log", func(t *testing.T) {
		f := newFixture(t, listener)
		api := services.NewAPIService("http://127.0.0.1:1", &http.Client{
			Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused")),
		}, services.APIOptions{RateLimit: 1000})
		api.SetCookie("MUSIC_U=SECRET_TOKEN")
		m := NewMatcher(services.NewNetEaseService(api), f.store, f.log, listener, MatcherOptions{})

		out, err := m.PerformMatch(context.Background(), "A", "9")
		if !errors.Is(err, shared.ErrNetwork) {
			t.Fatalf("expected ErrNetwork, got %v", err)
		}
		if strings.Contains(err.Error(), "SECRET_TOKEN") {
			t.Errorf("expected cookie to be redacted from error, got %q", err)
		}
		if out != nil && strings.Contains(out.Message, "SECRET_TOKEN") {
			t.Errorf("expected cookie to be redacted from outcome, got %q", out.Message)
		}
		if song, _, ok := f.store.Lookup("A"); ok && strings.Contains(song.Status.Reason, "SECRET_TOKEN") {
			t.Errorf("expected cookie to be redacted from status, got %q", song.Status.Reason)
		}
		latest, ok := f.log.Latest()
		if !ok {
			t.Fatal("expected a log entry")
		}
		if strings.Contains(latest.Message, "SECRET_TOKEN") {
			t.Errorf("expected cookie to be redacted from log, got %q", latest.Message)
		}
	})
}

func TestCopyLabel(t *testing.T) {
	tests := []struct {
		song models.CloudSong
		want string
	}{
		{models.CloudSong{Name: "晴天", Artist: "周杰伦"}, "晴天-周杰伦"},
		{models.CloudSong{Name: "Demo", Artist: UnknownArtist}, "Demo"},
		{models.CloudSong{Name: "Untitled"}, "Untitled"},
	}
	for _, tt := range tests {
		if got := CopyLabel(tt.song); got != tt.want {
			t.Errorf("CopyLabel(%+v) = %q, want %q", tt.song, got, tt.want)
		}
	}
}

func TestNoteCopied(t *testing.T) {
	f := newFixture(t, listener)
	song, _, _ := f.store.Lookup("A")

	e := f.matcher.NoteCopied(song)
	if e.Status != models.LogInfo || e.Message != CopiedMessage || e.CloudSongID != "A" {
		t.Errorf("unexpected entry %+v", e)
	}
}

func TestBulkMatch(t *testing.T) {
	t.Run("Runs All Jobs", func(t *testing.T) {
		f := newFixture(t, listener)
		var mu sync.Mutex
		seen := map[string]string{}
		f.fake.MatchCloudSongFn = func(_ context.Context, _ int64, songID, targetID string) error {
			mu.Lock()
			seen[songID] = targetID
			mu.Unlock()
			if songID == "C" {
				return &shared.MatchError{SongID: songID, TargetID: targetID, Reason: "no"}
			}
			return nil
		}

		prog := make(chan ProgressUpdate, 10)
		jobs := []MatchJob{{"A", "1"}, {"B", "2"}, {"C", "3"}, {"Z", "4"}}
		res, err := f.matcher.BulkMatch(context.Background(), prog, jobs, BulkMatchOpts{RateLimit: 1000, NumWorkers: 2})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if res.Total != 4 || res.Succeeded != 2 || res.Failed != 2 {
			t.Errorf("unexpected counts %+v", res)
		}
		if len(res.Entries()) != 3 {
			t.Errorf("expected 3 log entries from sent requests, got %d", len(res.Entries()))
		}
		if seen["A"] != "1" || seen["B"] != "2" {
			t.Errorf("unexpected requests %v", seen)
		}

		close(prog)
		var phases []Phase
		for u := range prog {
			phases = append(phases, u.Phase)
		}
		if len(phases) != 5 {
			t.Errorf("expected 5 progress updates, got %d", len(phases))
		}
	})

	t.Run("Loads Requested Page", func(t *testing.T) {
		f := newFixture(t, listener)
		res, err := f.matcher.BulkMatch(context.Background(), nil, []MatchJob{{"A", "1"}}, BulkMatchOpts{Page: 1, Limit: 2, RateLimit: 1000})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Succeeded != 1 {
			t.Errorf("expected 1 success, got %+v", res)
		}
		if f.store.Snapshot().Page.Size != 2 {
			t.Error("expected page to be reloaded at the requested size")
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		f := newFixture(t, listener)
		var calls atomic.Int32
		f.fake.MatchCloudSongFn = func(context.Context, int64, string, string) error {
			calls.Add(1)
			return nil
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := f.matcher.BulkMatch(ctx, nil, []MatchJob{{"A", "1"}, {"B", "2"}}, BulkMatchOpts{RateLimit: 0.001})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if calls.Load() != 0 {
			t.Errorf("expected no requests, got %d", calls.Load())
		}
	})
}

func TestParseMatchJobs(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		in := "song_id,target_id\n# comment\nA, 1\n\nB,2\n"
		jobs, err := ParseMatchJobs(strings.NewReader(in))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(jobs) != 2 || jobs[0] != (MatchJob{"A", "1"}) || jobs[1] != (MatchJob{"B", "2"}) {
			t.Errorf("unexpected jobs %+v", jobs)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		for _, in := range []string{"A,1,extra\n", "A,\n", "A\n"} {
			if _, err := ParseMatchJobs(strings.NewReader(in)); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("ParseMatchJobs(%q): expected ErrInvalidInput, got %v", in, err)
			}
		}
	})
}

// package servicestest provides a scriptable [services.CloudService] for tests
package servicestest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/desertthunder/cloudmatch/internal/models"
	"github.com/desertthunder/cloudmatch/internal/services"
)

var _ services.CloudService = (*FakeCloudService)(nil)

// FakeCloudService is a test double whose behavior is set through function fields.
//
// Unset fields return zero values. Call counters are safe for concurrent use.
type FakeCloudService struct {
	AuthenticateFn   func(ctx context.Context, credentials map[string]string) error
	CreateLoginKeyFn func(ctx context.Context) (string, error)
	QRLoginURLFn     func(ctx context.Context, key string) (string, error)
	CheckLoginFn     func(ctx context.Context, key string) (*services.LoginCheck, error)
	AccountFn        func(ctx context.Context) (*models.Identity, error)
	LogoutFn         func(ctx context.Context) error
	CloudSongsFn     func(ctx context.Context, limit, offset int) (*services.CloudPage, error)
	MatchCloudSongFn func(ctx context.Context, uid int64, songID, targetID string) error

	MatchCalls      atomic.Int32
	CloudSongsCalls atomic.Int32
	LogoutCalls     atomic.Int32

	mu     sync.Mutex
	cookie string
}

func (f *FakeCloudService) Name() string { return "fake" }

// Cookie returns the credentials last applied through Authenticate.
func (f *FakeCloudService) Cookie() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cookie
}

func (f *FakeCloudService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if f.AuthenticateFn != nil {
		if err := f.AuthenticateFn(ctx, credentials); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.cookie = credentials["cookie"]
	f.mu.Unlock()
	return nil
}

func (f *FakeCloudService) ClearCredentials() {
	f.mu.Lock()
	f.cookie = ""
	f.mu.Unlock()
}

func (f *FakeCloudService) CreateLoginKey(ctx context.Context) (string, error) {
	if f.CreateLoginKeyFn != nil {
		return f.CreateLoginKeyFn(ctx)
	}
	return "key", nil
}

func (f *FakeCloudService) QRLoginURL(ctx context.Context, key string) (string, error) {
	if f.QRLoginURLFn != nil {
		return f.QRLoginURLFn(ctx, key)
	}
	return "https://music.163.com/login?codekey=" + key, nil
}

func (f *FakeCloudService) CheckLogin(ctx context.Context, key string) (*services.LoginCheck, error) {
	if f.CheckLoginFn != nil {
		return f.CheckLoginFn(ctx, key)
	}
	return &services.LoginCheck{State: models.TicketPending, Code: 801}, nil
}

func (f *FakeCloudService) Account(ctx context.Context) (*models.Identity, error) {
	if f.AccountFn != nil {
		return f.AccountFn(ctx)
	}
	return &models.Identity{UserID: 1, Nickname: "listener"}, nil
}

func (f *FakeCloudService) Logout(ctx context.Context) error {
	f.LogoutCalls.Add(1)
	f.mu.Lock()
	f.cookie = ""
	f.mu.Unlock()
	if f.LogoutFn != nil {
		return f.LogoutFn(ctx)
	}
	return nil
}

func (f *FakeCloudService) CloudSongs(ctx context.Context, limit, offset int) (*services.CloudPage, error) {
	f.CloudSongsCalls.Add(1)
	if f.CloudSongsFn != nil {
		return f.CloudSongsFn(ctx, limit, offset)
	}
	return &services.CloudPage{}, nil
}

func (f *FakeCloudService) MatchCloudSong(ctx context.Context, uid int64, songID, targetID string) error {
	f.MatchCalls.Add(1)
	if f.MatchCloudSongFn != nil {
		return f.MatchCloudSongFn(ctx, uid, songID, targetID)
	}
	return nil
}

// Library serves a fixed song list with offset/limit paging.
func Library(songs []models.CloudSong, usage models.Usage) func(ctx context.Context, limit, offset int) (*services.CloudPage, error) {
	return func(_ context.Context, limit, offset int) (*services.CloudPage, error) {
		start := min(offset, len(songs))
		end := min(start+limit, len(songs))
		page := make([]models.CloudSong, end-start)
		copy(page, songs[start:end])
		return &services.CloudPage{
			Songs:   page,
			Total:   len(songs),
			Usage:   usage,
			HasMore: end < len(songs),
		}, nil
	}
}

// NetEase Cloud Music implementation of [CloudService]
//
// Endpoints follow the NeteaseCloudMusicApi proxy: /login/qr/*, /user/account, /user/cloud, /cloud/match and /logout.
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/cloudmatch/internal/models"
	"github.com/desertthunder/cloudmatch/internal/shared"
)

// QR login status codes reported by /login/qr/check.
const (
	qrExpired   = 800
	qrWaiting   = 801
	qrScanned   = 802
	qrConfirmed = 803
)

const codeOK = 200

// flexInt64 decodes numbers the provider sometimes sends as strings.
type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %q: %w", b, err)
	}
	*f = flexInt64(n)
	return nil
}

type neteaseArtist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type neteaseAlbum struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	PicURL string `json:"picUrl"`
}

// NetEaseCloudSong is one entry of the /user/cloud response.
type NetEaseCloudSong struct {
	SimpleSong struct {
		ID       int64           `json:"id"`
		Name     string          `json:"name"`
		Artists  []neteaseArtist `json:"ar"`
		Album    *neteaseAlbum   `json:"al"`
		Duration int             `json:"dt"`
	} `json:"simpleSong"`
	SongID   flexInt64 `json:"songId"`
	SongName string    `json:"songName"`
	Artist   string    `json:"artist"`
	Album    string    `json:"album"`
	FileName string    `json:"fileName"`
	FileSize flexInt64 `json:"fileSize"`
	AddTime  flexInt64 `json:"addTime"` // Unix milliseconds
}

// ToModel converts the provider record to a [models.CloudSong], preferring the resolved simpleSong metadata.
func (s NetEaseCloudSong) ToModel() models.CloudSong {
	song := models.CloudSong{
		ID:       strconv.FormatInt(int64(s.SongID), 10),
		Name:     s.SongName,
		Artist:   s.Artist,
		Album:    s.Album,
		FileName: s.FileName,
		FileSize: int64(s.FileSize),
		Duration: s.SimpleSong.Duration,
	}

	if s.AddTime > 0 {
		song.AddedAt = time.UnixMilli(int64(s.AddTime))
	}
	if s.SimpleSong.Name != "" {
		song.Name = s.SimpleSong.Name
	}

	names := make([]string, 0, len(s.SimpleSong.Artists))
	for _, ar := range s.SimpleSong.Artists {
		if ar.Name != "" {
			names = append(names, ar.Name)
		}
	}
	if len(names) > 0 {
		song.Artist = strings.Join(names, "/")
	}

	if al := s.SimpleSong.Album; al != nil {
		if al.Name != "" {
			song.Album = al.Name
		}
		song.CoverURL = al.PicURL
	}
	return song
}

// NetEaseService implements [CloudService] against the proxy.
type NetEaseService struct {
	api *APIService
}

// NewNetEaseService creates a new NetEase service backed by api.
func NewNetEaseService(api *APIService) *NetEaseService {
	if api == nil {
		api = NewAPIService("", nil, APIOptions{})
	}
	return &NetEaseService{api: api}
}

// Name returns the service name.
func (n *NetEaseService) Name() string {
	return "NetEase Cloud Music"
}

// API exposes the underlying transport for raw requests.
func (n *NetEaseService) API() *APIService {
	return n.api
}

// Authenticate stores the session cookie for subsequent requests.
//
// Expects credentials["cookie"] to contain the cookie issued by a confirmed QR login.
func (n *NetEaseService) Authenticate(ctx context.Context, credentials map[string]string) error {
	cookie, ok := credentials["cookie"]
	if !ok || strings.TrimSpace(cookie) == "" {
		return fmt.Errorf("%w: missing cookie in credentials", shared.ErrMissingArgument)
	}

	n.api.SetCookie(cookie)
	return nil
}

// ClearCredentials drops the session cookie locally.
func (n *NetEaseService) ClearCredentials() {
	n.api.ClearCookie()
}

// CreateLoginKey calls /login/qr/key.
func (n *NetEaseService) CreateLoginKey(ctx context.Context) (string, error) {
	var resp struct {
		Data struct {
			Code   int    `json:"code"`
			UniKey string `json:"unikey"`
		} `json:"data"`
	}

	env, err := n.api.Call(ctx, "/login/qr/key", nil, &resp)
	if err != nil {
		return "", err
	}
	if resp.Data.UniKey == "" {
		return "", fmt.Errorf("%w: no login key in response (code %d)", shared.ErrAPIRequest, env.Code)
	}
	return resp.Data.UniKey, nil
}

// QRLoginURL calls /login/qr/create and returns the URL to encode.
func (n *NetEaseService) QRLoginURL(ctx context.Context, key string) (string, error) {
	var resp struct {
		Data struct {
			QRURL string `json:"qrurl"`
		} `json:"data"`
	}

	env, err := n.api.Call(ctx, "/login/qr/create", url.Values{"key": {key}}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Data.QRURL == "" {
		return "", fmt.Errorf("%w: no QR url in response (code %d)", shared.ErrAPIRequest, env.Code)
	}
	return resp.Data.QRURL, nil
}

// CheckLogin calls /login/qr/check and maps the status code onto a ticket state.
func (n *NetEaseService) CheckLogin(ctx context.Context, key string) (*LoginCheck, error) {
	var resp struct {
		Cookie   string `json:"cookie"`
		Nickname string `json:"nickname"`
	}

	env, err := n.api.Call(ctx, "/login/qr/check", url.Values{"key": {key}}, &resp)
	if err != nil {
		return nil, err
	}

	check := &LoginCheck{Code: env.Code, Message: env.Text(), Nickname: resp.Nickname}
	switch env.Code {
	case qrExpired:
		check.State = models.TicketExpired
	case qrWaiting:
		check.State = models.TicketPending
	case qrScanned:
		check.State = models.TicketScanned
	case qrConfirmed:
		if resp.Cookie == "" {
			return nil, fmt.Errorf("%w: login confirmed without a cookie", shared.ErrAPIRequest)
		}
		check.State = models.TicketConfirmed
		check.Cookie = resp.Cookie
	default:
		return nil, fmt.Errorf("%w: unexpected login status %d: %s", shared.ErrAPIRequest, env.Code, env.Text())
	}
	return check, nil
}

// Account calls /user/account.
//
// A missing profile means the cookie is not (or no longer) valid.
func (n *NetEaseService) Account(ctx context.Context) (*models.Identity, error) {
	var resp struct {
		Profile *struct {
			UserID    int64  `json:"userId"`
			Nickname  string `json:"nickname"`
			AvatarURL string `json:"avatarUrl"`
		} `json:"profile"`
	}

	env, err := n.api.Call(ctx, "/user/account", nil, &resp)
	if err != nil {
		return nil, err
	}
	if env.Code != codeOK {
		return nil, fmt.Errorf("%w: account lookup returned code %d: %s", shared.ErrAPIRequest, env.Code, env.Text())
	}
	if resp.Profile == nil {
		return nil, fmt.Errorf("%w: no profile for current session", shared.ErrAuth)
	}

	return &models.Identity{
		UserID:    resp.Profile.UserID,
		Nickname:  resp.Profile.Nickname,
		AvatarURL: resp.Profile.AvatarURL,
	}, nil
}

// CloudSongs calls /user/cloud.
func (n *NetEaseService) CloudSongs(ctx context.Context, limit, offset int) (*CloudPage, error) {
	var resp struct {
		Data    []NetEaseCloudSong `json:"data"`
		Count   flexInt64          `json:"count"`
		Size    flexInt64          `json:"size"`
		MaxSize flexInt64          `json:"maxSize"`
		HasMore bool               `json:"hasMore"`
	}

	params := url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}

	env, err := n.api.Call(ctx, "/user/cloud", params, &resp)
	if err != nil {
		return nil, err
	}
	if env.Code != codeOK {
		return nil, fmt.Errorf("%w: cloud listing returned code %d: %s", shared.ErrAPIRequest, env.Code, env.Text())
	}

	songs := make([]models.CloudSong, len(resp.Data))
	for i, s := range resp.Data {
		songs[i] = s.ToModel()
	}

	return &CloudPage{
		Songs:   songs,
		Total:   int(resp.Count),
		Usage:   models.Usage{UsedBytes: int64(resp.Size), CapacityBytes: int64(resp.MaxSize)},
		HasMore: resp.HasMore,
	}, nil
}

// MatchCloudSong calls /cloud/match.
//
// Any answer other than code 200 is a rejection carrying the provider's message.
func (n *NetEaseService) MatchCloudSong(ctx context.Context, uid int64, songID, targetID string) error {
	params := url.Values{
		"uid":  {strconv.FormatInt(uid, 10)},
		"sid":  {songID},
		"asid": {targetID},
	}

	env, err := n.api.Call(ctx, "/cloud/match", params, nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && errors.Is(err, shared.ErrAPIRequest) {
			return &shared.MatchError{SongID: songID, TargetID: targetID, Reason: rejectionReason(apiErr.Message, apiErr.Code)}
		}
		return err
	}

	if env.Code != codeOK {
		return &shared.MatchError{SongID: songID, TargetID: targetID, Reason: rejectionReason(env.Text(), env.Code)}
	}
	return nil
}

// Logout calls /logout and always forgets the local cookie.
func (n *NetEaseService) Logout(ctx context.Context) error {
	defer n.api.ClearCookie()

	if n.api.Cookie() == "" {
		return nil
	}
	if _, err := n.api.Call(ctx, "/logout", nil, nil); err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	return nil
}

func rejectionReason(msg string, code int) string {
	if msg != "" {
		return msg
	}
	return fmt.Sprintf("provider returned code %d", code)
}

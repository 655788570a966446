// package services defines the provider boundary for the NetEase cloud drive
//
// Requests go through a NeteaseCloudMusicApi compatible HTTP proxy.
package services

import (
	"context"

	"github.com/desertthunder/cloudmatch/internal/models"
)

// LoginService covers the QR login handshake and session lifecycle.
type LoginService interface {
	// Authenticate applies session credentials to subsequent requests.
	// Expects credentials["cookie"].
	Authenticate(ctx context.Context, credentials map[string]string) error

	// ClearCredentials forgets local credentials without contacting the provider.
	ClearCredentials()

	// CreateLoginKey requests a fresh QR login key.
	CreateLoginKey(ctx context.Context) (string, error)

	// QRLoginURL returns the payload to encode in the QR code for key.
	QRLoginURL(ctx context.Context, key string) (string, error)

	// CheckLogin reports the provider's view of the ticket for key.
	CheckLogin(ctx context.Context, key string) (*LoginCheck, error)

	// Account returns the authenticated identity.
	Account(ctx context.Context) (*models.Identity, error)

	// Logout ends the provider session and forgets local credentials.
	Logout(ctx context.Context) error
}

// LibraryService lists the cloud drive.
type LibraryService interface {
	// CloudSongs returns up to limit songs starting at offset.
	CloudSongs(ctx context.Context, limit, offset int) (*CloudPage, error)
}

// MatchService binds a cloud song to a catalog id.
type MatchService interface {
	// MatchCloudSong asks the provider to match songID to targetID for user uid.
	// A provider rejection is returned as a [shared.MatchError].
	MatchCloudSong(ctx context.Context, uid int64, songID, targetID string) error
}

// CloudService is the full provider surface used by the client.
type CloudService interface {
	LoginService
	LibraryService
	MatchService

	// Name returns the name of the service
	Name() string
}

// LoginCheck is the result of one QR status poll.
type LoginCheck struct {
	State    models.TicketState
	Code     int
	Cookie   string // Only set when State is confirmed
	Nickname string // Set once the code has been scanned
	Message  string
}

// CloudPage is one page of the cloud drive plus the drive totals.
type CloudPage struct {
	Songs   []models.CloudSong
	Total   int
	Usage   models.Usage
	HasMore bool
}

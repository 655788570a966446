// package models defines the data model for the cloud match client
package models

import (
	"fmt"
	"time"
)

// MatchKind enumerates the states of a [MatchStatus].
type MatchKind int

const (
	NotMatched MatchKind = iota
	Matched
	MatchFailed
)

func (k MatchKind) String() string {
	switch k {
	case NotMatched:
		return "not_matched"
	case Matched:
		return "matched"
	case MatchFailed:
		return "failed"
	default:
		return ""
	}
}

// MatchStatus is a tagged value describing the outcome of the last match for a [CloudSong].
//
// Reason is only meaningful when Kind is [MatchFailed].
type MatchStatus struct {
	Kind   MatchKind `json:"kind"`
	Reason string    `json:"reason,omitempty"`
}

// StatusMatched returns the [Matched] status.
func StatusMatched() MatchStatus { return MatchStatus{Kind: Matched} }

// StatusFailed returns a [MatchFailed] status carrying reason.
func StatusFailed(reason string) MatchStatus {
	return MatchStatus{Kind: MatchFailed, Reason: reason}
}

func (s MatchStatus) String() string {
	if s.Kind == MatchFailed {
		return fmt.Sprintf("failed(%s)", s.Reason)
	}
	return s.Kind.String()
}

// CloudSong is one track uploaded to the user's cloud drive.
//
// ID is rewritten only by a successful match.
type CloudSong struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Artist   string      `json:"artist"`
	Album    string      `json:"album"`
	CoverURL string      `json:"cover_url"`
	FileName string      `json:"file_name"`
	AddedAt  time.Time   `json:"added_at"`
	FileSize int64       `json:"file_size"`
	Duration int         `json:"duration_ms"` // Duration in milliseconds
	Status   MatchStatus `json:"status"`
}

// Usage describes cloud drive consumption in bytes.
type Usage struct {
	UsedBytes     int64 `json:"used_bytes"`
	CapacityBytes int64 `json:"capacity_bytes"`
}

// Identity is the authenticated user together with their drive usage.
type Identity struct {
	UserID    int64  `json:"user_id"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url"`
	Usage
}

// LogStatus classifies a [MatchLogEntry].
type LogStatus string

const (
	LogSuccess LogStatus = "success"
	LogFailed  LogStatus = "failed"
	LogInfo    LogStatus = "info"
)

// MatchLogEntry is an immutable record of a match attempt or a related user action.
type MatchLogEntry struct {
	ID          string    `json:"id"`
	SongName    string    `json:"song_name"`
	CloudSongID string    `json:"cloud_song_id"`
	MatchSongID string    `json:"match_song_id"`
	Message     string    `json:"message,omitempty"` // Empty on bare success
	Status      LogStatus `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

// Success reports whether the entry records a successful match.
func (e MatchLogEntry) Success() bool { return e.Status == LogSuccess }

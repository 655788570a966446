package models

import "time"

// TicketState is the lifecycle state of a [LoginTicket].
type TicketState int

const (
	TicketPending TicketState = iota
	TicketScanned
	TicketConfirmed
	TicketExpired
)

func (s TicketState) String() string {
	switch s {
	case TicketPending:
		return "pending"
	case TicketScanned:
		return "scanned"
	case TicketConfirmed:
		return "confirmed"
	case TicketExpired:
		return "expired"
	default:
		return ""
	}
}

// Terminal reports whether no further transitions are possible.
func (s TicketState) Terminal() bool {
	return s == TicketConfirmed || s == TicketExpired
}

// CanTransition reports whether moving from s to next is a legal step.
//
// Re-entering the current state is allowed for pending and scanned since the
// provider repeats the same status on every poll.
func (s TicketState) CanTransition(next TicketState) bool {
	switch s {
	case TicketPending:
		return true
	case TicketScanned:
		return next != TicketPending
	default:
		return false
	}
}

// LoginTicket is a transient QR login handshake.
type LoginTicket struct {
	Key       string      `json:"key"`
	URL       string      `json:"url"` // QR payload
	QRCode    []byte      `json:"-"`   // PNG rendering of URL
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
	State     TicketState `json:"state"`
}

// Expired reports whether the ticket is past its local expiry at now.
func (t LoginTicket) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/cloudmatch/internal/auth"
	"github.com/desertthunder/cloudmatch/internal/cloud"
	"github.com/desertthunder/cloudmatch/internal/models"
	"github.com/desertthunder/cloudmatch/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgLoginStarted MsgKind = iota
	MsgTicketUpdated
	MsgLoginFinished
	MsgPageLoaded
	MsgStoreChanged
	MsgLogChanged
	MsgMatchDone
	MsgCopied
	MsgBrowserOpened
	MsgCoversPrefetched
	MsgLoggedOut
)

type loginStarted struct {
	attempt *auth.Attempt
	err     error
}

type ticketUpdated struct {
	attempt *auth.Attempt
	ticket  models.LoginTicket
}

type loginFinished struct {
	attempt *auth.Attempt
	result  auth.Result
}

type pageLoaded struct {
	result *cloud.PageResult
	err    error
}

type matchDone struct {
	songID  string
	outcome *tasks.MatchOutcome
	err     error
}

type copied struct {
	song  models.CloudSong
	label string
	err   error
}

// loginStartedMsg is the constructor for [MsgLoginStarted]
func loginStartedMsg(a *auth.Attempt, err error) Msg {
	return Msg{kind: MsgLoginStarted, data: loginStarted{a, err}}
}

// ticketUpdatedMsg is the constructor for [MsgTicketUpdated]
func ticketUpdatedMsg(a *auth.Attempt, t models.LoginTicket) Msg {
	return Msg{kind: MsgTicketUpdated, data: ticketUpdated{a, t}}
}

// loginFinishedMsg is the constructor for [MsgLoginFinished]
func loginFinishedMsg(a *auth.Attempt, r auth.Result) Msg {
	return Msg{kind: MsgLoginFinished, data: loginFinished{a, r}}
}

// pageLoadedMsg is the constructor for [MsgPageLoaded]
func pageLoadedMsg(r *cloud.PageResult, err error) Msg {
	return Msg{kind: MsgPageLoaded, data: pageLoaded{r, err}}
}

// storeChangedMsg is the constructor for [MsgStoreChanged]
func storeChangedMsg(c cloud.Change) Msg {
	return Msg{kind: MsgStoreChanged, data: c}
}

// logChangedMsg is the constructor for [MsgLogChanged]
func logChangedMsg() Msg {
	return Msg{kind: MsgLogChanged}
}

// matchDoneMsg is the constructor for [MsgMatchDone]
func matchDoneMsg(songID string, o *tasks.MatchOutcome, err error) Msg {
	return Msg{kind: MsgMatchDone, data: matchDone{songID, o, err}}
}

// copiedMsg is the constructor for [MsgCopied]
func copiedMsg(song models.CloudSong, label string, err error) Msg {
	return Msg{kind: MsgCopied, data: copied{song, label, err}}
}

// browserOpenedMsg is the constructor for [MsgBrowserOpened]
func browserOpenedMsg(err error) Msg {
	return Msg{kind: MsgBrowserOpened, data: err}
}

// coversPrefetchedMsg is the constructor for [MsgCoversPrefetched]
func coversPrefetchedMsg(err error) Msg {
	return Msg{kind: MsgCoversPrefetched, data: err}
}

// loggedOutMsg is the constructor for [MsgLoggedOut]
func loggedOutMsg(err error) Msg {
	return Msg{kind: MsgLoggedOut, data: err}
}

package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/cloudmatch/internal/auth"
	"github.com/desertthunder/cloudmatch/internal/cloud"
	"github.com/desertthunder/cloudmatch/internal/formatter"
	"github.com/desertthunder/cloudmatch/internal/imagecache"
	"github.com/desertthunder/cloudmatch/internal/matchlog"
	"github.com/desertthunder/cloudmatch/internal/models"
	"github.com/desertthunder/cloudmatch/internal/shared"
	"github.com/desertthunder/cloudmatch/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoginView ViewState = iota
	LibraryView
)

// inputMode is what keystrokes in the library view go to.
type inputMode int

const (
	browsing inputMode = iota
	searching
	matching
)

const (
	pageWindow  = 3
	logPaneRows = 6
)

// Clipboard is the system clipboard.
type Clipboard interface {
	WriteAll(text string) error
	ReadAll() (string, error)
}

type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }
func (systemClipboard) ReadAll() (string, error)   { return clipboard.ReadAll() }

// Deps are the collaborators driven by the TUI.
type Deps struct {
	Session   *auth.Session
	Store     *cloud.Store
	Matcher   *tasks.Matcher
	Log       *matchlog.Log
	Images    *imagecache.Cache // optional
	Clipboard Clipboard         // defaults to the system clipboard
	OpenURL   func(string) error
	Logger    *log.Logger
}

// Model represents the TUI application state.
type Model struct {
	ctx  context.Context
	deps Deps

	view   ViewState
	mode   inputMode
	width  int
	height int

	attempt *auth.Attempt
	ticket  *models.LoginTicket
	qr      string

	snapshot cloud.Snapshot
	visible  []models.CloudSong
	query    string
	sortIdx  int
	loading  bool
	matching map[string]bool

	table  table.Model
	search textinput.Model
	target textinput.Model
	help   help.Model
	keys   keyMap

	status    string
	statusErr bool
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, deps Deps) *Model {
	if deps.Clipboard == nil {
		deps.Clipboard = systemClipboard{}
	}
	if deps.OpenURL == nil {
		deps.OpenURL = shared.OpenBrowser
	}
	if deps.Logger == nil {
		deps.Logger = shared.NewLogger(io.Discard)
	}
	deps.Logger = shared.WithLogger(deps.Logger, "component", "ui")

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "name, artist or album"

	target := textinput.New()
	target.Prompt = "match id: "
	target.Placeholder = "catalog song id"
	target.CharLimit = 20

	t := table.New(
		table.WithColumns(songColumns(120)),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	return &Model{
		ctx:      ctx,
		deps:     deps,
		view:     LoginView,
		matching: make(map[string]bool),
		table:    t,
		search:   search,
		target:   target,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init starts listening for store and log changes, then either shows the
// library of an existing session or begins a QR login.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForStore(), m.waitForLog()}
	if m.deps.Session.Authenticated() {
		m.view = LibraryView
		m.syncSnapshot()
		if !m.snapshot.Loaded {
			cmds = append(cmds, m.refresh())
		}
	} else {
		cmds = append(cmds, m.startLogin())
	}
	return tea.Batch(cmds...)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetColumns(songColumns(msg.Width))
		m.table.SetHeight(max(msg.Height-logPaneRows-12, 5))
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case LoginView:
			return m.handleLoginKeys(msg)
		default:
			return m.handleLibraryKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgLoginStarted:
		d := msg.data.(loginStarted)
		if d.err != nil {
			m.setError(fmt.Errorf("could not start login: %w", d.err))
			return m, nil
		}
		m.attempt = d.attempt
		m.setTicket(d.attempt.Ticket())
		m.setStatus("scan the QR code with the NetEase Cloud Music app")
		return m, m.waitForAttempt(d.attempt)

	case MsgTicketUpdated:
		d := msg.data.(ticketUpdated)
		if d.attempt != m.attempt {
			return m, nil
		}
		m.setTicket(d.ticket)
		if d.ticket.State == models.TicketScanned {
			m.setStatus("scanned, confirm the login on your phone")
		}
		return m, m.waitForAttempt(d.attempt)

	case MsgLoginFinished:
		d := msg.data.(loginFinished)
		if d.attempt != m.attempt {
			return m, nil
		}
		m.attempt = nil
		return m.finishLogin(d.result)

	case MsgPageLoaded:
		d := msg.data.(pageLoaded)
		m.loading = false
		if d.err != nil {
			if errors.Is(d.err, shared.ErrSuperseded) {
				return m, nil
			}
			m.setError(fmt.Errorf("failed to load songs: %w", d.err))
			return m, nil
		}
		m.syncSnapshot()
		if d.result.Clamped {
			m.setStatus(fmt.Sprintf("page %d is past the end, showing page %d", d.result.Requested, d.result.Page.Number))
		} else {
			m.setStatus(fmt.Sprintf("loaded %s", formatter.SongCount(len(d.result.Songs))))
		}
		return m, m.prefetchCovers(d.result.Songs)

	case MsgStoreChanged:
		m.syncSnapshot()
		return m, m.waitForStore()

	case MsgLogChanged:
		return m, m.waitForLog()

	case MsgMatchDone:
		d := msg.data.(matchDone)
		delete(m.matching, d.songID)
		m.syncSnapshot()
		switch {
		case d.outcome != nil && d.err == nil:
			m.setStatus(d.outcome.Message)
		case d.outcome != nil:
			m.setError(errors.New(d.outcome.Message))
		default:
			m.setError(d.err)
		}
		if errors.Is(d.err, shared.ErrAuth) {
			return m, m.logout()
		}
		return m, nil

	case MsgCopied:
		d := msg.data.(copied)
		if d.err != nil {
			m.setError(fmt.Errorf("copy failed: %w", d.err))
			return m, nil
		}
		m.deps.Matcher.NoteCopied(d.song)
		m.setStatus(fmt.Sprintf("copied %q", d.label))
		return m, nil

	case MsgBrowserOpened:
		if err, _ := msg.data.(error); err != nil {
			m.setError(err)
		}
		return m, nil

	case MsgCoversPrefetched:
		if err, _ := msg.data.(error); err != nil && !errors.Is(err, context.Canceled) {
			m.deps.Logger.Warn("cover prefetch stopped", "error", err)
		}
		return m, nil

	case MsgLoggedOut:
		if err, _ := msg.data.(error); err != nil {
			m.deps.Logger.Warn("logout incomplete", "error", err)
		}
		return m.toLogin()
	}
	return m, nil
}

func (m *Model) finishLogin(r auth.Result) (tea.Model, tea.Cmd) {
	switch {
	case r.Err == nil:
		m.view = LibraryView
		m.ticket = nil
		m.qr = ""
		m.syncSnapshot()
		m.setStatus(fmt.Sprintf("logged in as %s", r.Identity.Nickname))
		if !m.snapshot.Loaded {
			return m, m.refresh()
		}
		return m, m.prefetchCovers(m.snapshot.Songs)
	case errors.Is(r.Err, shared.ErrTicketExpired):
		m.setError(errors.New("QR code expired, press r for a new one"))
	case errors.Is(r.Err, shared.ErrLoginSuperseded), errors.Is(r.Err, context.Canceled):
	default:
		m.setError(fmt.Errorf("login failed: %w", r.Err))
	}
	return m, nil
}

// toLogin returns to the QR view once the session is gone.
func (m *Model) toLogin() (tea.Model, tea.Cmd) {
	if m.deps.Session.Authenticated() {
		return m, nil
	}
	m.view = LoginView
	m.mode = browsing
	m.ticket = nil
	m.qr = ""
	return m, m.startLogin()
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		return m, m.startLogin()
	}
	return m, nil
}

func (m *Model) handleLibraryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	switch m.mode {
	case searching:
		return m.handleSearchKeys(msg)
	case matching:
		return m.handleMatchKeys(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.search):
		m.mode = searching
		m.search.SetValue(m.query)
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.match):
		if _, ok := m.selected(); !ok {
			return m, nil
		}
		m.mode = matching
		m.target.SetValue("")
		return m, m.target.Focus()
	case key.Matches(msg, m.keys.next):
		return m, m.gotoPage(m.snapshot.Page.Number + 1)
	case key.Matches(msg, m.keys.prev):
		return m, m.gotoPage(m.snapshot.Page.Number - 1)
	case key.Matches(msg, m.keys.refresh):
		m.loading = true
		return m, m.refresh()
	case key.Matches(msg, m.keys.sort):
		m.cycleSort()
		return m, nil
	case key.Matches(msg, m.keys.copy):
		if song, ok := m.selected(); ok {
			return m, m.copyLabel(song)
		}
		return m, nil
	case key.Matches(msg, m.keys.open):
		if song, ok := m.selected(); ok {
			return m, m.openSearch(song)
		}
		return m, nil
	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	case key.Matches(msg, m.keys.back):
		if m.query != "" {
			m.applyFilter("")
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.search.Blur()
		m.mode = browsing
		m.applyFilter("")
		return m, nil
	case tea.KeyEnter:
		m.search.Blur()
		m.mode = browsing
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.applyFilter(m.search.Value())
	return m, cmd
}

func (m *Model) handleMatchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.target.Blur()
		m.mode = browsing
		return m, nil
	case tea.KeyEnter:
		song, ok := m.selected()
		target := strings.TrimSpace(m.target.Value())
		m.target.Blur()
		m.mode = browsing
		if !ok {
			return m, nil
		}
		if target == "" {
			m.setError(errors.New("enter the catalog id to match"))
			return m, nil
		}
		return m, m.performMatch(song, target)
	}

	var cmd tea.Cmd
	m.target, cmd = m.target.Update(msg)
	return m, cmd
}

// syncSnapshot reloads the page from the store and re-applies the filter.
func (m *Model) syncSnapshot() {
	m.snapshot = m.deps.Store.Snapshot()
	m.applyFilter(m.query)
}

func (m *Model) applyFilter(query string) {
	m.query = query
	if strings.TrimSpace(query) == "" {
		m.visible = m.snapshot.Songs
	} else {
		m.visible = m.deps.Store.Search(query)
	}

	offset := 0
	if m.query == "" {
		offset = (m.snapshot.Page.Number - 1) * m.snapshot.Page.Size
	}
	cursor := m.table.Cursor()
	m.table.SetRows(songRows(m.visible, max(offset, 0)))
	if cursor >= len(m.visible) {
		cursor = max(len(m.visible)-1, 0)
	}
	m.table.SetCursor(cursor)
}

func (m *Model) selected() (models.CloudSong, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.visible) {
		return models.CloudSong{}, false
	}
	return m.visible[i], true
}

func (m *Model) cycleSort() {
	m.sortIdx = (m.sortIdx + 1) % len(cloud.SortFields)
	field := cloud.SortFields[m.sortIdx]
	k := cloud.SortKey{Field: field, Desc: field == cloud.SortAdded}
	m.deps.Store.ApplySort(k)
	m.syncSnapshot()
	m.setStatus("sorted by " + k.String())
}

func (m *Model) setTicket(t models.LoginTicket) {
	m.ticket = &t
	qr, err := auth.RenderTerminalQR(t.URL)
	if err != nil {
		m.deps.Logger.Warn("failed to render QR code", "error", err)
		qr = t.URL
	}
	m.qr = qr
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.status = err.Error()
	m.statusErr = true
	m.deps.Logger.Warn(err.Error())
}

func (m *Model) startLogin() tea.Cmd {
	return func() tea.Msg {
		a, err := m.deps.Session.StartLogin(m.ctx)
		return loginStartedMsg(a, err)
	}
}

// waitForAttempt delivers the next ticket update or the final result.
func (m *Model) waitForAttempt(a *auth.Attempt) tea.Cmd {
	return func() tea.Msg {
		select {
		case t := <-a.Updates():
			return ticketUpdatedMsg(a, t)
		case r := <-a.Result():
			return loginFinishedMsg(a, r)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) waitForStore() tea.Cmd {
	return func() tea.Msg {
		select {
		case c := <-m.deps.Store.Changes():
			return storeChangedMsg(c)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) waitForLog() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.deps.Log.Changes():
			return logChangedMsg()
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) refresh() tea.Cmd {
	return func() tea.Msg {
		res, err := m.deps.Store.Refresh(m.ctx)
		return pageLoadedMsg(res, err)
	}
}

func (m *Model) gotoPage(n int) tea.Cmd {
	if !m.snapshot.Loaded || n < 1 || n > m.snapshot.Page.TotalPages() || n == m.snapshot.Page.Number {
		return nil
	}
	m.loading = true
	size := m.deps.Store.PageSize()
	return func() tea.Msg {
		res, err := m.deps.Store.FetchPage(m.ctx, n, size)
		return pageLoadedMsg(res, err)
	}
}

func (m *Model) performMatch(song models.CloudSong, target string) tea.Cmd {
	if m.matching[song.ID] {
		m.setError(fmt.Errorf("%q is already being matched", song.Name))
		return nil
	}
	m.matching[song.ID] = true
	m.setStatus(fmt.Sprintf("matching %q to %s...", song.Name, target))
	return func() tea.Msg {
		outcome, err := m.deps.Matcher.PerformMatch(m.ctx, song.ID, target)
		return matchDoneMsg(song.ID, outcome, err)
	}
}

// copyLabel writes the search label and reads it back, since some
// clipboard backends fail silently.
func (m *Model) copyLabel(song models.CloudSong) tea.Cmd {
	cb := m.deps.Clipboard
	label := tasks.CopyLabel(song)
	return func() tea.Msg {
		if err := cb.WriteAll(label); err != nil {
			return copiedMsg(song, label, err)
		}
		got, err := cb.ReadAll()
		if err != nil {
			return copiedMsg(song, label, err)
		}
		if got != label {
			return copiedMsg(song, label, errors.New("clipboard content did not match"))
		}
		return copiedMsg(song, label, nil)
	}
}

func (m *Model) openSearch(song models.CloudSong) tea.Cmd {
	url := shared.CatalogSearchURL(tasks.CopyLabel(song))
	open := m.deps.OpenURL
	return func() tea.Msg {
		return browserOpenedMsg(open(url))
	}
}

func (m *Model) prefetchCovers(songs []models.CloudSong) tea.Cmd {
	if m.deps.Images == nil {
		return nil
	}
	urls := coverURLs(songs)
	if id := m.deps.Session.Identity(); id != nil && id.AvatarURL != "" {
		urls = append(urls, thumbnail(id.AvatarURL))
	}
	if len(urls) == 0 {
		return nil
	}
	images := m.deps.Images
	return func() tea.Msg {
		return coversPrefetchedMsg(images.Prefetch(m.ctx, urls))
	}
}

func (m *Model) logout() tea.Cmd {
	return func() tea.Msg {
		return loggedOutMsg(m.deps.Session.Logout(m.ctx))
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case LoginView:
		return m.renderLogin()
	default:
		return m.renderLibrary()
	}
}

func (m *Model) renderLogin() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Log in to NetEase Cloud Music"))
	b.WriteString("\n")

	if m.ticket != nil {
		b.WriteString(m.qr)
		b.WriteString("\n")
		fmt.Fprintf(&b, "ticket: %s\n", m.ticket.State)
	} else {
		b.WriteString("requesting a QR code...\n")
	}

	b.WriteString("\n" + m.renderStatus() + "\n\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "new code")),
		m.keys.quit,
	}))
	return b.String()
}

func (m *Model) renderLibrary() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")
	b.WriteString(m.renderPager())
	b.WriteString("\n")

	switch m.mode {
	case searching:
		b.WriteString(m.search.View() + "\n")
	case matching:
		if song, ok := m.selected(); ok {
			fmt.Fprintf(&b, "%s\n", styles.help.Render("matching "+tasks.CopyLabel(song)))
		}
		b.WriteString(m.target.View() + "\n")
	default:
		if m.query != "" {
			b.WriteString(styles.help.Render(fmt.Sprintf("filter: %q (esc to clear)", m.query)) + "\n")
		}
		b.WriteString(m.renderSelection() + "\n")
	}

	b.WriteString(m.renderStatus() + "\n")
	b.WriteString(m.renderLog())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderHeader() string {
	id := m.deps.Session.Identity()
	if id == nil {
		return styles.title.Render("cloudmatch")
	}
	usage := m.snapshot.Usage
	if usage.CapacityBytes == 0 {
		usage = id.Usage
	}
	return styles.title.Render(fmt.Sprintf("%s  %s / %s  %s",
		id.Nickname,
		shared.FormatCapacity(usage.UsedBytes),
		shared.FormatCapacity(usage.CapacityBytes),
		formatter.SongCount(m.snapshot.Page.Total),
	))
}

func (m *Model) renderPager() string {
	if !m.snapshot.Loaded {
		if m.loading {
			return styles.help.Render("loading...")
		}
		return ""
	}

	p := m.snapshot.Page
	parts := make([]string, 0, pageWindow+2)
	for _, n := range p.Range(pageWindow) {
		label := fmt.Sprintf("%d", n)
		if n == p.Number {
			label = styles.page.Render(label)
		}
		parts = append(parts, label)
	}
	line := fmt.Sprintf("page %s of %d  sort %s", strings.Join(parts, " "), p.TotalPages(), cloud.FormatSortKeys(m.snapshot.Sort))
	if m.loading {
		line += "  loading..."
	}
	return styles.help.Render(line)
}

func (m *Model) renderSelection() string {
	song, ok := m.selected()
	if !ok {
		return styles.help.Render("no songs")
	}
	line := fmt.Sprintf("%s  file: %s", tasks.CopyLabel(song), song.FileName)
	if m.deps.Images != nil {
		if img, ok := m.deps.Images.Get(thumbnail(song.CoverURL)); ok && img.Width > 0 {
			line += fmt.Sprintf("  cover: %dx%d %s", img.Width, img.Height, img.Format)
		}
	}
	if m.matching[song.ID] {
		line += "  (matching...)"
	}
	return styles.help.Render(line)
}

func (m *Model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return styles.err.Render(m.status)
	}
	return styles.ok.Render(m.status)
}

// renderLog shows the newest entries, newest last and highlighted.
func (m *Model) renderLog() string {
	entries := m.deps.Log.Entries()
	if len(entries) == 0 {
		return styles.pane.Render(styles.help.Render("no matches yet"))
	}
	if len(entries) > logPaneRows {
		entries = entries[len(entries)-logPaneRows:]
	}

	lines := make([]string, len(entries))
	for i, e := range entries {
		style := styles.entryStyle(e.Status)
		if i == len(entries)-1 {
			style = style.Inherit(styles.latest)
		}
		lines[i] = style.Render(formatter.LogEntryLine(e))
	}
	return styles.pane.Render(strings.Join(lines, "\n"))
}

package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	match   key.Binding
	search  key.Binding
	next    key.Binding
	prev    key.Binding
	sort    key.Binding
	copy    key.Binding
	open    key.Binding
	refresh key.Binding
	logout  key.Binding
	back    key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		match:   key.NewBinding(key.WithKeys("enter", "m"), key.WithHelp("enter", "match")),
		search:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		next:    key.NewBinding(key.WithKeys("n", "right"), key.WithHelp("n", "next page")),
		prev:    key.NewBinding(key.WithKeys("p", "left"), key.WithHelp("p", "prev page")),
		sort:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		copy:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy name")),
		open:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "search web")),
		refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		logout:  key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "logout")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.match, k.search, k.next, k.prev, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.match, k.search},
		{k.next, k.prev, k.sort, k.refresh},
		{k.copy, k.open, k.logout, k.quit},
	}
}

// Package ui implements the interactive terminal client using bubbletea's Elm architecture.
//
// The TUI has two views:
//  1. [LoginView] : QR code rendered in the terminal, tracking the ticket until the phone confirms
//  2. [LibraryView] : one page of the cloud drive in a table, with a filter, a match input and the match log
//
// Every asynchronous completion (ticket updates, page loads, match results, store and log changes)
// arrives as a [Msg] and is applied by [Model.Update], so the model is only touched from the
// bubbletea loop.
//
// Keys: j/k move, enter matches the selected song, / filters the page, n/p change page,
// s cycles the sort column, c copies the search label, o opens a catalog search in the
// browser, r refreshes, L logs out and q quits.
package ui

// Package models defines the domain values shared by the cloud match engine and its presentation layers.
//
// Session values:
//   - [Identity] : the authenticated account and its drive [Usage]
//   - [LoginTicket] : a QR login handshake moving through [TicketState]
//
// Library values:
//   - [CloudSong] : an uploaded track with its [MatchStatus]
//   - [Page] : the window of songs loaded from the drive, with pagination math
//   - [MatchLogEntry] : an append-only record of a match attempt
//
// Types here carry no behavior beyond small derived accessors; ownership and
// mutation live in the auth, cloud, tasks and matchlog packages.
package models

// Package tasks implements the match workflow for cloud songs.
//
// # Matching
//
// [Matcher.PerformMatch] sends one match request and reconciles the result:
//
//  1. Rejects blank targets and concurrent calls for the same song up front
//  2. Sends the request with the logged-in user's id
//  3. On success rewrites the song's id and marks it matched in the current page
//  4. On failure marks the song failed with the provider's reason
//  5. Appends exactly one entry to the match log either way
//
// The page is updated in place with the version read before the request. If
// the page was replaced while the request was in flight the update is dropped
// and [MatchOutcome.Applied] is false; the log entry is still written.
//
// # Bulk Matching
//
// [Matcher.BulkMatch] feeds [MatchJob] values through a worker pool with its
// own rate limit and reports progress on a non-blocking [ProgressUpdate]
// channel. Jobs are usually read from CSV with [ParseMatchJobs].
//
// # Clipboard Labels
//
// [CopyLabel] builds the text a user pastes into the catalog search, and
// [Matcher.NoteCopied] records the copy as an info entry.
package tasks

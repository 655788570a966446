// Package services defines the provider interfaces used by the session, the
// library store and the matcher, and implements them for NetEase Cloud Music.
//
// # Service Interfaces
//
// [CloudService] is the union of three narrow interfaces so each consumer
// depends only on what it calls:
//   - [LoginService]: QR key creation, ticket polling, cookie credentials and the account lookup
//   - [LibraryService]: paged cloud drive listing
//   - [MatchService]: binding a cloud song to a catalog id
//
// # NetEase Implementation
//
// [NetEaseService] talks to a NeteaseCloudMusicApi compatible proxy through
// [APIService], which owns the HTTP client, the session cookie, a token bucket
// rate limiter and request metrics. The cookie is sent as a query parameter on
// every request, the way the proxy expects it.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNetwork] : transport failure, with [shared.ErrTimeout] for deadlines
//   - [shared.ErrAuth] : provider code 301 or a missing profile
//   - [shared.ErrAPIRequest] : any other answer that cannot be treated as success
//   - [shared.MatchError] : a rejected match and the provider's reason
//
// # API Mappings
//
// [NetEaseCloudSong.ToModel] prefers the resolved simpleSong metadata over the
// uploaded file's tags and tolerates ids and sizes encoded as strings.
package services

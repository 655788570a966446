// Package server exposes the diagnostics endpoints of a running cloudmatch process.
//
// # Routing
//
// [BasicRouter] wraps [http.ServeMux] with a middleware stack. Handlers are
// registered either per method and path with [BasicRouter.Handle], or as a
// [Handler] that reports its own routes.
//
// # Endpoints
//
// [StatusHandler] serves:
//
//   - /health  JSON summary of the session and the loaded page
//   - /metrics prometheus exposition from the configured recorder
//
// [Server] owns the listener. Start binds synchronously so an address in use
// is reported to the caller, then serves in the background until
// [Server.Shutdown].
package server

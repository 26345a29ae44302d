// Package server provides HTTP routing, middleware, and handlers for the aggregation API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Routes
//
//	GET /health              → liveness and configured sources
//	GET /api/content         → run the pipeline, render records (json, csv, markdown, text)
//	GET /api/content/stream  → run the pipeline, stream progress as server-sent events
//	GET /api/runs            → recent run summaries, newest first
//	GET /api/runs/{id}       → one run summary
//
// Every content request runs a fresh aggregation bound to the request context, so a client
// disconnect cancels in-flight catalog calls.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server

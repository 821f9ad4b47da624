// Package server provides the HTTP API over the library cache and the
// generation pipeline.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # API Surface
//
// [APIHandler] serves the JSON endpoints:
//
//	GET  /api/library/status  → sync state and progress snapshot
//	POST /api/library/sync    → trigger a sync (409 while one is running)
//	POST /api/filter/preview  → match count and cost estimate for criteria
//	POST /api/generate        → run the generation pipeline
//	GET  /api/genres          → distinct genres in the cache
//	GET  /api/decades         → distinct decades in the cache
//
// Every request carries a generated request id, echoed in the X-Request-ID
// header and attached to the request-scoped logger.
package server

// Package middleware implements the HTTP observability layer.
//
// The middleware wraps any http.Handler and logs the exchange without
// changing what flows through it. It has four composition points, each
// switched on by the configured logging.HTTPLevel:
//
//   - request metadata (request line, headers)
//   - request body chunks, observed as the handler reads them
//   - response metadata (status, headers, latency), logged when the handler returns
//   - response body chunks, observed as the handler writes them
//
// Two interchangeable backends produce the same records:
//
//   - BackendWrap decorates the request body and the ResponseWriter with
//     small purpose-built types.
//   - BackendHooks delegates to a generic Trace middleware with
//     on-request / on-chunk / on-response callbacks, built on httpsnoop.
//
// Bodies are never buffered: each chunk is logged as it passes and then
// handed on unchanged.
package middleware

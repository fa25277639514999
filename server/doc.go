// Package server implements the HTTP API of the auction registry daemon.
//
// It is split into two layers. Service wraps the registry with persistence
// and operation counters; Handler translates HTTP requests into Service
// calls and domain errors into status codes. The Handler plugs into the
// base HTTP server through its RegisterRoutes method.
//
// All amounts cross the wire as decimal strings to avoid JSON number
// precision limits; timestamps are RFC 3339.
package server

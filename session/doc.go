// Package session holds the client's authentication context: the identity,
// both bearer tokens, and the derived authenticated/loading flags.
//
// The [Store] is the single source of truth consulted by the gateway, the
// bootstrapper, and the route guards. Its durable snapshot is the
// persistence boundary, not a cache: it never expires on its own and only an
// explicit logout clears it.
package session

// Package server hosts the Fiber HTTP listener for the edge emulator: it
// assigns request IDs, selects the behavior serving each path, accepts the
// PURGE verb, and hands matched requests to a ProxyHandler. Diagnostics under
// /-/ bypass behavior matching and are registered by the routes package.
package server

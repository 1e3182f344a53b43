// Package behavior groups stage handler bindings and origin mappings into
// FunctionSets keyed by path pattern, and selects the set serving a request.
// A Registry is built once at startup and is read-only afterwards.
package behavior

// Package origin resolves an upstream target once into one of a closed set of
// clients (none, file, http, https) and fetches resources from it on a cache
// miss. The kind of an Origin never changes after New returns; callers
// dispatch through the sealed Client interface instead of comparing strings.
package origin

// Package cache stores complete edge responses keyed by a normalized request.
// Entries live under <StoragePath>/data/<k[:2]>/<k>.json on a go-billy
// filesystem; writes go through temp file + rename so readers only ever see a
// whole entry, and Purge swaps the data root away before deleting it.
package cache

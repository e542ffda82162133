// Package catalog keeps a SQLite index of container files written by eta.
//
// Each entry records where a file lives, the container and element classes
// it was written with, and how many elements it held, so files can be found
// again without opening every one of them. Entries are keyed by path and
// identified by a UUID.
package catalog

// Package serial converts between serialized bytes and the generic map shape
// used by every serializable type in eta.
//
// A Map is the decoded form of a JSON (or YAML) object. Types that can be
// persisted implement Serializable and produce a Map; loaders consume a Map and
// pick concrete types from the tag fields embedded in it. ReadFile and
// WriteFile choose the on-disk format from the file extension and write
// atomically through a temp file, so readers never observe a partial file.
package serial

// Command eta inspects and manipulates eta data files from the shell.
//
// It loads containers reflectively by their class tags, runs the DataRecords
// queries (unique values, index, filter, subset), resolves numbered file
// sequences, fetches model weights into the local cache, and maintains the
// SQLite catalog of written container files.
package main

// Package filesink provides the immediate local sink that writes
// rendered events to a file through a buffered writer, with an fsync on
// Flush for crash durability.
package filesink

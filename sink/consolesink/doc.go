// Package consolesink provides the immediate local sink that renders
// events through the template engine and writes them to an io.Writer,
// stdout by default.
package consolesink

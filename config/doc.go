// Package config loads logging configuration from YAML files and keeps
// it hot-reloadable. A FileProvider hands out immutable snapshots,
// re-reads the file on demand or on filesystem writes, and notifies
// subscribers after every successful reload. Apply projects a snapshot
// onto a category registry and template engine.
package config

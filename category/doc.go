// Package category tracks per-category minimum severity levels and
// template overrides.
//
// The registry is optimized for the router's dispatch path: IsEnabled
// reads an immutable snapshot through an atomic pointer, so concurrent
// dispatches never contend with each other or allocate. Administrative
// writes (register, rename, reload) clone the snapshot under a mutex and
// publish the clone, which is cheap because they are rare.
package category

// Package template renders log events to text via token-substitution
// templates, or to a fixed-shape JSON record.
//
// Text templates contain literal text and tokens like {timestamp},
// {level}, {category}, {message} and {newline}. Token names are matched
// case-insensitively; anything unrecognized stays in the output verbatim,
// so a malformed template degrades to literal text instead of failing.
// Templates are compiled into segments once and cached by source text.
//
// Per-category overrides are stored through the OverrideStore interface,
// normally backed by the category registry so that renaming a category
// carries its template along. A category without an override uses the
// engine's process default.
//
// The JSON form is built manually into a buffer, in the same style as the
// text path, and is not affected by templates: its field set is fixed,
// with optional event fields emitted only when present.
package template

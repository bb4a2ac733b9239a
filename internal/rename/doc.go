// Package rename applies a correlation mapping to pasted shapes.
//
// Renaming happens in two phases. Every matched shape first receives a unique
// placeholder name, and only once the whole pasted range carries placeholders
// are the final names assigned. No rename therefore ever observes a half
// renamed slide where two shapes want the same name. Unmatched shapes keep the
// name the host gave them.
package rename

// Package snapshot holds the immutable records captured when shapes or slides
// are copied. A snapshot is taken once, before anything on the slide is
// mutated, and is never changed afterwards.
package snapshot

// Package correlate re-establishes which pasted element corresponds to which
// copied one.
//
// A Recorder turns every copy event into a Session, the single correlation
// context held by a Store. On paste the session is taken out of the store and
// Correlate matches the pasted shapes against the copied snapshots with a
// two-pass greedy scan: a strong pass that also compares position, then a weak
// pass that does not. Slides are matched by ordinal alone (CorrelateSlides).
//
// Correlate is a pure function of its inputs so the matching policy can be
// tested without a host.
package correlate

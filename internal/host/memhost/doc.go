// Package memhost is an in-memory editing host. It models documents, windows,
// slides and shapes closely enough to exercise the correlation engine:
// default shape naming, z-order, a clipboard, transient names on paste and
// shapes that become unreadable. It is not safe for concurrent use, matching
// the single UI thread of a real host.
package memhost

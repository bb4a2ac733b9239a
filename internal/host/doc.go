// Package host describes the editing host the engine runs inside: the shapes
// and slides it exposes, the copy and paste events it raises and the editing
// session observers are registered against. Nothing here talks to a real
// host; adapters implement these interfaces (see memhost for an in-memory one).
package host

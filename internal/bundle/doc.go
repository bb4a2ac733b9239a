// Package bundle stores the resources recorded against slides: script lines
// and the audio clips recorded for them. A Recorder is the per-window view of
// a Store, the way each document window owns its own recording pane.
//
// Clip bytes live in a ClipStore (in-memory LRU, or zstd-compressed files on
// disk) and bundle records live in an Index (in-memory, or SQLite next to the
// clip files).
package bundle

// Package engine wires the correlation pipeline to a host editing session.
//
// A copy records a correlation session. The next paste consumes it: shape
// pastes are correlated against the recorded originals and renamed through
// the placeholder protocol, slide pastes have their recorded audio and script
// bundles propagated. Every failure stays inside the handler that raised it;
// the host never sees an error or a panic from the engine.
package engine

// Package server runs the ecgpiped side of the channel protocol.
//
// Ownership boundary:
// - the control loop on the well-known control channel
// - the channel registry and dynamic channel allocation
// - per-channel handler loops dispatching on the request tag
// - the ECG sample store and the file range reader behind it
//
// Every channel gets its own handler goroutine. A malformed request kills
// only the channel that carried it; the control channel and sibling channels
// keep running. A data point the store cannot produce is answered with NaN
// so the reply discipline holds; a file length probe for a missing file is
// answered with -1.
package server

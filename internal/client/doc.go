// Package client drives the channel protocol from the requesting side.
//
// Ownership boundary:
// - Session: one channel, strictly one request in flight
// - control-channel connect with retry/backoff
// - NEWCHANNEL allocation and switch-over
// - file length probe and the capacity-bounded chunk loop
package client

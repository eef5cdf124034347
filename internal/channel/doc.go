// Package channel turns a pair of directional byte streams into a named,
// capacity-bounded request channel with exact-length reads and writes.
//
// Ownership boundary:
// - Channel: exact-length Write/Read over a Transport, close-once semantics
// - Provider: allocation and attachment of named stream pairs
// - fifo provider: POSIX named pipes on disk
// - mem provider: in-process pipes for tests
//
// Both sides attach the client-to-server stream before the server-to-client
// stream. The fixed order is what prevents the mutual-open deadlock on FIFOs;
// providers must preserve it.
package channel

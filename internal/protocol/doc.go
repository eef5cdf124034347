// Package protocol owns the wire encoding shared by the ecgpipe client and
// server.
//
// Ownership boundary:
// - request tags and fixed little-endian body layouts
// - Encode/Decode for every request variant
// - untagged reply helpers (float64 sample, int64 length, channel name)
//
// Every request starts with a 4-byte tag. Replies carry no tag: their shape
// is determined by the request that preceded them, so the caller must
// remember what it asked. All multi-byte fields are little-endian.
package protocol

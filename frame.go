package loraduplex

import "bytes"

// FramePrefix marks every over-the-air payload handled by this gateway.
var FramePrefix = [3]byte{'<', 0xff, 0x01}

// Frame prepends FramePrefix to payload.
func Frame(payload []byte) []byte {
	out := make([]byte, 0, len(FramePrefix)+len(payload))
	out = append(out, FramePrefix[:]...)
	return append(out, payload...)
}

// Unframe strips FramePrefix. ok is false for foreign traffic.
func Unframe(p []byte) (payload []byte, ok bool) {
	if !bytes.HasPrefix(p, FramePrefix[:]) {
		return nil, false
	}
	return p[len(FramePrefix):], true
}

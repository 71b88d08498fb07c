// Package lsc implements the host side of the LSC servo-bus controller protocol.
//
// Frames on the wire have the shape
//
//	[0x55][0x55][length][command][params...]
//
// where length is len(params)+2. All 16-bit fields are little-endian. Some
// command bytes are echoed replies to a request while others are pushed by the
// board on its own (action group running, stopped, complete); the decoder tells
// them apart only by command byte and frame length.
//
// A Controller owns exactly one Transport and is not safe for concurrent use.
// Callers that share a Controller must serialize whole request/response cycles.
package lsc

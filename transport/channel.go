// Package transport implements the byte-oriented channels the Special Type
// Manager's network endpoints and console special type read and write
// through: a uniform channel presenting connect, send, receive, close, plus
// protocol framing. Each protocol gets its own file, all implementing the
// same Channel interface so the rest of the runtime never branches on
// transport kind.
package transport

import "io"

// Channel is the uniform interface every transport exposes: Telnet, IRC,
// Papovox, WebSocket and raw all frame bytes differently but present the
// same Send/Receive/Close surface.
type Channel interface {
	// Send writes one message (already framed per the protocol) to the peer.
	Send(p []byte) error
	// Receive blocks until one complete message has been read, or returns
	// io.EOF when the peer closed the connection.
	Receive() ([]byte, error)
	Close() error
}

// errClosed is returned by Receive/Send on a channel that Close already ran
// on, distinguishing "closed by us" from a read hitting io.EOF.
var errClosed = io.ErrClosedPipe

package transport

import (
	"bufio"
	"io"
	"os"

	"golang.org/x/term"
)

// Console wraps the process's own stdin/stdout as a Channel, the transport
// a locally-attached operator console speaks (as opposed to a remote
// Telnet/WebSocket session). Output is written straight through; input is
// read key-by-key in raw mode so single keystrokes reach the Special Type
// Manager's console handler without waiting on a newline.
type Console struct {
	out     io.Writer
	in      *bufio.Reader
	restore func()
	closed  bool
}

// NewConsole puts stdin into raw mode (if it is a terminal, per
// golang.org/x/term.IsTerminal) via termios-based setRawIO, and returns a
// Console over stdin/stdout. Restore via Close.
func NewConsole() (*Console, error) {
	fd := int(os.Stdin.Fd())
	var restore func()
	if term.IsTerminal(fd) {
		r, err := setRawIO(fd)
		if err != nil {
			return nil, err
		}
		restore = r
	}
	return &Console{out: os.Stdout, in: bufio.NewReader(os.Stdin), restore: restore}, nil
}

// Size reports the terminal's current width and height, or (0, 0) if
// stdout is not a terminal.
func (c *Console) Size() (width, height int) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0, 0
	}
	return w, h
}

func (c *Console) Send(p []byte) error {
	if c.closed {
		return errClosed
	}
	_, err := c.out.Write(p)
	return err
}

// Receive reads one key. In raw mode this is a single byte, or for an ANSI
// escape sequence the ESC byte followed by the already-buffered bytes up to
// the sequence's final byte (at most 9 bytes in all). The bytes are
// returned as read; nothing here maps them to a logical key name.
func (c *Console) Receive() ([]byte, error) {
	if c.closed {
		return nil, errClosed
	}
	b, err := c.in.ReadByte()
	if err != nil {
		return nil, err
	}
	if b != 0x1b {
		return []byte{b}, nil
	}
	seq := []byte{b}
	for i := 0; i < 8 && c.in.Buffered() > 0; i++ {
		nb, err := c.in.ReadByte()
		if err != nil {
			break
		}
		seq = append(seq, nb)
		if nb >= '@' && nb <= '~' && nb != '[' {
			break
		}
	}
	return seq, nil
}

func (c *Console) Close() error {
	c.closed = true
	if c.restore != nil {
		c.restore()
	}
	return nil
}

package serial

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// The two distinguished outcomes of non-blocking I/O on the line. WouldBlock
// is the steady-state "nothing right now, poll again" condition and must
// never terminate a read loop; Disconnected means the peer behind the device
// tore the channel down (the emulator exited) and the loop has to leave the
// connected state.
var (
	ErrWouldBlock   = errors.New("serial: operation would block")
	ErrDisconnected = errors.New("serial: device disconnected")
)

// Port owns one non-blocking duplex descriptor for a character device. The
// bridge holds exclusive ownership of a Port for its whole lifetime; no
// other component touches the descriptor.
type Port struct {
	path string

	closeOnce sync.Once
	fd        int
}

// Open opens a character device read-write and non-blocking. The returned
// Port must be closed exactly once; the bridge defers the close so every
// exit path releases the descriptor.
func Open(path string) (*Port, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return &Port{path: path, fd: fd}, nil
}

// Path returns the device path this port was opened from.
func (p *Port) Path() string {
	return p.path
}

// Read performs one non-blocking read. When no data is available it returns
// ErrWouldBlock; when the remote side is gone it returns ErrDisconnected.
func (p *Port) Read(buf []byte) (int, error) {
	n, err := unix.Read(p.fd, buf)
	if err != nil {
		return 0, translateIOError(err)
	}
	if n == 0 {
		// EOF on a tty read is transient on this device class: the emulator
		// may not have opened its end yet. Poll again.
		return 0, ErrWouldBlock
	}

	return n, nil
}

// Write performs one non-blocking write and reports how many bytes the
// device accepted, which may be fewer than len(p) when its FIFO is full.
func (p *Port) Write(data []byte) (int, error) {
	n, err := unix.Write(p.fd, data)
	if err != nil {
		return 0, translateIOError(err)
	}

	return n, nil
}

// Close releases the descriptor. Safe to call more than once; only the
// first call closes.
func (p *Port) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = unix.Close(p.fd)
	})

	return err
}

// translateIOError folds raw errnos into the two sentinel conditions the
// bridge state machine distinguishes. EAGAIN and EINTR mean retry next
// poll; EIO is how a PTY master reports the slave side closing, and the
// remaining errnos mean the descriptor itself is no longer usable.
func translateIOError(err error) error {
	switch {
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK), errors.Is(err, unix.EINTR):
		return ErrWouldBlock
	case errors.Is(err, unix.EIO), errors.Is(err, unix.ENXIO), errors.Is(err, unix.EPIPE), errors.Is(err, unix.EBADF):
		return ErrDisconnected
	default:
		return fmt.Errorf("serial io: %w", err)
	}
}

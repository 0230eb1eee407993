//go:build unix

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// setRawMode configures a PTY master to raw mode, so the multiplexer passes
// bytes through without the master side re-interpreting control
// characters. The child's slave PTY retains a full line discipline; this
// only affects how the master fd itself behaves. Adapted from the teacher's
// internal/process/pty.go setRawMode, trimmed to the fields the master
// side actually needs.
func setRawMode(f *os.File) error {
	fd := int(f.Fd())

	termios, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		return err
	}

	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB
	termios.Cflag |= unix.CS8

	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	return unix.IoctlSetTermios(fd, ioctlWriteTermios, termios)
}

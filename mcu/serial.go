// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package mcu

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/lumen-devices/lumencore/lib/codec"
)

// OpenSerial opens the MCU UART in raw 8N1 mode at 115200 baud. The
// wire carries length-prefixed frames, the same framing as the
// process-agent pipes.
func OpenSerial(path string) (Link, error) {
	file, err := os.OpenFile(path, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("opening serial device: %w", err)
	}
	if err := configureRaw(int(file.Fd())); err != nil {
		file.Close()
		return nil, fmt.Errorf("configuring %s: %w", path, err)
	}
	return &serialLink{file: file}, nil
}

func configureRaw(fd int) error {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB | unix.CBAUD
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL | unix.B115200
	t.Ispeed = unix.B115200
	t.Ospeed = unix.B115200
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
	return unix.IoctlSetTermios(fd, unix.TCSETS, t)
}

// serialLink is only touched from the MCU agent's thread, so reads
// and writes need no locking.
type serialLink struct {
	file *os.File
}

func (l *serialLink) Fd() int { return int(l.file.Fd()) }

func (l *serialLink) ReadFrame() ([]byte, error) {
	return codec.ReadFrame(l.file)
}

func (l *serialLink) WriteFrame(payload []byte) error {
	return codec.WriteFrame(l.file, payload)
}

func (l *serialLink) Close() error { return l.file.Close() }

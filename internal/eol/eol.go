// Package eol checks whether a file ends with a line feed.
package eol

import (
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"
)

// ErrUndecodable is returned when the final byte of a file is not text on its own.
var ErrUndecodable = errors.New("final byte is not valid UTF-8 text")

// Check reports whether the file at path ends with an end of line.
//
// Only the last byte is read. Line endings are normalized the way text mode
// readers do, so a trailing "\r\n" or a lone trailing "\r" both count as a
// line feed. An empty file passes.
func Check(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return false, fmt.Errorf("seek %s: %w", path, err)
	}
	if size < 1 {
		return true, nil
	}

	buf := make([]byte, 1)
	if _, err := f.ReadAt(buf, size-1); err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	return isLineFeed(buf[0])
}

func isLineFeed(b byte) (bool, error) {
	switch {
	case b == '\n', b == '\r':
		return true, nil
	case b >= utf8.RuneSelf:
		return false, ErrUndecodable
	default:
		return false, nil
	}
}

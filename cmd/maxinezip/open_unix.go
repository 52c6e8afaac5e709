//go:build unix

package main

import (
	"errors"
	"io"
	"os"
	"syscall"
)

func readNoFollow(root *os.Root, name string) ([]byte, error) {
	f, err := root.OpenFile(name, os.O_RDONLY|syscall.O_NOFOLLOW, 0)
	if err != nil {
		if errors.Is(err, syscall.ELOOP) {
			return nil, errSymlink
		}
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

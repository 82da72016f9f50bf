//go:build linux

package mmap

import "golang.org/x/sys/unix"

func osMapAnon(size int) ([]byte, func([]byte) error, error) {
	data, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, nil, err
	}

	// Best-effort: large regions benefit from fewer TLB entries.
	_ = unix.Madvise(data, unix.MADV_HUGEPAGE)

	return data, unix.Munmap, nil
}

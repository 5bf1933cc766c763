//go:build linux

package main

import "golang.org/x/sys/unix"

// fadviseSequential hints to the kernel that the input will be read
// sequentially. Best-effort: errors are silently ignored.
func fadviseSequential(fd int, offset, length int64) {
	_ = unix.Fadvise(fd, offset, length, unix.FADV_SEQUENTIAL)
}

// prefetchRegion asks the kernel to start reading a mapped input ahead of the
// line scan. Best-effort: errors are silently ignored.
func prefetchRegion(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, unix.MADV_WILLNEED)
}

// maxRSS returns the peak resident set size of the process in bytes.
func maxRSS() uint64 {
	var rusage unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &rusage); err != nil {
		return 0
	}
	// Linux reports kilobytes.
	return uint64(rusage.Maxrss) * 1024
}

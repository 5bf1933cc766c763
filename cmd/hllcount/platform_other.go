//go:build !linux

package main

// fadviseSequential is a no-op on non-Linux platforms.
// FADV_SEQUENTIAL is Linux-specific.
func fadviseSequential(fd int, offset, length int64) {}

// prefetchRegion is a no-op on non-Linux platforms.
func prefetchRegion(data []byte) {}

// maxRSS is not measured on non-Linux platforms.
func maxRSS() uint64 { return 0 }

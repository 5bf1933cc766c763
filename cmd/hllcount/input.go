package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/edsrzf/mmap-go"
	"golang.org/x/sync/errgroup"

	"github.com/tamirms/hybridhll"
)

// mappedFile is a read-only memory map of an input file.
type mappedFile struct {
	f    *os.File
	data mmap.MMap
}

// openMapped maps path read-only. Empty files are not mapped.
func openMapped(path string) (*mappedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("stat %s: %w", path, err), f.Close())
	}
	m := &mappedFile{f: f}
	if info.Size() == 0 {
		return m, nil
	}
	fadviseSequential(int(f.Fd()), 0, info.Size())
	m.data, err = mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("mmap %s: %w", path, err), f.Close())
	}
	prefetchRegion(m.data)
	return m, nil
}

// Close unmaps and closes the file.
func (m *mappedFile) Close() error {
	var unmapErr error
	if m.data != nil {
		unmapErr = m.data.Unmap()
	}
	return errors.Join(unmapErr, m.f.Close())
}

// splitLines returns the non-empty lines of data without their line
// terminators. The lines alias data.
func splitLines(data []byte) [][]byte {
	lines := make([][]byte, 0, bytes.Count(data, []byte{'\n'})+1)
	for len(data) > 0 {
		line := data
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			line, data = data[:i], data[i+1:]
		} else {
			data = nil
		}
		line = bytes.TrimSuffix(line, []byte{'\r'})
		if len(line) > 0 {
			lines = append(lines, line)
		}
	}
	return lines
}

// sketchFile builds a sketch of the distinct lines of path.
func sketchFile(ctx context.Context, path string, opts []hybridhll.Option) (*hybridhll.Sketch, error) {
	m, err := openMapped(path)
	if err != nil {
		return nil, err
	}
	s, err := hybridhll.BuildParallel(ctx, splitLines(m.data), opts...)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("%s: %w", path, err), m.Close())
	}
	// The sketch keeps no reference to the mapped lines.
	return s, m.Close()
}

// sketchFiles builds one sketch per path concurrently, in path order.
func sketchFiles(ctx context.Context, paths []string, opts []hybridhll.Option) ([]*hybridhll.Sketch, error) {
	sketches := make([]*hybridhll.Sketch, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			s, err := sketchFile(gctx, path, opts)
			if err != nil {
				return err
			}
			sketches[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sketches, nil
}

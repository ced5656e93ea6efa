package decoder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const zstdSuffix = ".zst"

// closers run in order; all of them run even when one fails.
type closers []func() error

func (cs closers) Close() error {
	var errs []error
	for _, c := range cs {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type recordReader struct {
	io.Reader
	closers
}

// openRecords opens a record file, decompressing ".zst" files.
func openRecords(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open detection records: %w", err)
	}
	if !strings.HasSuffix(path, zstdSuffix) {
		return &recordReader{Reader: bufio.NewReader(f), closers: closers{f.Close}}, nil
	}
	zr, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open detection records: %w", err)
	}
	return &recordReader{
		Reader: zr,
		closers: closers{
			func() error { zr.Close(); return nil },
			f.Close,
		},
	}, nil
}

type recordWriter struct {
	io.Writer
	closers
}

// createRecords creates a record file, compressing ".zst" files.
func createRecords(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create prediction records: %w", err)
	}
	bw := bufio.NewWriter(f)
	if !strings.HasSuffix(path, zstdSuffix) {
		return &recordWriter{Writer: bw, closers: closers{bw.Flush, f.Close}}, nil
	}
	zw, err := zstd.NewWriter(bw)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create prediction records: %w", err)
	}
	return &recordWriter{Writer: zw, closers: closers{zw.Close, bw.Flush, f.Close}}, nil
}

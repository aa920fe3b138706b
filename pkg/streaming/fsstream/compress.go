package fsstream

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression selects the codec applied to file contents.
type Compression int

const (
	// Auto picks the codec from the file extension: .gz is gzip, .zst is
	// zstd, anything else is stored as is.
	Auto Compression = iota

	// None stores contents as is.
	None

	// Gzip uses gzip.
	Gzip

	// Zstd uses Zstandard.
	Zstd
)

// String returns the name accepted by ParseCompression.
func (c Compression) String() string {
	switch c {
	case Auto:
		return "auto"
	case None:
		return "none"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", int(c))
	}
}

// ParseCompression converts a codec name to a Compression. The empty string
// means Auto.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return Auto, nil
	case "none":
		return None, nil
	case "gzip", "gz":
		return Gzip, nil
	case "zstd", "zst":
		return Zstd, nil
	default:
		return Auto, fmt.Errorf("unknown compression %q", s)
	}
}

// Resolve turns Auto into a concrete codec for name.
func (c Compression) Resolve(name string) Compression {
	if c != Auto {
		return c
	}
	switch {
	case strings.HasSuffix(name, ".gz"):
		return Gzip
	case strings.HasSuffix(name, ".zst"):
		return Zstd
	default:
		return None
	}
}

// stackedReadCloser reads from the outermost layer and closes every layer,
// outermost first.
type stackedReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedReadCloser) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func decompress(r io.ReadCloser, c Compression) (io.ReadCloser, error) {
	switch c {
	case Gzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		return &stackedReadCloser{Reader: gz, closers: []io.Closer{gz, r}}, nil
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		zr := dec.IOReadCloser()
		return &stackedReadCloser{Reader: zr, closers: []io.Closer{zr, r}}, nil
	default:
		return r, nil
	}
}

// stackedWriteCloser writes to the outermost layer and closes every layer,
// outermost first, so codecs flush their trailers before the file closes.
type stackedWriteCloser struct {
	io.Writer
	closers []io.Closer
}

func (s *stackedWriteCloser) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func compress(w io.WriteCloser, c Compression) (io.WriteCloser, error) {
	switch c {
	case Gzip:
		gz := gzip.NewWriter(w)
		return &stackedWriteCloser{Writer: gz, closers: []io.Closer{gz, w}}, nil
	case Zstd:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, err
		}
		return &stackedWriteCloser{Writer: enc, closers: []io.Closer{enc, w}}, nil
	default:
		return w, nil
	}
}

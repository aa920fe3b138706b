package stream

import (
	"bufio"
	"context"
	"errors"
	"io"
	"sync/atomic"
)

// DefaultChunkSize is the chunk size FromReader uses when given zero.
const DefaultChunkSize = 32 * 1024

// sliceSource implements Source for slices.
type sliceSource[T any] struct {
	slice []T
	index int64
}

// SliceSource returns a Source over the elements of slice.
func SliceSource[T any](slice []T) Source[T] {
	return &sliceSource[T]{slice: slice}
}

func (s *sliceSource[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T

	currentIndex := atomic.AddInt64(&s.index, 1) - 1
	if currentIndex >= int64(len(s.slice)) {
		return zero, false, nil
	}

	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	default:
		return s.slice[currentIndex], true, nil
	}
}

func (s *sliceSource[T]) Close() error {
	return nil
}

// channelSource implements Source for channels.
type channelSource[T any] struct {
	ch <-chan T
}

// ChannelSource returns a Source that receives from ch until it is closed.
func ChannelSource[T any](ch <-chan T) Source[T] {
	return &channelSource[T]{ch: ch}
}

func (s *channelSource[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T

	select {
	case value, ok := <-s.ch:
		if !ok {
			return zero, false, nil
		}
		return value, true, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

func (s *channelSource[T]) Close() error {
	return nil
}

// generatorSource implements Source for generator functions.
type generatorSource[T any] struct {
	generator func() T
}

// GeneratorSource returns an infinite Source calling generator for each element.
func GeneratorSource[T any](generator func() T) Source[T] {
	return &generatorSource[T]{generator: generator}
}

func (s *generatorSource[T]) Next(ctx context.Context) (T, bool, error) {
	select {
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	default:
		return s.generator(), true, nil
	}
}

func (s *generatorSource[T]) Close() error {
	return nil
}

// emptySource implements Source for empty streams.
type emptySource[T any] struct{}

func (s *emptySource[T]) Next(_ context.Context) (T, bool, error) {
	var zero T
	return zero, false, nil
}

func (s *emptySource[T]) Close() error {
	return nil
}

// readerSource implements Source by reading chunks from an io.Reader.
type readerSource struct {
	r   io.Reader
	buf []byte
}

// FromReader returns a Source yielding the contents of r in chunks of at most
// chunkSize bytes. Each chunk is a fresh slice. If r is an io.Closer it is
// closed with the source.
func FromReader(r io.Reader, chunkSize int) Source[[]byte] {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &readerSource{r: r, buf: make([]byte, chunkSize)}
}

func (s *readerSource) Next(ctx context.Context) ([]byte, bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		n, err := s.r.Read(s.buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, s.buf[:n])
			return chunk, true, nil
		}
		if errors.Is(err, io.EOF) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
	}
}

func (s *readerSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// linesSource implements Source by scanning newline separated lines.
type linesSource struct {
	r       io.Reader
	scanner *bufio.Scanner
}

// FromLines returns a Source yielding the lines of r without their line
// endings. Lines longer than bufio.MaxScanTokenSize fail the source. If r is
// an io.Closer it is closed with the source.
func FromLines(r io.Reader) Source[string] {
	return &linesSource{r: r, scanner: bufio.NewScanner(r)}
}

func (s *linesSource) Next(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if s.scanner.Scan() {
		return s.scanner.Text(), true, nil
	}
	return "", false, s.scanner.Err()
}

func (s *linesSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// mappingSource implements Source that transforms elements from one type to another.
type mappingSource[From, To any] struct {
	originalSource Source[From]
	mapper         func(From) To
}

// MapSource returns a Source applying mapper to every element of src.
func MapSource[From, To any](src Source[From], mapper func(From) To) Source[To] {
	return &mappingSource[From, To]{originalSource: src, mapper: mapper}
}

func (s *mappingSource[From, To]) Next(ctx context.Context) (To, bool, error) {
	var zero To

	value, hasMore, err := s.originalSource.Next(ctx)
	if err != nil {
		return zero, false, err
	}

	if !hasMore {
		return zero, false, nil
	}

	return s.mapper(value), true, nil
}

func (s *mappingSource[From, To]) Close() error {
	return s.originalSource.Close()
}

// Collect pulls every remaining element of src into a slice and closes it.
func Collect[T any](ctx context.Context, src Source[T]) ([]T, error) {
	defer func() { _ = src.Close() }()

	var result []T
	for {
		value, ok, err := src.Next(ctx)
		if err != nil {
			return result, err
		}
		if !ok {
			return result, nil
		}
		result = append(result, value)
	}
}

package redisstream

import "errors"

// ErrWriterClosed is reported when items are written to a closed ListWriter.
var ErrWriterClosed = errors.New("list writer is closed")

// RedisError represents a failed Redis command.
type RedisError struct {
	Operation string
	Key       string
	Err       error
}

func (e *RedisError) Error() string {
	return "redis error in " + e.Operation + " on " + e.Key + ": " + e.Err.Error()
}

func (e *RedisError) Unwrap() error {
	return e.Err
}

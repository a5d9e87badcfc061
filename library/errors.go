package library

import "fmt"

// StorageReadError reports a table file that exists but cannot be read or
// parsed.
type StorageReadError struct {
	Path string
	Line int // 1-based CSV line, 0 when the whole file failed
	Err  error
}

func (e *StorageReadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("read %s line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *StorageReadError) Unwrap() error { return e.Err }

// StorageWriteError reports a failed rewrite of a table file.
type StorageWriteError struct {
	Path string
	Err  error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *StorageWriteError) Unwrap() error { return e.Err }

// ValidationError reports captured input that does not satisfy a schema.
type ValidationError struct {
	Schema string
	Field  string
	Value  string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s.%s: %v", e.Schema, e.Field, e.Err)
	}
	return fmt.Sprintf("%s.%s: %q: %v", e.Schema, e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

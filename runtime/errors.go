package runtime

import "fmt"

// StreamError reports that a response body stream failed before it ended.
// No partial body is returned alongside it.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("read response body: %v", e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// RenderError reports that a tape could not be rendered, either because the
// context is missing a required field or because encoding failed.
type RenderError struct {
	Field string
	Err   error
}

func (e *RenderError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("render tape: missing %s", e.Field)
	}
	return fmt.Sprintf("render tape: %v", e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// WriteError reports that an artifact could not be persisted.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

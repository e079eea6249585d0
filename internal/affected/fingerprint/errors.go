package fingerprint

import "fmt"

// ReadError reports a file that could not be read for hashing.
//
// Err is the underlying filesystem error, so errors.Is(err, fs.ErrNotExist)
// works through a ReadError.
type ReadError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ReadError) Error() string {
	return fmt.Sprintf("fingerprint %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ReadError) Unwrap() error {
	return e.Err
}

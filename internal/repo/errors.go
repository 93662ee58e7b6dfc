package repo

import (
	"errors"
	"fmt"
)

// Sentinel classes for record file operations. Every error the store returns
// matches exactly one of these via errors.Is.
var (
	ErrDoesNotExist  = errors.New("file does not exist")
	ErrAlreadyExists = errors.New("file already exists")
	ErrRead          = errors.New("file read failed")
	ErrWrite         = errors.New("file write failed")
	ErrDelete        = errors.New("file delete failed")
)

// FileError carries the record coordinates and underlying cause of a failed
// store operation. errors.Is matches both the sentinel class and the cause.
type FileError struct {
	Kind  string
	Path  string
	Class error
	Cause error
}

func (e *FileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s/%s: %v: %v", e.Kind, e.Path, e.Class, e.Cause)
	}
	return fmt.Sprintf("%s/%s: %v", e.Kind, e.Path, e.Class)
}

func (e *FileError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Class, e.Cause}
	}
	return []error{e.Class}
}

func fileErr(class error, kind, path string, cause error) error {
	return &FileError{Kind: kind, Path: path, Class: class, Cause: cause}
}

// The errors package provides error primitives shared by the decoders,
// encoders, and the project writer.
//
// Most operations return a warning alongside a hard error. A warning describes
// something that was changed or skipped while the operation still succeeded,
// such as a dropped control character or an unreadable property.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

func New(text string) error {
	return errors.New(text)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Errors is a list of errors.
type Errors []error

// Error formats the list by separating each message with a newline. Each
// produced line, including lines within messages, is prefixed with a tab.
func (errs Errors) Error() string {
	switch len(errs) {
	case 0:
		return "no errors"
	case 1:
		return errs[0].Error()
	default:
		var buf strings.Builder
		fmt.Fprintf(&buf, "%d errors:", len(errs))
		for _, err := range errs {
			buf.WriteString("\n\t")
			buf.WriteString(strings.ReplaceAll(err.Error(), "\n", "\n\t"))
		}
		return buf.String()
	}
}

// Unwrap returns the contained errors, so that Is and As search each of them.
func (errs Errors) Unwrap() []error {
	return errs
}

// Append returns errs with each err appended to it. Arguments that are nil are
// skipped. An argument that is itself an Errors is flattened.
func (errs Errors) Append(err ...error) Errors {
	for _, err := range err {
		switch err := err.(type) {
		case nil:
		case Errors:
			errs = errs.Append(err...)
		default:
			errs = append(errs, err)
		}
	}
	return errs
}

// Return prepares errs to be returned by a function by returning nil if errs is
// empty.
func (errs Errors) Return() error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Union receives a number of errors and combines them into one Errors. Returns
// nil if all errs are nil or empty.
func Union(errs ...error) error {
	return Errors(nil).Append(errs...).Return()
}

// Len returns the number of errors contained in err. A nil error has zero
// length, an Errors has the length of its list, and any other error has a
// length of one.
func Len(err error) int {
	switch err := err.(type) {
	case nil:
		return 0
	case Errors:
		return len(err)
	default:
		return 1
	}
}

// PathError annotates an error with the location in an instance tree or
// project directory where it occurred.
type PathError struct {
	Path string
	Err  error
}

func (err PathError) Error() string {
	return err.Path + ": " + err.Err.Error()
}

func (err PathError) Unwrap() error {
	return err.Err
}

// At returns err annotated with path, or nil if err is nil.
func At(path string, err error) error {
	if err == nil {
		return nil
	}
	return PathError{Path: path, Err: err}
}

// Warnf returns a formatted warning.
func Warnf(format string, a ...interface{}) error {
	return fmt.Errorf(format, a...)
}

// Package errs defines the error taxonomy shared by the card generation pipeline.
//
// Every typed error matches one of the sentinel values through errors.Is, so callers
// can branch on the category while still extracting details with errors.As.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel categories.
var (
	ErrIO             = errors.New("i/o error")
	ErrFormat         = errors.New("format error")
	ErrObjectType     = errors.New("object type error")
	ErrAssetNotFound  = errors.New("asset not found")
	ErrCardNotFound   = errors.New("card not found")
	ErrInvalidCard    = errors.New("invalid card")
	ErrNotImplemented = errors.New("not implemented")
)

// Kind classifies an error into one of the sentinel categories.
type Kind int

const (
	KindUnknown Kind = iota
	KindIO
	KindFormat
	KindObjectType
	KindAssetNotFound
	KindCardNotFound
	KindInvalidCard
	KindNotImplemented
)

var kindNames = [...]string{
	KindUnknown:        "unknown",
	KindIO:             "io",
	KindFormat:         "format",
	KindObjectType:     "object_type",
	KindAssetNotFound:  "asset_not_found",
	KindCardNotFound:   "card_not_found",
	KindInvalidCard:    "invalid_card",
	KindNotImplemented: "not_implemented",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// KindOf returns the category of err, or KindUnknown.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrNotImplemented):
		return KindNotImplemented
	case errors.Is(err, ErrCardNotFound):
		return KindCardNotFound
	case errors.Is(err, ErrInvalidCard):
		return KindInvalidCard
	case errors.Is(err, ErrAssetNotFound):
		return KindAssetNotFound
	case errors.Is(err, ErrObjectType):
		return KindObjectType
	case errors.Is(err, ErrFormat):
		return KindFormat
	case errors.Is(err, ErrIO):
		return KindIO
	}
	return KindUnknown
}

// IOError reports a failed file system operation.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() []error { return []error{ErrIO, e.Err} }

// IO wraps err as an IOError. It returns nil when err is nil.
func IO(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}

// FormatError reports malformed or truncated binary data.
type FormatError struct {
	Msg string
	Err error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FormatError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrFormat, e.Err}
	}
	return []error{ErrFormat}
}

// Formatf returns a FormatError with a formatted message.
func Formatf(format string, args ...any) error {
	return &FormatError{Msg: fmt.Sprintf(format, args...)}
}

// WrapFormat wraps err as a FormatError. It returns nil when err is nil.
func WrapFormat(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &FormatError{Msg: fmt.Sprintf(format, args...), Err: err}
}

// ObjectTypeError reports a stored object whose type does not match the requested decoder.
type ObjectTypeError struct {
	Want string
	Got  string
}

func (e *ObjectTypeError) Error() string {
	return fmt.Sprintf("object type mismatch: want %s, got %s", e.Want, e.Got)
}

func (e *ObjectTypeError) Is(target error) bool { return target == ErrObjectType }

// AssetNotFoundError reports a catalog or sub-object lookup miss.
type AssetNotFoundError struct {
	Name string
}

func (e *AssetNotFoundError) Error() string {
	return fmt.Sprintf("asset not found: %s", e.Name)
}

func (e *AssetNotFoundError) Is(target error) bool { return target == ErrAssetNotFound }

// AssetNotFound returns an AssetNotFoundError for name.
func AssetNotFound(name string) error {
	return &AssetNotFoundError{Name: name}
}

// CardNotFoundError reports a card id missing from the metadata document.
type CardNotFoundError struct {
	ID string
}

func (e *CardNotFoundError) Error() string {
	return fmt.Sprintf("card not found: %s", e.ID)
}

func (e *CardNotFoundError) Is(target error) bool { return target == ErrCardNotFound }

// InvalidCardError reports a card lacking a field required for generation.
type InvalidCardError struct {
	ID    string
	Field string
}

func (e *InvalidCardError) Error() string {
	return fmt.Sprintf("invalid card %s: missing %s", e.ID, e.Field)
}

func (e *InvalidCardError) Is(target error) bool { return target == ErrInvalidCard }

// NotImplementedError reports a recognized but unsupported combination.
type NotImplementedError struct {
	Description string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("not implemented: %s", e.Description)
}

func (e *NotImplementedError) Is(target error) bool { return target == ErrNotImplemented }

// NotImplementedf returns a NotImplementedError with a formatted description.
func NotImplementedf(format string, args ...any) error {
	return &NotImplementedError{Description: fmt.Sprintf(format, args...)}
}

package errs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// CodeErrorI is implemented by *CodeError; handlers only depend on this.
type CodeErrorI interface {
	ECode() int
	EMsg() string
	DDetail() string
	error
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  msg,
	}
}

// CodeError carries a classification code, a human-readable message that is
// safe to show to the client, and an optional detail / cause for the logs.
type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`

	cause error
}

func (e *CodeError) ECode() int      { return e.Code }
func (e *CodeError) EMsg() string    { return e.Msg }
func (e *CodeError) DDetail() string { return e.Detail }

func (e *CodeError) WithDetail(detail string) *CodeError {
	c := e.clone()
	if c.Detail == "" {
		c.Detail = detail
	} else {
		c.Detail = c.Detail + ", " + detail
	}
	return c
}

func (e *CodeError) Wrap() error {
	return pkgerrors.WithStack(e.clone())
}

func (e *CodeError) clone() *CodeError {
	return &CodeError{
		Code:   e.Code,
		Msg:    e.Msg,
		Detail: e.Detail,
		cause:  e.cause,
	}
}

func (e *CodeError) WrapMsg(msg string, kv ...any) error {
	retErr := e.clone()
	if msg != "" || len(kv) > 0 {
		detail := toString(msg, kv)
		if retErr.Detail == "" {
			retErr.Detail = detail
		} else {
			retErr.Detail += ", " + detail
		}
	}
	return pkgerrors.WithStack(retErr)
}

// Reason returns a copy whose Msg is the client-facing reason and whose cause
// is kept for logging and errors.Is/As.
func (e *CodeError) Reason(msg string, cause error) error {
	retErr := e.clone()
	retErr.Msg = msg
	retErr.cause = cause
	return pkgerrors.WithStack(retErr)
}

func (e *CodeError) Unwrap() error { return e.cause }

// Is reports whether err carries the same code. It also makes
// errors.Is(err, ErrNotFound) work on wrapped copies.
func (e *CodeError) Is(err error) bool {
	var codeErr *CodeError
	if !errors.As(err, &codeErr) {
		return err == nil && e == nil
	}
	if e == nil || codeErr == nil {
		return false
	}
	return e.Code == codeErr.Code
}

const initialCapacity = 4

func (e *CodeError) Error() string {
	v := make([]string, 0, initialCapacity)
	v = append(v, strconv.Itoa(e.Code), e.Msg)

	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	if e.cause != nil {
		v = append(v, "cause: "+e.cause.Error())
	}

	return strings.Join(v, " ")
}

// New creates a plain error with a stack trace.
func New(msg string, kv ...any) error {
	return pkgerrors.New(toString(msg, kv))
}

func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return pkgerrors.WithStack(err)
}

func WrapMsg(err error, msg string, kv ...any) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(err, toString(msg, kv))
}

// CodeOf returns the code of the first CodeError in the chain, or
// ServerInternalError when there is none.
func CodeOf(err error) int {
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Code
	}
	return ServerInternalError
}

// Public extracts the message that may be shown to a client. Only client-side
// codes (4xx) expose their Msg; server-side failures and errors without a
// CodeError fall back to the given text.
func Public(err error, fallback string) string {
	var codeErr *CodeError
	if errors.As(err, &codeErr) && codeErr.Code < ServerInternalError && codeErr.Msg != "" {
		return codeErr.Msg
	}
	return fallback
}

func toString(msg string, kv []any) string {
	if len(kv) == 0 {
		return msg
	}
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		if sb.Len() > 0 {
			sb.WriteString(", ")
		}
		key := fmt.Sprint(kv[i])
		var val any = "MISSING"
		if i+1 < len(kv) {
			val = kv[i+1]
		}
		sb.WriteString(key)
		sb.WriteString("=")
		sb.WriteString(fmt.Sprint(val))
	}
	return sb.String()
}

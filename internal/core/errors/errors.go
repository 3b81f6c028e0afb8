package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type ErrorCode string

const (
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
	CodeParse           ErrorCode = "PARSE_ERROR"
	CodeTraceFailed     ErrorCode = "TRACE_FAILED"
	CodeTraceTimeout    ErrorCode = "TRACE_TIMEOUT"
)

// Context keys shared by the catalog, the tracer and the CLI.
const (
	CtxPath   = "path"
	CtxModule = "module"
	CtxLine   = "line"
)

// DomainError carries a stable code plus the file or module it concerns.
type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]any
}

func (e *DomainError) Error() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(string(e.Code))
	b.WriteString("] ")
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
		}
		b.WriteString(")")
	}
	return b.String()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Newf(code ErrorCode, format string, args ...any) error {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// AddContext records key on the first DomainError in err's chain. Errors
// without one are wrapped as CodeInternal first.
func AddContext(err error, key string, value any) error {
	var de *DomainError
	if !errors.As(err, &de) {
		return &DomainError{
			Code:    CodeInternal,
			Message: "unexpected failure",
			Err:     err,
			Context: map[string]any{key: value},
		}
	}
	if de.Context == nil {
		de.Context = make(map[string]any)
	}
	de.Context[key] = value
	return err
}

// CodeOf returns the code of the first DomainError in err's chain, or the
// empty code when there is none.
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

func ContextValue(err error, key string) (any, bool) {
	var de *DomainError
	if !errors.As(err, &de) || de.Context == nil {
		return nil, false
	}
	v, ok := de.Context[key]
	return v, ok
}

package types

import (
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// APIStatus is the <status> document OBS returns for command results and
// error responses.
type APIStatus struct {
	XMLName xml.Name     `xml:"status" yaml:"-"`
	Code    string       `xml:"code,attr"`
	Summary string       `xml:"summary,omitempty" yaml:",omitempty"`
	Details string       `xml:"details,omitempty" yaml:",omitempty"`
	Data    []StatusData `xml:"data" yaml:",omitempty"`
}

type StatusData struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

func (s APIStatus) String() string {
	if s.Summary == "" {
		return s.Code
	}
	return s.Code + ": " + s.Summary
}

func (s APIStatus) DataValue(name string) (string, bool) {
	for _, data := range s.Data {
		if data.Name == name {
			return data.Value, true
		}
	}
	return "", false
}

type ErrorKind string

const (
	ErrorKindTransport  ErrorKind = "transport"
	ErrorKindHTTP       ErrorKind = "http"
	ErrorKindDecode     ErrorKind = "decode"
	ErrorKindChecksum   ErrorKind = "checksum"
	ErrorKindUnexpected ErrorKind = "unexpected_result"
	ErrorKindInvalidURL ErrorKind = "invalid_url"
)

// OBSError is returned for every failure that originates from talking to an
// OBS instance or from validating what it sent back.
type OBSError struct {
	Kind       ErrorKind
	Method     string
	URL        string
	StatusCode int
	API        *APIStatus
	Body       string
	Expected   string
	Actual     string
	Cause      error
}

func (e *OBSError) Error() string {
	var b strings.Builder
	switch e.Kind {
	case ErrorKindHTTP:
		fmt.Fprintf(&b, "status=%d", e.StatusCode)
		if e.API != nil {
			b.WriteString(" ")
			b.WriteString(e.API.String())
		} else if e.Body != "" {
			fmt.Fprintf(&b, " response=%s", e.Body)
		}
	case ErrorKindChecksum:
		fmt.Fprintf(&b, "checksum mismatch: expected %s, got %s", e.Expected, e.Actual)
	case ErrorKindUnexpected:
		b.WriteString("unexpected result")
		if e.API != nil {
			b.WriteString(" ")
			b.WriteString(e.API.String())
		}
	default:
		fmt.Fprintf(&b, "%s error", e.Kind)
	}
	if e.URL != "" {
		if e.Method != "" {
			fmt.Fprintf(&b, " method=%s", e.Method)
		}
		fmt.Fprintf(&b, " url=%s", e.URL)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *OBSError) Unwrap() error {
	return e.Cause
}

// Code maps the error onto the errbuilder code space used for exit codes.
func (e *OBSError) Code() errbuilder.ErrCode {
	switch e.Kind {
	case ErrorKindHTTP:
		switch {
		case e.StatusCode == http.StatusNotFound:
			return errbuilder.CodeNotFound
		case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
			return errbuilder.CodePermissionDenied
		case e.StatusCode == http.StatusConflict:
			return errbuilder.CodeAlreadyExists
		case e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests:
			return errbuilder.CodeInternal
		case e.StatusCode >= 400:
			return errbuilder.CodeInvalidArgument
		default:
			return errbuilder.CodeInternal
		}
	case ErrorKindInvalidURL:
		return errbuilder.CodeInvalidArgument
	default:
		return errbuilder.CodeInternal
	}
}

// CodeOf returns the errbuilder code of err, mapping OBSErrors through Code.
func CodeOf(err error) errbuilder.ErrCode {
	var obsErr *OBSError
	if errors.As(err, &obsErr) {
		return obsErr.Code()
	}
	return errbuilder.CodeOf(err)
}

func NewChecksumError(expected string, actual string) *OBSError {
	return &OBSError{Kind: ErrorKindChecksum, Expected: expected, Actual: actual}
}

// ErrorKindOf returns the kind of the first OBSError in err's chain.
func ErrorKindOf(err error) (ErrorKind, bool) {
	var obsErr *OBSError
	if errors.As(err, &obsErr) {
		return obsErr.Kind, true
	}
	return "", false
}

// StatusCodeOf returns the HTTP status of an HTTP OBSError, or zero.
func StatusCodeOf(err error) int {
	var obsErr *OBSError
	if errors.As(err, &obsErr) && obsErr.Kind == ErrorKindHTTP {
		return obsErr.StatusCode
	}
	return 0
}

func APIStatusOf(err error) (*APIStatus, bool) {
	var obsErr *OBSError
	if errors.As(err, &obsErr) && obsErr.API != nil {
		return obsErr.API, true
	}
	return nil, false
}

// IsNotFound reports a 404 from the API.
func IsNotFound(err error) bool {
	return StatusCodeOf(err) == http.StatusNotFound
}

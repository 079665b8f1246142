package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
)

// Kind classifies a protocol failure. Every store- or hash-facing call site
// translates its error into one of these before it crosses the protocol
// boundary; no raw storage error reaches the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindConflict
	KindNotFound
	KindUnauthorized
	KindBadRequest
)

// Error is a protocol-level failure with a caller-safe info string. The
// wrapped cause (if any) is logged server-side only.
type Error struct {
	Kind Kind
	Info string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Info, e.Err)
	}
	return e.Info
}

func (e *Error) Unwrap() error { return e.Err }

func conflictErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Info: fmt.Sprintf(format, args...)}
}

func notFoundErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Info: fmt.Sprintf(format, args...)}
}

func unauthorizedErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindUnauthorized, Info: fmt.Sprintf(format, args...)}
}

func badRequestErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindBadRequest, Info: fmt.Sprintf(format, args...)}
}

func internalErr(cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindInternal, Info: fmt.Sprintf(format, args...), Err: cause}
}

// Wire-level status strings, kept compatible with the original service.
const (
	statusCreated      = "CREATED"
	statusExists       = "EXISTS"
	statusOK           = "OK"
	statusUnauthorized = "ERROR_UNAUTHORIZED"
	statusNotFound     = "ERROR_NOT_FOUND"
	statusBadRequest   = "ERROR_BAD_REQUEST"
	statusInternal     = "ERROR_INTERNAL"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json: %v", err)
	}
}

func writeStatus(w http.ResponseWriter, httpStatus int, status, info string) {
	writeJSON(w, httpStatus, map[string]string{"status": status, "info": info})
}

// writeErr maps a protocol error to its transport response. Internal
// failures are logged with their cause and surfaced with no detail.
func writeErr(w http.ResponseWriter, err error) {
	var pe *Error
	if !errors.As(err, &pe) {
		pe = internalErr(err, "internal error")
	}
	switch pe.Kind {
	case KindConflict:
		writeStatus(w, http.StatusSeeOther, statusExists, pe.Info)
	case KindNotFound:
		writeStatus(w, http.StatusNotFound, statusNotFound, pe.Info)
	case KindUnauthorized:
		writeStatus(w, http.StatusUnauthorized, statusUnauthorized, pe.Info)
	case KindBadRequest:
		writeStatus(w, http.StatusBadRequest, statusBadRequest, pe.Info)
	default:
		log.Printf("internal error: %v", pe)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": statusInternal})
	}
}

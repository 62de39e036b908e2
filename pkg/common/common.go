package common

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Msg struct {
	Message string `json:"message"`
}

type ErrBody struct {
	Error string `json:"error"`
}

func WriteMsg(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	WriteRespJSON(w, Msg{msg})
}

// WriteErr maps err to its HTTP status and writes {"error": "..."}.
// Only messages of *Error values reach the client; anything else is reported
// as a generic internal error.
func WriteErr(w http.ResponseWriter, err error) {
	code := StatusOf(err)
	msg := "internal error"
	var appErr *Error
	if errors.As(err, &appErr) {
		msg = appErr.Msg
	} else if code == http.StatusServiceUnavailable {
		msg = "storage unavailable"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	WriteRespJSON(w, ErrBody{msg})
}

func ParseReqBody(body io.Reader, ptr interface{}) error {
	err := json.NewDecoder(body).Decode(ptr)
	if err != nil {
		return err
	}
	return nil
}

func WriteRespJSON(w http.ResponseWriter, data interface{}) {
	resp, err := json.Marshal(data)
	if err != nil {
		log.Println("common: JSON marshaling failed", err)
		WriteMsg(w, "response failed", http.StatusInternalServerError)
		return
	}

	_, err = w.Write(resp)
	if err != nil {
		log.Println("common: failed writing response", err)
	}
}

// Page reads limit and skip query parameters. Missing, malformed or negative
// values fall back to DefaultLimit and 0; limit is capped at MaxLimit.
func Page(r *http.Request) (limit, skip int) {
	q := r.URL.Query()
	limit = parseNonNegative(q.Get("limit"), DefaultLimit)
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	skip = parseNonNegative(q.Get("skip"), 0)
	return limit, skip
}

func parseNonNegative(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// Window returns the bounds of [offset, offset+limit) clipped to a slice of
// length n.
func Window(n, limit, offset int) (lo, hi int) {
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}
	if offset > n {
		return n, n
	}
	hi = offset + limit
	if hi > n || hi < offset {
		hi = n
	}
	return offset, hi
}

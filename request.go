package main

import (
	"bytes"
	"strings"
)

// Request is a parsed HTTP request.  Body is only set for POST requests that
// carry a header/body separator.
type Request struct {
	Method   string
	Path     string
	Protocol string
	Body     []byte
}

// ParseRequest splits raw into its request line tokens and body.  The method,
// path and protocol are the first three whitespace separated tokens of the
// first line; missing tokens are left empty.  Only a request with no tokens at
// all is rejected.
func ParseRequest(raw []byte) (Request, error) {
	line := raw
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		line = raw[:i]
	}
	fields := strings.Fields(string(line))
	if len(fields) == 0 {
		return Request{}, &ProtocolError{Reason: "empty request line"}
	}
	var req Request
	req.Method = fields[0]
	if len(fields) > 1 {
		req.Path = fields[1]
	}
	if len(fields) > 2 {
		req.Protocol = fields[2]
	}
	if req.Method == "POST" {
		req.Body = requestBody(raw)
	}
	return req, nil
}

// requestBody returns the bytes after the first blank line, or nil if there
// is none.  Bare LF line endings are accepted as well as CRLF.
func requestBody(raw []byte) []byte {
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		return raw[i+4:]
	}
	if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		return raw[i+2:]
	}
	return nil
}

// DecodeFormValue returns the value of the first key=value token in an
// application/x-www-form-urlencoded body whose key equals key.  Values are
// returned as sent; no percent decoding is done.  Tokens without '=' are
// skipped.
func DecodeFormValue(body []byte, key string) (string, bool) {
	var value string
	found := false
	eachFormField(body, func(k, v string) bool {
		if k == key {
			value, found = v, true
			return false
		}
		return true
	})
	return value, found
}

// HasFormKey reports whether body carries a key=... token for key, whatever
// its value.  Checkboxes are submitted this way.
func HasFormKey(body []byte, key string) bool {
	_, ok := DecodeFormValue(body, key)
	return ok
}

// eachFormField calls fn for each key=value token until fn returns false.
func eachFormField(body []byte, fn func(k, v string) bool) {
	if len(body) == 0 {
		return
	}
	// Clients may terminate the body with a newline.
	s := strings.TrimRight(string(body), "\r\n")
	for _, token := range strings.Split(s, "&") {
		k, v, ok := strings.Cut(token, "=")
		if !ok {
			continue
		}
		if !fn(k, v) {
			return
		}
	}
}

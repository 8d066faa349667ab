package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// acceptBackoff is how long Serve waits after a failed accept before trying
// again.
const acceptBackoff = 100 * time.Millisecond

// Server accepts connections on a listener and answers each with a single
// response from the ConfigService.  Connections are handled one at a time,
// fully, in accept order.
type Server struct {
	ln           net.Listener
	service      *ConfigService
	logger       *zap.Logger
	readTimeout  time.Duration
	writeTimeout time.Duration
	maxRequest   int
}

// NewServer constructs a Server on an already bound listener.
func NewServer(ln net.Listener, service *ConfigService, logger *zap.Logger, opts HTTPOptions) *Server {
	maxRequest := opts.MaxRequest
	if maxRequest <= 0 {
		maxRequest = 4096
	}
	return &Server{
		ln:           ln,
		service:      service,
		logger:       logger,
		readTimeout:  opts.ReadTimeout,
		writeTimeout: opts.WriteTimeout,
		maxRequest:   maxRequest,
	}
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve runs the accept loop until ctx is cancelled.  Cancelling ctx closes
// the listener, and the resulting accept failure is a clean exit.
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = s.ln.Close() })
	defer stop()

	s.logger.Info("Web server started", zap.String("addr", s.ln.Addr().String()))
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("Accept failed", zap.Error(err))
			if !sleepCtx(ctx, acceptBackoff) {
				return nil
			}
			continue
		}
		s.serveConn(conn)
	}
}

// serveConn reads one request, writes one response and closes the
// connection.  Nothing that goes wrong here reaches the caller.
func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	l := s.logger.With(
		zap.String("request_id", uuid.NewString()),
		zap.String("remote", conn.RemoteAddr().String()),
	)

	if s.readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	}
	raw, err := readRequest(conn, s.maxRequest)
	if err != nil {
		l.Debug("Dropping connection", zap.Error(&ProtocolError{Reason: "read request", Err: err}))
		return
	}

	var resp Response
	req, err := ParseRequest(raw)
	if err != nil {
		l.Debug("Malformed request", zap.Error(err))
		resp = s.service.handleNotFound()
	} else {
		resp = s.service.Handle(req)
	}

	if s.writeTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if _, err := resp.WriteTo(conn); err != nil {
		l.Debug("Failed to write response", zap.Error(err))
		return
	}
	l.Info("Request handled",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", resp.Status),
	)
}

// readRequest reads until the headers and any Content-Length body have
// arrived, the peer stops sending, or max bytes have been read.  A request
// larger than max is truncated.  A read deadline that expires after some bytes
// arrived ends the request rather than failing it, which is how a POST without
// Content-Length is delimited when the peer keeps the connection open.
func readRequest(r io.Reader, max int) ([]byte, error) {
	buf := make([]byte, max)
	n := 0
	for n < max {
		m, err := r.Read(buf[n:])
		n += m
		if requestComplete(buf[:n]) {
			return buf[:n], nil
		}
		if err != nil {
			if n > 0 && (errors.Is(err, io.EOF) || errors.Is(err, os.ErrDeadlineExceeded)) {
				return buf[:n], nil
			}
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
	}
	return buf[:n], nil
}

// requestComplete reports whether raw holds the full header block and as much
// body as its Content-Length announces.  A POST that announces no length is
// never complete; its body runs to the end of the stream.
func requestComplete(raw []byte) bool {
	end, sep := bytes.Index(raw, []byte("\r\n\r\n")), 4
	if end < 0 {
		end, sep = bytes.Index(raw, []byte("\n\n")), 2
	}
	if end < 0 {
		return false
	}
	header := raw[:end]
	if _, ok := headerValue(header, "Content-Length"); !ok && isPost(header) {
		return false
	}
	return len(raw)-end-sep >= contentLength(header)
}

// isPost reports whether the request line names the POST method.
func isPost(header []byte) bool {
	fields := bytes.Fields(header)
	return len(fields) > 0 && string(fields[0]) == "POST"
}

// headerValue returns the trimmed value of the first header named key.
func headerValue(header []byte, key string) (string, bool) {
	for _, line := range strings.Split(string(header), "\n") {
		k, v, ok := strings.Cut(strings.TrimRight(line, "\r"), ":")
		if ok && http.CanonicalHeaderKey(strings.TrimSpace(k)) == key {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// contentLength returns the Content-Length header value, or zero when it is
// missing or unparsable.
func contentLength(header []byte) int {
	v, ok := headerValue(header, "Content-Length")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

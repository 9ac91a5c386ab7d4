package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/relaydev/conductor/errs"
	"github.com/relaydev/conductor/logging"
)

const opServe = "ipc.Server.Serve"

// RequestTimeout bounds how long a single request may take to handle before
// the server gives up and reports a timeout to the client (spec §4.13).
const RequestTimeout = 10 * time.Second

// Handler dispatches one decoded Request to the daemon and returns its
// response payload (typically the Engine Manager, via a small adapter).
type Handler interface {
	Handle(ctx context.Context, cmd Command, args json.RawMessage) (any, error)
}

// Server accepts client connections on a Unix domain socket and dispatches
// each request line to a Handler (spec §4.13).
type Server struct {
	socketPath string
	handler    Handler
	log        *slog.Logger

	ln net.Listener
}

// NewServer constructs a Server bound to socketPath once Serve is called.
func NewServer(socketPath string, handler Handler) *Server {
	return &Server{socketPath: socketPath, handler: handler, log: logging.Get(logging.IPC)}
}

// Serve listens on the configured socket and handles connections until ctx
// is cancelled. The socket directory is created 0700 and the socket itself
// 0600, owner-only (spec §4.13/§9's permission-denied protections).
func (s *Server) Serve(ctx context.Context) error {
	dir := filepath.Dir(s.socketPath)
	if err := ensureOwnedDir(dir, 0o700); err != nil {
		return errs.Wrap(errs.KindIPC, opServe, err)
	}

	_ = os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return errs.Wrap(errs.KindIPC, opServe, err)
	}
	s.ln = ln
	defer ln.Close()
	defer os.Remove(s.socketPath)

	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		s.log.Warn("failed to set socket permissions", "error", err)
	}

	s.log.Info("IPC server listening", "path", s.socketPath)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errs.Wrap(errs.KindIPC, opServe, err)
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	r := bufio.NewReaderSize(conn, MaxRequestSize+1)
	w := bufio.NewWriter(conn)

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		if len(line) > MaxRequestSize {
			s.log.Warn("rejected oversized IPC request", "size", len(line))
			writeResponse(w, errorResponse("unknown", ErrInvalidRequest, "request too large"))
			continue
		}

		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			writeResponse(w, errorResponse("unknown", ErrInvalidJSON, err.Error()))
			continue
		}

		resp := s.dispatch(ctx, req)
		if err := writeResponse(w, resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req Request) Response {
	reqCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	type result struct {
		data any
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := s.handler.Handle(reqCtx, req.Command, req.Args)
		done <- result{data, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			switch {
			case errs.Is(r.err, errs.KindUnknownMode):
				return errorResponse(req.ID, ErrInvalidRequest, r.err.Error())
			case errs.Is(r.err, errs.KindUnknownCommand):
				return errorResponse(req.ID, ErrUnknownCommand, r.err.Error())
			case errs.Is(r.err, errs.KindValidation):
				return errorResponse(req.ID, ErrConfigValidationFailed, r.err.Error())
			case errs.Is(r.err, errs.KindNotImplemented):
				return errorResponse(req.ID, ErrNotImplemented, r.err.Error())
			default:
				return errorResponse(req.ID, ErrInternal, r.err.Error())
			}
		}
		return okResponse(req.ID, r.data)
	case <-reqCtx.Done():
		return errorResponse(req.ID, ErrTimeout, "request timed out")
	}
}

func writeResponse(w *bufio.Writer, resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	return w.Flush()
}

// ensureOwnedDir creates dir with the given mode if absent, and verifies an
// existing directory is owned by the current user before reusing it (spec
// §9: a socket directory owned by another user is a permission-denied
// condition, not something to silently adopt).
func ensureOwnedDir(dir string, mode os.FileMode) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return os.MkdirAll(dir, mode)
	}
	if err != nil {
		return err
	}
	stat, ok := info.Sys().(*unix.Stat_t)
	if ok && stat.Uid != uint32(os.Getuid()) {
		return errs.New(errs.KindPermissionDenied, "ipc.ensureOwnedDir", "socket directory not owned by current user")
	}
	return os.Chmod(dir, mode)
}

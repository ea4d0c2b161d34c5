package transport

import (
	"bufio"
	"errors"
	"net"
	"sync"

	pkgerrors "github.com/pkg/errors"
)

// LineHandler answers one decoded request line with the reply text to
// send back, plus an optional after func run once that reply has been
// written to the connection. after is where a handler stages any
// broadcast or side effect triggered by the request, so a slow or
// failed write never lets a broadcast reach subscribers ahead of the
// requesting client's own reply. It must never block on anything but
// the evaluation itself, RequestServer holds no lock of its own and
// expects the handler to do its own synchronization against the World.
type LineHandler func(line string) (reply string, after func())

// RequestServer is the request/reply endpoint: strict lock-step, one
// line in, one line out, repeated for the life of the connection. Each
// accepted connection gets its own goroutine, matching the plain
// accept-loop style used across this server's TCP endpoints.
type RequestServer struct {
	ln      net.Listener
	handler LineHandler
	wg      sync.WaitGroup

	closeOnce sync.Once
}

// NewRequestServer wraps an already-bound listener. Binding is the
// caller's job so startup failures surface before any goroutine starts.
func NewRequestServer(ln net.Listener, handler LineHandler) *RequestServer {
	return &RequestServer{ln: ln, handler: handler}
}

// Serve runs the accept loop until the listener is closed. It returns nil
// on a clean shutdown (Close was called) and a wrapped error on any other
// accept failure.
func (s *RequestServer) Serve() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			return pkgerrors.Wrap(err, "transport: request server accept")
		}
		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

func (s *RequestServer) serveConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		reply, after := s.handler(scanner.Text())
		if _, err := conn.Write([]byte(reply + "\n")); err != nil {
			return
		}
		if after != nil {
			after()
		}
	}
}

// Close stops accepting new connections. In-flight connections are left
// to drain on their own; shutdown only requires that new requests stop
// being accepted before the terminate topic publishes.
func (s *RequestServer) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.ln.Close()
	})
	return err
}

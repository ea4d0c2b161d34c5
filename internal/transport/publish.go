package transport

import (
	"encoding/binary"
	"errors"
	"net"
	"sync"
	"sync/atomic"

	pkgerrors "github.com/pkg/errors"

	"outerspace/internal/observability"
)

// clientBacklog is the per-subscriber outbound buffer depth. A subscriber
// slower than this drops its oldest queued message rather than stalling
// the broadcaster, the publish channel is lossy by contract: reliable
// delivery of the broadcast stream is not guaranteed.
const clientBacklog = 4

// PublishServer is the topic-tagged publish endpoint. Every accepted
// connection becomes a subscriber; Broadcast fans a multipart message out
// to all of them without blocking on any single slow reader, mirroring
// a ring-buffer drop-oldest design.
type PublishServer struct {
	ln net.Listener

	mu      sync.Mutex
	clients map[uint64]chan []byte
	nextID  uint64

	wg        sync.WaitGroup
	closeOnce sync.Once

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// NewPublishServer wraps an already-bound listener.
func NewPublishServer(ln net.Listener) *PublishServer {
	return &PublishServer{ln: ln, clients: make(map[uint64]chan []byte)}
}

// Serve runs the accept loop until the listener is closed.
func (s *PublishServer) Serve() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			return pkgerrors.Wrap(err, "transport: publish server accept")
		}
		id, ch := s.register()
		s.wg.Add(1)
		go s.serveClient(id, conn, ch)
	}
}

func (s *PublishServer) register() (uint64, chan []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	ch := make(chan []byte, clientBacklog)
	s.clients[id] = ch
	return id, ch
}

func (s *PublishServer) unregister(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.clients[id]; ok {
		delete(s.clients, id)
		close(ch)
	}
}

func (s *PublishServer) serveClient(id uint64, conn net.Conn, ch chan []byte) {
	defer s.wg.Done()
	defer conn.Close()
	defer s.unregister(id)

	for msg := range ch {
		if _, err := conn.Write(msg); err != nil {
			return
		}
	}
}

// Broadcast encodes frames as one multipart message and fans it out to
// every connected subscriber. A subscriber whose outbound buffer is full
// has its oldest queued message dropped to make room, Broadcast itself
// never blocks.
func (s *PublishServer) Broadcast(frames ...[]byte) {
	msg := EncodeMultipart(frames...)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.clients {
		select {
		case ch <- msg:
			s.sent.Add(1)
			continue
		default:
		}
		select {
		case <-ch:
			s.dropped.Add(1)
			observability.RecordSubscriberDrop()
		default:
		}
		select {
		case ch <- msg:
			s.sent.Add(1)
		default:
			s.dropped.Add(1)
			observability.RecordSubscriberDrop()
		}
	}
}

// Stats reports cumulative sent/dropped message counts across all
// subscribers, for observability.
func (s *PublishServer) Stats() (sent, dropped uint64) {
	return s.sent.Load(), s.dropped.Load()
}

// SubscriberCount reports how many clients are currently connected.
func (s *PublishServer) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close stops accepting connections and disconnects every subscriber.
func (s *PublishServer) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.ln.Close()
		s.mu.Lock()
		for id, ch := range s.clients {
			delete(s.clients, id)
			close(ch)
		}
		s.mu.Unlock()
	})
	return err
}

// EncodeMultipart frames a sequence of byte slices as: 1-byte frame
// count, then for each frame a 4-byte little-endian length followed by
// its payload. This is the wire envelope around the three-frame
// snapshot ([topic][roster][world blob]) and single-frame terminate
// message, a stream transport has no native multipart message the way
// a native pub/sub socket would, so the envelope makes frame boundaries
// explicit.
func EncodeMultipart(frames ...[]byte) []byte {
	size := 1
	for _, f := range frames {
		size += 4 + len(f)
	}
	buf := make([]byte, size)
	buf[0] = byte(len(frames))
	off := 1
	for _, f := range frames {
		binary.LittleEndian.PutUint32(buf[off:], uint32(len(f)))
		off += 4
		copy(buf[off:], f)
		off += len(f)
	}
	return buf
}

// DecodeMultipart reverses EncodeMultipart, for subscriber-side tests and
// reference display clients.
func DecodeMultipart(buf []byte) ([][]byte, error) {
	if len(buf) < 1 {
		return nil, pkgerrors.New("transport: empty multipart message")
	}
	count := int(buf[0])
	off := 1
	frames := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		if len(buf) < off+4 {
			return nil, pkgerrors.New("transport: truncated frame length")
		}
		n := int(binary.LittleEndian.Uint32(buf[off:]))
		off += 4
		if len(buf) < off+n {
			return nil, pkgerrors.New("transport: truncated frame payload")
		}
		frames = append(frames, buf[off:off+n])
		off += n
	}
	return frames, nil
}

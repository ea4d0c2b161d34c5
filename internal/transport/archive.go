package transport

import (
	"log/slog"
	"net"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
)

// ArchiveClient is the optional score-archive sink: a PUSH-style client
// that dials out to an external archival listener and streams
// length-prefixed gob records (internal/codec.EncodeScoreArchive) as
// shooters score kills. Unlike the publish/subscribe transport, nothing
// ever connects in, the game server is the one reaching out.
type ArchiveClient struct {
	addr string
	log  *slog.Logger

	mu       sync.Mutex
	conn     net.Conn
	lastDial time.Time

	pushed  int
	dropped int
}

// redialBackoff bounds how often a failed dial is retried, so a
// permanently unreachable archive sink never turns Push into a busy loop.
const redialBackoff = 2 * time.Second

// NewArchiveClient builds a client targeting addr. Dialing happens lazily
// on the first Push, and again after any write failure.
func NewArchiveClient(addr string, log *slog.Logger) *ArchiveClient {
	if log == nil {
		log = slog.Default()
	}
	return &ArchiveClient{addr: addr, log: log}
}

// Push sends one already-encoded archive frame. Failures are logged and
// swallowed, not returned, since the archive sink is advisory: a down
// archive listener must never affect gameplay.
func (c *ArchiveClient) Push(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if !c.dial() {
			c.dropped++
			return
		}
	}

	if _, err := c.conn.Write(frame); err != nil {
		c.log.Warn("archive push failed, will redial", "addr", c.addr, "error", err)
		c.conn.Close()
		c.conn = nil
		c.dropped++
		return
	}
	c.pushed++
}

// dial connects to the archive sink, rate-limited by redialBackoff so a
// permanently absent sink doesn't busy-loop Push. Caller must hold c.mu.
func (c *ArchiveClient) dial() bool {
	if time.Since(c.lastDial) < redialBackoff {
		return false
	}
	c.lastDial = time.Now()

	conn, err := net.DialTimeout("tcp", c.addr, time.Second)
	if err != nil {
		c.log.Warn("archive sink unreachable", "error", pkgerrors.Wrap(err, "dial archive sink"))
		return false
	}
	c.conn = conn
	return true
}

// Close releases the archive sink connection, if any.
func (c *ArchiveClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Stats reports pushed/dropped frame counts, for operator diagnostics.
func (c *ArchiveClient) Stats() (pushed, dropped int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pushed, c.dropped
}

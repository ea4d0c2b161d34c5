// Package scheduler runs the three concurrent logical tasks the game
// needs: command handling, target drift, and growth waves, plus the
// operator shutdown watcher, all serialized against a single World
// through one mutex. This is the only package that ever holds that lock.
package scheduler

import (
	"bufio"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"sync"
	"time"

	"outerspace/internal/codec"
	"outerspace/internal/observability"
	"outerspace/internal/rules"
	"outerspace/internal/world"
)

// Broadcaster is the narrow publish-side interface the scheduler needs;
// internal/transport.PublishServer satisfies it.
type Broadcaster interface {
	Broadcast(frames ...[]byte)
}

// ArchivePusher is the narrow interface for the optional score-archive
// sink.
type ArchivePusher interface {
	Push(frame []byte)
}

// Config holds the scheduler's own timing knobs, separate from rules.Config
// which governs stun/cooldown/beam behavior.
type Config struct {
	DriftInterval time.Duration
}

// DefaultConfig returns the game's ~1 Hz drift cadence.
func DefaultConfig() Config {
	return Config{DriftInterval: time.Second}
}

// Scheduler owns the World and every task that mutates it.
type Scheduler struct {
	mu    sync.Mutex
	world *world.World
	rules rules.Config
	cfg   Config
	rng   *rand.Rand

	pub     Broadcaster
	archive ArchivePusher
	log     *slog.Logger

	stopAccepting func()

	stopCh     chan struct{}
	stopOnce   sync.Once
	terminated chan struct{}
	exitCode   int
	wg         sync.WaitGroup
}

// New builds a Scheduler around an already-initialized World. rng is used
// by every task that needs randomness (admission placement, drift,
// growth) and must not be shared with any other goroutine.
func New(w *world.World, rulesCfg rules.Config, cfg Config, rng *rand.Rand, pub Broadcaster, archive ArchivePusher, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		world:      w,
		rules:      rulesCfg,
		cfg:        cfg,
		rng:        rng,
		pub:        pub,
		archive:    archive,
		log:        log,
		stopCh:     make(chan struct{}),
		terminated: make(chan struct{}),
	}
}

// Run starts the drift ticker, growth ticker and (when quitInput is
// non-nil) the operator shutdown watcher, then blocks until Shutdown is called
// from any source, a command that depletes the targets, the operator
// key, or an upstream signal, and returns the process exit code the CLI
// reports (0 for clean shutdown).
func (s *Scheduler) Run(quitInput io.Reader) int {
	s.wg.Add(2)
	go s.driftLoop()
	go s.growthLoop()
	if quitInput != nil {
		go s.shutdownWatcher(quitInput)
	}

	<-s.stopCh
	s.wg.Wait()
	return s.exitCode
}

// Submit is the command task: decode is the caller's job, Submit
// evaluates the already-decoded command against the World under lock
// and stages a snapshot buffer while still holding the lock. It returns
// the reply text for the requesting client plus an after func that
// carries every side effect the command triggered (broadcast, archive
// push, depletion shutdown). Callers MUST NOT invoke after until the
// reply has been delivered to the requesting client: the transport
// layer calls it only once conn.Write has succeeded, so a broadcast
// for command N can never reach subscribers before N's own reply does.
func (s *Scheduler) Submit(cmd rules.Command) (reply string, after func()) {
	s.mu.Lock()
	start := time.Now()
	result := rules.Evaluate(s.world, cmd, start, s.rng, s.rules)

	var topic, roster, blob []byte
	var archiveFrame []byte
	if result.Broadcast {
		topic, roster, blob = s.snapshotFramesLocked(result.Trail)
	}
	if result.ScoreDelta > 0 && s.archive != nil {
		archiveFrame = s.archiveFrameLocked()
	}
	shooters := s.occupiedShootersLocked()
	targets := len(s.world.Targets)
	generation := s.world.Generation
	s.mu.Unlock()

	observability.RecordCommand(commandKindLabel(cmd.Kind), commandOutcomeLabel(result.Reply), time.Since(start).Seconds())
	observability.UpdateWorldGauges(shooters, targets, generation)

	depleted := result.Depleted
	return result.Reply, func() {
		if result.Broadcast {
			observability.RecordBroadcast()
			s.pub.Broadcast(topic, roster, blob)
		}
		if archiveFrame != nil {
			s.archive.Push(archiveFrame)
		}
		if depleted {
			s.shutdown(0, "target population depleted")
		}
	}
}

func (s *Scheduler) occupiedShootersLocked() int {
	n := 0
	for i := range s.world.Slots {
		if s.world.Slots[i].Occupied {
			n++
		}
	}
	return n
}

// commandKindLabel maps a command kind to the bounded-cardinality label
// observability.RecordCommand expects.
func commandKindLabel(kind rules.Kind) string {
	switch kind {
	case rules.KindJoin:
		return "join"
	case rules.KindMove:
		return "move"
	case rules.KindShoot:
		return "shoot"
	case rules.KindDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// commandOutcomeLabel classifies a reply string into the bounded
// "ok" / "refused" / "invalid_token" outcome label.
func commandOutcomeLabel(reply string) string {
	switch reply {
	case rules.ReplyInvalidToken:
		return "invalid_token"
	case rules.ReplyGameFull, rules.ReplyInvalidMessage, rules.ReplyMoveRefused,
		rules.ReplyMoveStunned, rules.ReplyShootStunned, rules.ReplyShootCooldown:
		return "refused"
	default:
		return "ok"
	}
}

func (s *Scheduler) driftLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.DriftInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.mu.Lock()
			rules.DriftTargets(s.world, s.rng)
			topic, roster, blob := s.snapshotFramesLocked(nil)
			s.mu.Unlock()
			observability.RecordBroadcast()
			s.pub.Broadcast(topic, roster, blob)
		}
	}
}

func (s *Scheduler) growthLoop() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		due, next := rules.GrowthDue(s.world, time.Now())
		s.mu.Unlock()

		if !due {
			timer := time.NewTimer(time.Until(next))
			select {
			case <-s.stopCh:
				timer.Stop()
				return
			case <-timer.C:
			}
			continue
		}

		s.mu.Lock()
		added := rules.Growth(s.world, time.Now(), s.rng)
		topic, roster, blob := s.snapshotFramesLocked(nil)
		s.mu.Unlock()
		s.log.Info("growth wave", "added", added)
		observability.RecordBroadcast()
		s.pub.Broadcast(topic, roster, blob)

		select {
		case <-s.stopCh:
			return
		default:
		}
	}
}

// shutdownWatcher reads single bytes from quitInput (normally os.Stdin)
// looking for the operator quit key. This read is never cancelled
// directly: it is a blocking wait outside the lock, and process exit
// reclaims it.
func (s *Scheduler) shutdownWatcher(quitInput io.Reader) {
	r := bufio.NewReader(quitInput)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return
		}
		if b == 'Q' || b == 'q' {
			s.shutdown(0, "operator quit key")
			return
		}
	}
}

// Shutdown begins ordered shutdown in response to an upstream signal
// (SIGINT/SIGTERM). It is safe to call from any goroutine and safe to
// call more than once.
func (s *Scheduler) Shutdown() {
	s.shutdown(0, "upstream signal")
}

// SetStopAccepting installs the hook shutdown runs first, before it
// publishes the terminate broadcast: new connections must stop being
// accepted before any client learns the game is over. Callers
// (cmd/server) wire this to the request listener's Close.
func (s *Scheduler) SetStopAccepting(fn func()) {
	s.stopAccepting = fn
}

func (s *Scheduler) shutdown(exitCode int, reason string) {
	s.stopOnce.Do(func() {
		s.log.Info("shutting down", "reason", reason)
		s.exitCode = exitCode
		if s.stopAccepting != nil {
			s.stopAccepting()
		}
		s.pub.Broadcast([]byte(codec.TopicTerminate))
		s.printFinalScoreboard()
		close(s.terminated)
		close(s.stopCh)
	})
}

// Terminated returns a channel closed once shutdown has begun, for
// callers (main) that need to know without polling.
func (s *Scheduler) Terminated() <-chan struct{} {
	return s.terminated
}

func (s *Scheduler) printFinalScoreboard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.world.Slots {
		slot := &s.world.Slots[i]
		if slot.Occupied {
			s.log.Info("final score", "glyph", string(world.Glyph(i)), "score", slot.Score)
		}
	}
}

// snapshotFramesLocked builds the three-frame snapshot message from the
// World's current state. Callers must hold s.mu. A non-empty trail is
// painted onto a throwaway copy of the board bytes for this one
// broadcast only, the World's own board is never touched by it.
func (s *Scheduler) snapshotFramesLocked(trail []rules.TrailMark) (topic, roster, blob []byte) {
	s.world.Render()
	roster = codec.EncodeRoster(s.world)
	blob = codec.EncodeWorldBlob(s.world)
	if len(trail) > 0 {
		boardOffset := codec.BoardOffset(s.world)
		boardBytes := blob[boardOffset : boardOffset+s.world.Board.Size()*s.world.Board.Size()]
		codec.ApplyTrail(boardBytes, s.world.Board.Size(), trail)
	}
	return []byte(codec.TopicSnapshot), roster, blob
}

func (s *Scheduler) archiveFrameLocked() []byte {
	frame, err := codec.EncodeScoreArchive(s.world)
	if err != nil {
		s.log.Warn("score archive encode failed", "error", err)
		return nil
	}
	return frame
}

// NewRNG seeds a *rand.Rand the way the CLI's --seed flag expects: seed 0
// falls back to a time-derived seed so runs are non-deterministic by
// default, so the server runs with no required flags.
func NewRNG(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// StdinQuitInput is the default operator shutdown watcher input source.
var StdinQuitInput io.Reader = os.Stdin

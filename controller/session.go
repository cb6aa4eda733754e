// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/konnekt/session/acl"
	"github.com/konnekt/session/authority"
	"github.com/konnekt/session/identity"
	"github.com/konnekt/session/internal/logger"
	"github.com/konnekt/session/internal/metrics"
	"github.com/konnekt/session/konnekterr"
	"github.com/konnekt/session/lobby"
	"github.com/konnekt/session/ordering"
	"github.com/konnekt/session/transport"
	"github.com/konnekt/session/wire"
)

// Options configures a Session's timing and bookkeeping. Every field
// has a spec.md §6 default; zero-value fields are filled in by
// NewHost/NewGuest.
type Options struct {
	Ordering         ordering.Config
	Liveness         ordering.LivenessConfig
	HeartbeatInterval time.Duration
	ActivityTickInterval time.Duration
	JoinTimeout      time.Duration
	SentLogBound     int
	Logger           logger.Logger
	Metrics          *metrics.Collector
}

// DefaultOptions returns the spec.md §6 defaults.
func DefaultOptions() Options {
	return Options{
		Ordering:             ordering.DefaultConfig(),
		Liveness:             ordering.DefaultLivenessConfig(),
		HeartbeatInterval:    ordering.DefaultHeartbeatInterval,
		ActivityTickInterval: 60 * time.Second,
		JoinTimeout:          10 * time.Second,
		SentLogBound:         256,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Ordering == (ordering.Config{}) {
		o.Ordering = d.Ordering
	}
	if o.Liveness == (ordering.LivenessConfig{}) {
		o.Liveness = d.Liveness
	}
	if o.HeartbeatInterval == 0 {
		o.HeartbeatInterval = d.HeartbeatInterval
	}
	if o.ActivityTickInterval == 0 {
		o.ActivityTickInterval = d.ActivityTickInterval
	}
	if o.JoinTimeout == 0 {
		o.JoinTimeout = d.JoinTimeout
	}
	if o.SentLogBound == 0 {
		o.SentLogBound = d.SentLogBound
	}
	if o.Logger == nil {
		o.Logger = logger.NewDefaultLogger()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.NewCollector()
	}
	return o
}

// Result is delivered on the channel Submit returns.
type Result struct {
	Events []lobby.DomainEvent
	Err    *konnekterr.CommandFailure
}

// Session is the facade spec.md §4.I describes: one mailbox goroutine
// owns every mutable field below, reached only through ops (internal
// closures queued by Submit/Subscribe/Status) or the transport/ticker
// cases of run(). Nothing outside this package ever touches lobby,
// auth or guard directly, so there is exactly one writer and the
// single-owner concurrency model needs no further locking at this
// layer (package lobby's own mutex exists only to let its exported
// Export/Snapshot be called without tearing the run loop's view).
type Session struct {
	opts   Options
	selfID identity.PeerID
	key    *identity.ScopedKey

	displayName string
	tr          transport.Transport
	guard       *ordering.Guard
	auth        *authority.Authority
	lobby       *lobby.Lobby

	outSeq    uint64
	sentLog   map[uint64]wire.Envelope
	sentOrder []uint64

	listeners []func(lobby.DomainEvent)

	pendingJoinReady chan error

	ops  chan func()
	done chan struct{}
	wg   sync.WaitGroup

	now func() time.Time

	log logger.Logger
	met *metrics.Collector
}

func newSession(opts Options, kp identity.Keypair, displayName string, tr transport.Transport) *Session {
	opts = opts.withDefaults()
	return &Session{
		opts:        opts,
		selfID:      kp.PeerID(),
		key:         identity.NewScopedKey(kp),
		displayName: displayName,
		tr:          tr,
		guard:       ordering.New(opts.Ordering),
		sentLog:     make(map[uint64]wire.Envelope),
		ops:         make(chan func(), 32),
		done:        make(chan struct{}),
		now:         time.Now,
		log:         opts.Logger,
		met:         opts.Metrics,
	}
}

func (s *Session) start() {
	s.wg.Add(1)
	go s.run()
}

// NewHost creates a brand-new lobby with the local keypair as its sole
// participant and host, and starts the Session's mailbox goroutine.
func NewHost(kp identity.Keypair, displayName, lobbyName, password string, maxGuests int, tr transport.Transport, opts Options) (*Session, error) {
	l, _, err := lobby.New(lobbyName, password, maxGuests, kp.PeerID(), displayName)
	if err != nil {
		return nil, err
	}
	s := newSession(opts, kp, displayName, tr)
	s.lobby = l
	s.auth = authority.New(kp.PeerID())
	s.start()
	return s, nil
}

// NewGuest joins an existing lobby reachable through tr by sending a
// JoinRequest to hostID and blocking until the host admits it (LobbySync)
// or rejects it (JoinRejected), or opts.JoinTimeout elapses. spec.md has
// no bootstrap protocol of its own; see lobby.State and DESIGN.md.
func NewGuest(ctx context.Context, kp identity.Keypair, displayName, password string, hostID identity.PeerID, tr transport.Transport, opts Options) (*Session, error) {
	s := newSession(opts, kp, displayName, tr)
	s.start()

	ready := make(chan error, 1)
	queued := make(chan struct{})
	op := func() {
		s.pendingJoinReady = ready
		payload, err := acl.EncodeRequest(acl.KindJoinRequest, acl.JoinRequest{DisplayName: displayName, Password: password})
		if err != nil {
			ready <- err
			close(queued)
			return
		}
		env := s.sign(payload)
		if err := s.tr.Unicast(context.Background(), hostID, env); err != nil {
			ready <- err
		}
		close(queued)
	}

	select {
	case s.ops <- op:
	case <-s.done:
		return nil, errors.New("controller: session already closed")
	}
	<-queued

	select {
	case err := <-ready:
		if err != nil {
			_ = s.Shutdown(context.Background())
			return nil, err
		}
		return s, nil
	case <-ctx.Done():
		_ = s.Shutdown(context.Background())
		return nil, ctx.Err()
	case <-time.After(s.opts.JoinTimeout):
		_ = s.Shutdown(context.Background())
		return nil, errors.New("controller: join request timed out")
	}
}

// Submit queues cmd for execution on the mailbox goroutine and returns
// a channel that receives exactly one Result.
func (s *Session) Submit(cmd Command) <-chan Result {
	result := make(chan Result, 1)
	op := func() {
		events, fail := s.dispatch(cmd)
		result <- Result{Events: events, Err: fail}
	}
	select {
	case s.ops <- op:
	case <-s.done:
		result <- Result{Err: konnekterr.Fail(konnekterr.ReasonArchived, "session closed")}
	}
	return result
}

// Subscribe registers listener to be called, from the mailbox
// goroutine, with every domain event this Session applies — whether
// produced locally (as host) or received over the wire. listener must
// not block or call back into Session.
func (s *Session) Subscribe(listener func(lobby.DomainEvent)) {
	done := make(chan struct{})
	op := func() {
		s.listeners = append(s.listeners, listener)
		close(done)
	}
	select {
	case s.ops <- op:
		<-done
	case <-s.done:
	}
}

// Status returns a consistent snapshot of the replicated lobby state.
func (s *Session) Status() Snapshot {
	result := make(chan Snapshot, 1)
	op := func() { result <- s.buildSnapshot() }
	select {
	case s.ops <- op:
		return <-result
	case <-s.done:
		return Snapshot{}
	}
}

// Shutdown stops the mailbox goroutine, zeroes the held private key and
// closes the transport. It is safe to call more than once.
func (s *Session) Shutdown(ctx context.Context) error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}

	stopped := make(chan struct{})
	go func() { s.wg.Wait(); close(stopped) }()
	select {
	case <-stopped:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.key.Zero()
	return s.tr.Close()
}

func (s *Session) run() {
	defer s.wg.Done()

	heartbeat := time.NewTicker(s.opts.HeartbeatInterval)
	defer heartbeat.Stop()
	liveness := time.NewTicker(time.Second)
	defer liveness.Stop()
	activityTick := time.NewTicker(s.opts.ActivityTickInterval)
	defer activityTick.Stop()

	for {
		select {
		case op := <-s.ops:
			op()

		case env, ok := <-s.tr.Incoming():
			if !ok {
				return
			}
			s.processEnvelope(env)

		case _, ok := <-s.tr.PeerEvents():
			if !ok {
				return
			}
			// Liveness is derived from heartbeat staleness in package
			// ordering, not transport-level connect/disconnect, so
			// there is nothing further to do here.

		case <-heartbeat.C:
			s.onHeartbeatTick()

		case <-liveness.C:
			s.onLivenessTick()

		case <-activityTick.C:
			s.onActivityTick()

		case <-s.done:
			return
		}
	}
}

func (s *Session) isHost() bool {
	return s.lobby != nil && s.auth.HostID() == s.selfID
}

func (s *Session) notifyAll(events []lobby.DomainEvent) {
	for _, ev := range events {
		for _, l := range s.listeners {
			l(ev)
		}
	}
}

func (s *Session) sign(payload []byte) wire.Envelope {
	kp, ok := s.key.Keypair()
	if !ok {
		return wire.Envelope{}
	}
	seq := s.outSeq
	s.outSeq++
	env := wire.New(kp, seq, s.now().UnixMilli(), payload)
	s.recordSent(env)
	return env
}

func (s *Session) recordSent(env wire.Envelope) {
	s.sentLog[env.Seq] = env
	s.sentOrder = append(s.sentOrder, env.Seq)
	if len(s.sentOrder) > s.opts.SentLogBound {
		oldest := s.sentOrder[0]
		s.sentOrder = s.sentOrder[1:]
		delete(s.sentLog, oldest)
	}
}

func (s *Session) broadcastEvents(events []lobby.DomainEvent) {
	for _, ev := range events {
		payload, err := acl.Encode(ev)
		if err != nil {
			s.log.Error("controller: encode event failed", logger.Error(err))
			continue
		}
		env := s.sign(payload)
		if err := s.tr.Broadcast(context.Background(), env); err != nil {
			s.log.Warn("controller: broadcast failed", logger.Error(err))
			continue
		}
		s.met.EnvelopesSent.WithLabelValues("broadcast").Inc()
	}
}

func (s *Session) forwardRequest(kind acl.MessageKind, request any) {
	if s.lobby == nil {
		return
	}
	payload, err := acl.EncodeRequest(kind, request)
	if err != nil {
		s.log.Error("controller: encode request failed", logger.Error(err))
		return
	}
	env := s.sign(payload)
	if err := s.tr.Unicast(context.Background(), s.auth.HostID(), env); err != nil {
		s.log.Warn("controller: unicast request failed", logger.Error(err), logger.String("kind", string(kind)))
		return
	}
	s.met.EnvelopesSent.WithLabelValues("unicast").Inc()
}

func (s *Session) runHost(events []lobby.DomainEvent, fail *konnekterr.CommandFailure) ([]lobby.DomainEvent, *konnekterr.CommandFailure) {
	if fail != nil {
		return nil, fail
	}
	s.notifyAll(events)
	s.broadcastEvents(events)
	return events, nil
}

func (s *Session) dispatch(cmd Command) ([]lobby.DomainEvent, *konnekterr.CommandFailure) {
	if s.lobby == nil {
		return nil, konnekterr.Fail(konnekterr.ReasonArchived, "session not yet joined")
	}

	result := func(events []lobby.DomainEvent, fail *konnekterr.CommandFailure) ([]lobby.DomainEvent, *konnekterr.CommandFailure) {
		outcome := "ok"
		if fail != nil {
			outcome = string(fail.Reason)
		}
		s.met.CommandsHandled.WithLabelValues(commandLabel(cmd), outcome).Inc()
		return events, fail
	}

	switch c := cmd.(type) {
	case LeaveCommand:
		if s.isHost() {
			return result(s.runHost(s.lobby.Leave(s.selfID)))
		}
		s.forwardRequest(acl.KindLeaveRequest, acl.LeaveRequest{})
		return result(nil, nil)

	case KickCommand:
		if !s.isHost() {
			return result(nil, konnekterr.Fail(konnekterr.ReasonNotAuthorized, ""))
		}
		return result(s.runHost(s.lobby.Kick(s.selfID, c.Target)))

	case ToggleModeCommand:
		target := c.Target
		if target == (identity.PeerID{}) {
			target = s.selfID
		}
		if s.isHost() {
			return result(s.runHost(s.lobby.ToggleParticipationMode(s.selfID, target)))
		}
		if target != s.selfID {
			return result(nil, konnekterr.Fail(konnekterr.ReasonNotAuthorized, ""))
		}
		s.forwardRequest(acl.KindToggleModeRequest, acl.ToggleModeRequest{})
		return result(nil, nil)

	case ChangePasswordCommand:
		if !s.isHost() {
			return result(nil, konnekterr.Fail(konnekterr.ReasonNotAuthorized, ""))
		}
		return result(s.runHost(s.lobby.ChangePassword(s.selfID, c.NewPassword)))

	case CloseCommand:
		if !s.isHost() {
			return result(nil, konnekterr.Fail(konnekterr.ReasonNotAuthorized, ""))
		}
		return result(s.runHost(s.lobby.Close(s.selfID)))

	case PlanActivityCommand:
		if !s.isHost() {
			return result(nil, konnekterr.Fail(konnekterr.ReasonNotAuthorized, ""))
		}
		return result(s.runHost(s.lobby.PlanActivity(s.selfID, c.Kind, c.Config)))

	case StartActivityCommand:
		if !s.isHost() {
			return result(nil, konnekterr.Fail(konnekterr.ReasonNotAuthorized, ""))
		}
		return result(s.runHost(s.lobby.StartActivity(s.selfID, c.ActivityID)))

	case SubmitResultCommand:
		if s.isHost() {
			return result(s.runHost(s.lobby.SubmitResult(s.selfID, c.ActivityID, c.Score, c.ElapsedMs)))
		}
		s.forwardRequest(acl.KindSubmitResultRequest, acl.SubmitResultRequest{
			ActivityID: c.ActivityID, Score: c.Score, ElapsedMs: c.ElapsedMs,
		})
		return result(nil, nil)

	case CancelActivityCommand:
		if !s.isHost() {
			return result(nil, konnekterr.Fail(konnekterr.ReasonNotAuthorized, ""))
		}
		return result(s.runHost(s.lobby.CancelActivity(s.selfID, c.ActivityID)))

	case DelegateHostCommand:
		if !s.isHost() {
			return result(nil, konnekterr.Fail(konnekterr.ReasonNotAuthorized, ""))
		}
		events, fail := s.lobby.DelegateHost(c.NewHost)
		if fail != nil {
			return result(nil, fail)
		}
		s.auth.SetHost(c.NewHost)
		return result(s.runHost(events, nil))

	case HostReclaimCommand:
		s.forwardRequest(acl.KindHostReclaimRequest, acl.HostReclaimRequest{
			Fingerprint: s.selfID.String(), DisplayName: s.displayName,
		})
		return result(nil, nil)

	default:
		return result(nil, konnekterr.Fail(konnekterr.ReasonUnknownKind, fmt.Sprintf("%T", cmd)))
	}
}

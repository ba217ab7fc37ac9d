// Package orchestrator runs one conversation session: it owns the
// interaction state machine, the message log, and the pending
// permission slot, and serializes every mutation through a single
// event loop goroutine.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/domain"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/protocol"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/state"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/transport"
)

// Persistence is the slice of the store the orchestrator needs. The
// full repository satisfies it.
type Persistence interface {
	GetFacts(ctx context.Context, userID string) ([]domain.MemoryEntry, error)
	SaveFact(ctx context.Context, userID, content string) (bool, error)
	ClearFacts(ctx context.Context, userID string) error
	GetHistory(ctx context.Context, userID string) ([]domain.Message, error)
	SaveHistory(ctx context.Context, userID string, messages []domain.Message) error
	ClearHistory(ctx context.Context, userID string) error
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error
}

// Snapshot is the render-ready view of a session, pushed to the
// rendering layer after every observable change.
type Snapshot struct {
	State    state.State           `json:"state"`
	Messages []domain.Message      `json:"messages"`
	Pending  *domain.PendingAction `json:"pendingAction,omitempty"`
}

// Config configures a session.
type Config struct {
	Machine state.Config

	// Notifications supplies the current unread system notifications
	// for prompt context. May be nil.
	Notifications func() []domain.SysNotification

	// OnRender receives every snapshot. Must not block: it runs on the
	// session's event loop.
	OnRender func(Snapshot)

	// OnLogout fires after the logout animation completes, so the
	// owning connection can tear the session down.
	OnLogout func()
}

// Session is a per-user conversation actor. All state lives behind one
// goroutine; exported methods only post events onto its loop and are
// safe to call from any goroutine.
type Session struct {
	user      domain.UserSession
	repo      Persistence
	transport transport.Transport
	machine   *state.Machine
	sched     *state.Scheduler
	cfg       Config

	events chan func()
	ctx    context.Context
	cancel context.CancelFunc

	messages []domain.Message
	pending  *domain.PendingAction
}

// NewSession creates and starts a session actor for an authenticated
// user. Close must be called to release its goroutine.
func NewSession(user domain.UserSession, repo Persistence, tr transport.Transport, cfg Config) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		user:      user,
		repo:      repo,
		transport: tr,
		cfg:       cfg,
		events:    make(chan func(), 64),
		ctx:       ctx,
		cancel:    cancel,
	}
	s.sched = state.NewScheduler(s.post)
	s.machine = state.NewMachine(cfg.Machine, s.sched, func(state.State) { s.render() })
	go s.run()
	return s
}

// Close stops the event loop and cancels every pending timer and
// in-flight transport call.
func (s *Session) Close() {
	s.cancel()
}

// User returns the session owner.
func (s *Session) User() domain.UserSession {
	return s.user
}

func (s *Session) run() {
	for {
		select {
		case fn := <-s.events:
			s.safely(fn)
		case <-s.ctx.Done():
			s.sched.CancelAll()
			return
		}
	}
}

// safely confines a panicking event to a visible alert instead of
// killing the loop.
func (s *Session) safely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Session event panicked", "user_id", s.user.UserID, "panic", r)
			s.machine.ReportAnomaly()
			s.render()
		}
	}()
	fn()
}

// post marshals fn onto the event loop. Events posted after Close are
// dropped.
func (s *Session) post(fn func()) {
	select {
	case s.events <- fn:
	case <-s.ctx.Done():
	}
}

// Start boots the session. A fresh login plays the full authentication
// animation; a resumed session only boots.
func (s *Session) Start(fresh bool) {
	s.post(func() {
		if history, err := s.repo.GetHistory(s.ctx, s.user.UserID); err != nil {
			slog.Error("Failed to load history", "user_id", s.user.UserID, "error", err)
		} else {
			s.messages = history
		}
		s.machine.SetLogDepth(len(s.messages))
		if fresh && !s.cfg.Machine.SingleUser {
			s.machine.StartAuthenticating()
		} else {
			s.machine.StartBoot()
		}
		s.render()
	})
}

// Focus reports the input gaining focus.
func (s *Session) Focus(empty bool) {
	s.post(func() { s.machine.Focus(empty) })
}

// Blur reports the input losing focus.
func (s *Session) Blur() {
	s.post(func() { s.machine.Blur() })
}

// InputChanged reports a keystroke in the input.
func (s *Session) InputChanged(empty bool) {
	s.post(func() { s.machine.InputChanged(empty) })
}

// Activity reports pointer movement or scrolling.
func (s *Session) Activity() {
	s.post(func() { s.machine.Activity() })
}

// Power reports an ambient power change.
func (s *Session) Power(charging bool) {
	s.post(func() { s.machine.SetPower(charging) })
}

// Anomaly reports a rendering-layer failure.
func (s *Session) Anomaly() {
	s.post(func() {
		s.machine.ReportAnomaly()
		s.render()
	})
}

// Submit sends a user utterance. Empty input is ignored, and nothing is
// accepted while a turn is in flight or a permission decision pends.
func (s *Session) Submit(text string) {
	s.post(func() { s.submit(text) })
}

// Decide resolves the pending permission request. The decision itself
// goes back through the transport as a new turn.
func (s *Session) Decide(allowed bool) {
	s.post(func() { s.decide(allowed) })
}

func (s *Session) submit(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	switch s.machine.Current() {
	case state.Processing, state.SystemSearching, state.AwaitingPermission,
		state.Unauthenticated, state.Authenticating, state.Booting:
		return
	}

	s.appendMessage(domain.RoleUser, text)
	s.touchLastSeen()
	s.render()

	if transport.IsSystemQuery(text) {
		// Telemetry questions hold in SystemSearching before the turn
		// actually starts.
		s.machine.BeginSearch(func() { s.beginTurn(text) })
		return
	}
	s.beginTurn(text)
}

func (s *Session) decide(allowed bool) {
	if s.machine.Current() != state.AwaitingPermission || s.pending == nil {
		return
	}
	verdict := "[DENIED]"
	if allowed {
		verdict = "[AUTHORIZED]"
	}
	text := fmt.Sprintf("%s: %s", verdict, s.pending.Description)
	s.pending = nil

	s.appendMessage(domain.RoleUser, text)
	s.render()
	s.beginTurn(text)
}

// beginTurn enters Processing and runs the transport call off-loop,
// posting the completion back as an event.
func (s *Session) beginTurn(text string) {
	s.machine.BeginProcessing()
	s.render()

	req := transport.TurnRequest{
		UserID:    s.user.UserID,
		IsGuest:   s.user.IsGuest,
		Utterance: text,
		History:   append([]domain.Message(nil), s.messages...),
	}
	if s.cfg.Notifications != nil {
		req.Notifications = s.cfg.Notifications()
	}

	go func() {
		if !s.user.IsGuest {
			facts, err := s.repo.GetFacts(s.ctx, s.user.UserID)
			if err != nil {
				slog.Error("Failed to load facts", "user_id", s.user.UserID, "error", err)
			} else {
				req.Memories = facts
			}
		}
		raw, err := s.transport.SendTurn(s.ctx, req)
		s.post(func() { s.completeTurn(raw, err) })
	}()
}

func (s *Session) completeTurn(raw string, err error) {
	// The session may have moved on while the turn was in flight, for
	// example through a scheduled logout. Only Processing accepts a
	// completion; anything else makes the result stale.
	if s.machine.Current() != state.Processing {
		slog.Debug("Discarded stale turn completion", "user_id", s.user.UserID)
		return
	}
	if err != nil {
		slog.Error("Turn failed", "user_id", s.user.UserID, "error", err)
		s.machine.FinishAlert()
		s.render()
		return
	}

	reply := protocol.Parse(raw)

	wrote := false
	if !s.user.IsGuest {
		for _, fact := range reply.MemoryFacts() {
			saved, err := s.repo.SaveFact(s.ctx, s.user.UserID, fact)
			if err != nil {
				slog.Error("Failed to save fact", "user_id", s.user.UserID, "error", err)
				continue
			}
			wrote = wrote || saved
		}
	}

	if reply.CleanText != "" {
		s.appendMessage(domain.RoleAgent, reply.CleanText)
	}

	switch {
	case reply.Has(protocol.DirectivePermissionRequest):
		// A permission request owns the visible state even when other
		// directives arrived in the same reply.
		s.pending = &domain.PendingAction{
			Description:   reply.PermissionDescription(),
			PrecedingText: reply.PrecedingText,
		}
		s.machine.EnterAwaitingPermission()
	case wrote, reply.Has(protocol.DirectiveSessionReset):
		s.machine.FinishSuccess()
	default:
		s.machine.FinishActive()
	}

	if reply.Has(protocol.DirectiveSessionReset) {
		s.sched.Schedule(state.PurposeResetClear, s.cfg.Machine.Delays.ResetClear, s.applyReset)
	}
	if reply.Has(protocol.DirectiveLogout) && !s.cfg.Machine.SingleUser {
		s.sched.Schedule(state.PurposeLogout, s.cfg.Machine.Delays.Logout, s.logout)
	}

	s.persistHistory()
	s.render()
}

// applyReset clears the visible log after the farewell has been shown.
// The callback re-validates: a turn the user started inside the display
// window owns the log and the state, so the reset becomes stale.
func (s *Session) applyReset() {
	switch s.machine.Current() {
	case state.Processing, state.SystemSearching:
		return
	}
	s.messages = nil
	s.machine.SetLogDepth(0)
	if err := s.repo.ClearHistory(s.ctx, s.user.UserID); err != nil {
		slog.Error("Failed to clear history", "user_id", s.user.UserID, "error", err)
	}
	if s.machine.Current() != state.AwaitingPermission {
		s.machine.EnterIdle()
	}
	s.render()
}

func (s *Session) logout() {
	s.machine.StartLogout(func() {
		s.messages = nil
		s.pending = nil
		s.render()
		if s.cfg.OnLogout != nil {
			s.cfg.OnLogout()
		}
	})
}

func (s *Session) appendMessage(role domain.Role, content string) {
	s.messages = append(s.messages, domain.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	})
	s.machine.SetLogDepth(len(s.messages))
}

// persistHistory saves the log best-effort; storage failures degrade to
// an in-memory session.
func (s *Session) persistHistory() {
	if err := s.repo.SaveHistory(s.ctx, s.user.UserID, s.messages); err != nil {
		slog.Error("Failed to save history", "user_id", s.user.UserID, "error", err)
	}
}

func (s *Session) touchLastSeen() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.UpdateLastSeen(ctx, s.user.UserID, time.Now()); err != nil {
			slog.Error("Failed to update last seen", "user_id", s.user.UserID, "error", err)
		}
	}()
}

func (s *Session) render() {
	if s.cfg.OnRender == nil {
		return
	}
	snap := Snapshot{
		State:    s.machine.Current(),
		Messages: append([]domain.Message(nil), s.messages...),
	}
	if s.pending != nil {
		p := *s.pending
		snap.Pending = &p
	}
	s.cfg.OnRender(snap)
}

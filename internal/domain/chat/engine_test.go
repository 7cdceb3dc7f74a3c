package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/domain/command"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/domain/identity"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/domain/session"
)

const (
	ownerJID  = "111@s.whatsapp.net"
	strangers = "999@s.whatsapp.net"
)

type memSessionRepo struct {
	nextID   uint
	sessions []*session.Session
}

func (m *memSessionRepo) FindActive(_ context.Context, conversationID string) (*session.Session, error) {
	for _, s := range m.sessions {
		if s.ConversationID == conversationID && s.Active {
			copied := *s
			return &copied, nil
		}
	}
	return nil, session.ErrNoActiveSession
}

func (m *memSessionRepo) FindByName(_ context.Context, conversationID, name string) (*session.Session, error) {
	for _, s := range m.sessions {
		if s.ConversationID == conversationID && s.Name == name {
			copied := *s
			return &copied, nil
		}
	}
	return nil, session.ErrSessionNotFound
}

func (m *memSessionRepo) CreateOrReactivate(ctx context.Context, conversationID, name string) (*session.Session, error) {
	for _, s := range m.sessions {
		if s.ConversationID == conversationID {
			s.Active = false
		}
	}
	for _, s := range m.sessions {
		if s.ConversationID == conversationID && s.Name == name {
			s.Active = true
			s.LastActiveAt = time.Now()
			copied := *s
			return &copied, nil
		}
	}
	m.nextID++
	s := &session.Session{
		ID:             m.nextID,
		PublicID:       "sess_test",
		ConversationID: conversationID,
		Name:           name,
		Active:         true,
		LastActiveAt:   time.Now(),
		CreatedAt:      time.Now(),
	}
	m.sessions = append(m.sessions, s)
	copied := *s
	return &copied, nil
}

func (m *memSessionRepo) Activate(_ context.Context, conversationID, name string) (*session.Session, error) {
	var target *session.Session
	for _, s := range m.sessions {
		if s.ConversationID == conversationID && s.Name == name {
			target = s
		}
	}
	if target == nil {
		return nil, session.ErrSessionNotFound
	}
	for _, s := range m.sessions {
		if s.ConversationID == conversationID {
			s.Active = false
		}
	}
	target.Active = true
	target.LastActiveAt = time.Now()
	copied := *target
	return &copied, nil
}

func (m *memSessionRepo) Close(_ context.Context, sessionID uint) error {
	for _, s := range m.sessions {
		if s.ID == sessionID {
			s.Active = false
		}
	}
	return nil
}

func (m *memSessionRepo) SaveSummary(_ context.Context, sessionID uint, summary string) error {
	for _, s := range m.sessions {
		if s.ID == sessionID {
			s.Summary = &summary
		}
	}
	return nil
}

func (m *memSessionRepo) Reset(_ context.Context, sessionID uint) error {
	for _, s := range m.sessions {
		if s.ID == sessionID {
			s.Summary = nil
		}
	}
	return nil
}

func (m *memSessionRepo) List(_ context.Context, conversationID string) ([]session.Session, error) {
	var out []session.Session
	for _, s := range m.sessions {
		if s.ConversationID == conversationID {
			out = append(out, *s)
		}
	}
	return out, nil
}

type memTurnRepo struct {
	nextID uint
	turns  []session.Turn
}

func (m *memTurnRepo) Append(_ context.Context, sessionID uint, role session.TurnRole, content string) (*session.Turn, error) {
	m.nextID++
	turn := session.Turn{ID: m.nextID, SessionID: sessionID, Role: role, Content: content, CreatedAt: time.Unix(int64(m.nextID), 0)}
	m.turns = append(m.turns, turn)
	return &turn, nil
}

func (m *memTurnRepo) ListBySession(_ context.Context, sessionID uint) ([]session.Turn, error) {
	var out []session.Turn
	for _, t := range m.turns {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTurnRepo) Count(_ context.Context, sessionID uint) (int64, error) {
	out, _ := m.ListBySession(context.Background(), sessionID)
	return int64(len(out)), nil
}

func (m *memTurnRepo) DeleteAllButLast(_ context.Context, sessionID uint, keep int) error {
	var kept, rest []session.Turn
	for _, t := range m.turns {
		if t.SessionID == sessionID {
			kept = append(kept, t)
		} else {
			rest = append(rest, t)
		}
	}
	if len(kept) > keep {
		kept = kept[len(kept)-keep:]
	}
	m.turns = append(rest, kept...)
	return nil
}

type fakeAccess struct {
	users  map[string]bool
	groups map[string]bool
}

func (f *fakeAccess) IsUserAuthorized(_ context.Context, id string) (bool, error) {
	return f.users[id], nil
}
func (f *fakeAccess) AuthorizeUser(_ context.Context, id string) error   { f.users[id] = true; return nil }
func (f *fakeAccess) DeauthorizeUser(_ context.Context, id string) error { delete(f.users, id); return nil }
func (f *fakeAccess) ListUsers(_ context.Context) ([]string, error)     { return nil, nil }
func (f *fakeAccess) IsGroupAuthorized(_ context.Context, id string) (bool, error) {
	return f.groups[id], nil
}
func (f *fakeAccess) AuthorizeGroup(_ context.Context, id string) error { f.groups[id] = true; return nil }
func (f *fakeAccess) DeauthorizeGroup(_ context.Context, id string) error {
	delete(f.groups, id)
	return nil
}
func (f *fakeAccess) ListGroups(_ context.Context) ([]string, error) { return nil, nil }

type fakeLinks struct{}

func (fakeLinks) Link(_ context.Context, _, _ string) error   { return nil }
func (fakeLinks) Unlink(_ context.Context, _, _ string) error { return nil }
func (fakeLinks) LinkedIdentifiers(_ context.Context, id string) ([]string, error) {
	return []string{id}, nil
}

type fakeBindings struct {
	byConversation map[string]string
}

func (f *fakeBindings) BotIdentifier(_ context.Context, conversationID string) (string, error) {
	return f.byConversation[conversationID], nil
}
func (f *fakeBindings) SetBotIdentifier(_ context.Context, conversationID, identifier string) error {
	f.byConversation[conversationID] = identifier
	return nil
}

type fakeStore struct {
	values map[string]string
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) { return f.values[key], nil }
func (f *fakeStore) Set(_ context.Context, key, value string) error {
	f.values[key] = value
	return nil
}

type fakeCompletion struct {
	reply   string
	err     error
	calls   int
	lastReq ReplyRequest
}

func (f *fakeCompletion) GenerateReply(_ context.Context, req ReplyRequest) (string, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeCompletion) Summarize(_ context.Context, _ string) (string, error) {
	return "resumen", nil
}

type bufTransport struct {
	sent []string
}

func (b *bufTransport) Send(_ context.Context, _, text string) error {
	b.sent = append(b.sent, text)
	return nil
}

type directTx struct{}

func (directTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	engine     *Engine
	sessions   *memSessionRepo
	turns      *memTurnRepo
	completion *fakeCompletion
	transport  *bufTransport
	access     *fakeAccess
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		sessions:   &memSessionRepo{},
		turns:      &memTurnRepo{},
		completion: &fakeCompletion{reply: "respuesta"},
		transport:  &bufTransport{},
		access:     &fakeAccess{users: map[string]bool{}, groups: map[string]bool{}},
		now:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	store := &fakeStore{values: map[string]string{}}
	bindings := &fakeBindings{byConversation: map[string]string{}}
	lifecycle := session.NewLifecycleService(f.sessions, time.Hour)
	window := session.NewWindowManager(f.sessions, f.turns, f.completion, directTx{}, session.WindowConfig{MaxTurns: 18, KeepRecentTurns: 12})
	resolver := identity.NewResolver([]string{ownerJID}, f.access, fakeLinks{})
	registry := command.NewRegistry(store, f.access, fakeLinks{}, bindings, lifecycle, 0.7)

	f.engine = NewEngine(lifecycle, window, resolver, bindings, store, f.completion, registry, Defaults{
		Persona:     "persona de prueba",
		Temperature: 0.7,
	})
	f.engine.now = func() time.Time { return f.now }
	return f
}

func dm(sender, text string) InboundMessage {
	return InboundMessage{ConversationID: sender, SenderID: sender, Text: text}
}

func TestHandleMessageIgnoresEmptyText(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.engine.HandleMessage(context.Background(), dm(ownerJID, "   "), f.transport)
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if outcome != OutcomeIgnored {
		t.Errorf("expected ignored, got %s", outcome)
	}
	if len(f.transport.sent) != 0 {
		t.Error("expected no outbound messages")
	}
}

func TestHandleMessageDMDenialNotice(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.engine.HandleMessage(context.Background(), dm(strangers, "hola"), f.transport)
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if outcome != OutcomeDenied {
		t.Errorf("expected denied, got %s", outcome)
	}
	if len(f.transport.sent) != 1 || !strings.Contains(f.transport.sent[0], "No estás autorizado") {
		t.Errorf("expected denial notice, got %v", f.transport.sent)
	}
	if f.completion.calls != 0 {
		t.Error("expected no completion call for denied message")
	}
}

func TestHandleMessageGroupDenialIsSilent(t *testing.T) {
	f := newFixture(t)

	msg := InboundMessage{ConversationID: "g@g.us", SenderID: strangers, IsGroup: true, Text: "hola"}
	outcome, err := f.engine.HandleMessage(context.Background(), msg, f.transport)
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if outcome != OutcomeDenied {
		t.Errorf("expected denied, got %s", outcome)
	}
	if len(f.transport.sent) != 0 {
		t.Errorf("expected silent group denial, got %v", f.transport.sent)
	}
}

func TestHandleMessageGroupRequiresMention(t *testing.T) {
	f := newFixture(t)

	msg := InboundMessage{
		ConversationID:    "g@g.us",
		SenderID:          ownerJID,
		IsGroup:           true,
		Text:              "hola a todos",
		BotIdentifierHint: "555@s.whatsapp.net",
	}
	outcome, err := f.engine.HandleMessage(context.Background(), msg, f.transport)
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if outcome != OutcomeIgnored {
		t.Errorf("expected unmentioned group message to be ignored, got %s", outcome)
	}

	msg.Mentions = []string{"555@lid"}
	outcome, err = f.engine.HandleMessage(context.Background(), msg, f.transport)
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if outcome != OutcomeReply {
		t.Errorf("expected mentioned group message to get a reply, got %s", outcome)
	}
}

func TestHandleMessageCreatesDefaultSession(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.engine.HandleMessage(context.Background(), dm(ownerJID, "hola"), f.transport)
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if outcome != OutcomeReply {
		t.Errorf("expected reply, got %s", outcome)
	}

	active, err := f.sessions.FindActive(context.Background(), ownerJID)
	if err != nil {
		t.Fatalf("expected active session: %v", err)
	}
	if active.Name != session.DefaultName {
		t.Errorf("expected default session name, got %q", active.Name)
	}

	stored, _ := f.turns.ListBySession(context.Background(), active.ID)
	if len(stored) != 2 {
		t.Fatalf("expected user and assistant turns stored, got %d", len(stored))
	}
	if stored[0].Role != session.RoleUser || stored[1].Role != session.RoleAssistant {
		t.Errorf("unexpected turn roles: %v, %v", stored[0].Role, stored[1].Role)
	}
	if len(f.transport.sent) != 1 || f.transport.sent[0] != "respuesta" {
		t.Errorf("expected reply delivered, got %v", f.transport.sent)
	}
}

func TestHandleMessageInactivityGate(t *testing.T) {
	f := newFixture(t)

	sess, err := f.sessions.CreateOrReactivate(context.Background(), ownerJID, session.DefaultName)
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	for _, s := range f.sessions.sessions {
		s.LastActiveAt = f.now.Add(-2 * time.Hour)
	}

	outcome, err := f.engine.HandleMessage(context.Background(), dm(ownerJID, "sigues ahí?"), f.transport)
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if outcome != OutcomeInactive {
		t.Errorf("expected inactive outcome, got %s", outcome)
	}
	if f.completion.calls != 0 {
		t.Error("expected no completion for expired session")
	}
	if len(f.transport.sent) != 1 || !strings.Contains(f.transport.sent[0], "inactiva") {
		t.Errorf("expected inactivity notice, got %v", f.transport.sent)
	}
	if _, err := f.sessions.FindActive(context.Background(), ownerJID); !errors.Is(err, session.ErrNoActiveSession) {
		t.Error("expected expired session to be closed")
	}
	if stored, _ := f.turns.ListBySession(context.Background(), sess.ID); len(stored) != 0 {
		t.Error("expected no turns stored for the gated message")
	}
}

func TestHandleMessageCompletionFailureStoresNothing(t *testing.T) {
	f := newFixture(t)
	f.completion.err = errors.New("api down")

	outcome, err := f.engine.HandleMessage(context.Background(), dm(ownerJID, "hola"), f.transport)
	if err == nil {
		t.Fatal("expected error from failed completion")
	}
	if outcome != OutcomeError {
		t.Errorf("expected error outcome, got %s", outcome)
	}
	if len(f.turns.turns) != 0 {
		t.Error("expected no turns stored for failed exchange")
	}
	if len(f.transport.sent) != 0 {
		t.Error("expected no reply delivered for failed exchange")
	}
}

func TestHandleMessageRoutesCommands(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.engine.HandleMessage(context.Background(), dm(ownerJID, "ds.yo"), f.transport)
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if outcome != OutcomeCommand {
		t.Errorf("expected command outcome, got %s", outcome)
	}
	if len(f.transport.sent) != 1 || !strings.Contains(f.transport.sent[0], ownerJID) {
		t.Errorf("expected ds.yo to echo the JID, got %v", f.transport.sent)
	}
	if f.completion.calls != 0 {
		t.Error("expected commands to bypass completion")
	}
}

func TestHandleMessageCommandDenialForStrangers(t *testing.T) {
	f := newFixture(t)

	// ds.ayuda is open to everyone.
	outcome, err := f.engine.HandleMessage(context.Background(), dm(strangers, "ds.ayuda"), f.transport)
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if outcome != OutcomeCommand {
		t.Errorf("expected open command to run, got %s", outcome)
	}

	// ds.estado is not.
	f.transport.sent = nil
	outcome, err = f.engine.HandleMessage(context.Background(), dm(strangers, "ds.estado"), f.transport)
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if outcome != OutcomeDenied {
		t.Errorf("expected closed command to be denied, got %s", outcome)
	}
	if len(f.transport.sent) != 1 || !strings.Contains(f.transport.sent[0], "No estás autorizado") {
		t.Errorf("expected denial reply, got %v", f.transport.sent)
	}
}

func TestHandleMessageUsesStoredSummary(t *testing.T) {
	f := newFixture(t)

	sess, err := f.sessions.CreateOrReactivate(context.Background(), ownerJID, session.DefaultName)
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	if err := f.sessions.SaveSummary(context.Background(), sess.ID, "hablamos de perros"); err != nil {
		t.Fatalf("seed summary: %v", err)
	}
	for _, s := range f.sessions.sessions {
		s.LastActiveAt = f.now
	}

	if _, err := f.engine.HandleMessage(context.Background(), dm(ownerJID, "y de gatos?"), f.transport); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if f.completion.lastReq.Summary != "hablamos de perros" {
		t.Errorf("expected stored summary in request, got %q", f.completion.lastReq.Summary)
	}
	if f.completion.lastReq.Persona != "persona de prueba" {
		t.Errorf("expected default persona, got %q", f.completion.lastReq.Persona)
	}
}

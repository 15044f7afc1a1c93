package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/deptforge/agent-departments/internal/config"
	"github.com/deptforge/agent-departments/internal/conversation"
	"github.com/deptforge/agent-departments/internal/domain"
	"github.com/deptforge/agent-departments/internal/events"
	"github.com/deptforge/agent-departments/internal/persistence"
	"github.com/deptforge/agent-departments/internal/registry"
	"github.com/deptforge/agent-departments/internal/repository"
	apperrors "github.com/deptforge/agent-departments/pkg/util/errorutil"
)

const owner = "owner-1"

type fakeResponder struct {
	mu        sync.Mutex
	calls     []responderCall
	failFor   map[domain.DepartmentCategory]bool
	replyWith func(message string, persona domain.AgentPersonality) string
}

type responderCall struct {
	message string
	dept    string
	history domain.ConversationHistory
}

func (f *fakeResponder) GenerateResponse(_ context.Context, message string, persona domain.AgentPersonality, dept domain.DepartmentInstance, history domain.ConversationHistory) conversation.Reply {
	f.mu.Lock()
	f.calls = append(f.calls, responderCall{message: message, dept: dept.ID, history: history})
	f.mu.Unlock()
	if f.failFor[dept.Category] {
		return conversation.NoReply
	}
	content := persona.Name + " on " + message
	if f.replyWith != nil {
		content = f.replyWith(message, persona)
	}
	return conversation.Reply{Content: content, Received: true}
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, e events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	stores      repository.Stores
	dispatcher  *recordingDispatcher
	responder   *fakeResponder
	departments *DepartmentService
	agents      *AgentService
	chat        *ChatService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		stores:     repository.NewStores(nil),
		dispatcher: &recordingDispatcher{},
		responder:  &fakeResponder{failFor: map[domain.DepartmentCategory]bool{}},
	}
	f.departments = NewDepartmentService(DepartmentDependencies{
		DepartmentRepo:   f.stores.Departments,
		PersonaRepo:      f.stores.Personas,
		ConversationRepo: f.stores.Conversations,
		Dispatcher:       f.dispatcher,
	})
	f.agents = NewAgentService(f.departments, f.stores.Personas, f.dispatcher, nil)
	f.chat = NewChatService(ChatDependencies{
		Departments:      f.departments,
		Agents:           f.agents,
		ConversationRepo: f.stores.Conversations,
		Responder:        f.responder,
		Dispatcher:       f.dispatcher,
	})
	return f
}

func (f *fixture) staffed(t *testing.T, archetypes ...string) []domain.DepartmentInstance {
	t.Helper()
	ctx := context.Background()
	for _, id := range archetypes {
		_, err := f.departments.ToggleSelection(ctx, owner, id)
		require.NoError(t, err)
	}
	created, err := f.departments.CommitSelection(ctx, owner)
	require.NoError(t, err)
	for i, d := range created {
		_, err := f.agents.AssignAgent(ctx, owner, d.ID, domain.AgentPersonality{
			Name:               []string{"Ava", "Ben", "Cleo", "Dan"}[i%4],
			Role:               "Lead",
			Expertise:          []string{"Planning"},
			Traits:             []string{"calm"},
			CommunicationStyle: "concise",
		})
		require.NoError(t, err)
	}
	return created
}

func TestDepartmentServiceWizardFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.Len(t, f.departments.Catalog(), 4)

	sel, err := f.departments.ToggleSelection(ctx, owner, "finance")
	require.NoError(t, err)
	assert.Equal(t, []string{"finance"}, sel)

	_, err = f.departments.ToggleSelection(ctx, owner, "sales")
	require.NoError(t, err)

	created, err := f.departments.CommitSelection(ctx, owner)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, domain.CategorySales, created[0].Category)

	sel, err = f.departments.Selection(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, sel)

	_, err = f.departments.ToggleSelection(ctx, owner, "sales")
	assert.True(t, errors.Is(err, apperrors.ErrDuplicateCategory))

	assert.Equal(t, []events.EventType{events.EventDepartmentsCreated}, f.dispatcher.types())
}

func TestDepartmentServiceSessionsReloadFromStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.departments.ToggleSelection(ctx, owner, "operations")
	require.NoError(t, err)
	_, err = f.departments.AddDepartments(ctx, owner, []registry.Candidate{{ArchetypeID: "sales"}})
	require.NoError(t, err)

	f.departments.EndSession(owner)

	list, err := f.departments.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Sales & Marketing", list[0].Name, "archetype fields fill empty candidate fields")

	sel, err := f.departments.Selection(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, sel, "ending the session discards the pending selection")

	other, err := f.departments.List(ctx, "owner-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestDepartmentServiceRemoveDropsAgentAndHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.staffed(t, "sales")
	id := created[0].ID

	_, err := f.chat.SendMessage(ctx, owner, id, "hello", "Sam")
	require.NoError(t, err)

	require.NoError(t, f.departments.RemoveDepartment(ctx, owner, id))

	_, err = f.agents.GetAgent(ctx, owner, id)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	history, err := f.stores.Conversations.List(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, history)

	err = f.departments.RemoveDepartment(ctx, owner, id)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	// The category is free again.
	_, err = f.departments.ToggleSelection(ctx, owner, "sales")
	assert.NoError(t, err)
}

func TestAgentServiceValidatesAndScopes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.staffed(t, "finance")

	_, err := f.agents.AssignAgent(ctx, owner, created[0].ID, domain.AgentPersonality{Name: "Zed"})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = f.agents.GetAgent(ctx, "intruder", created[0].ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	got, err := f.agents.GetAgent(ctx, owner, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Ava", got.Name)
	assert.Equal(t, created[0].ID, got.DepartmentID)
}

func TestChatServiceRecordsHistoryInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.staffed(t, "sales")[0].ID

	first, err := f.chat.SendMessage(ctx, owner, id, "How are leads?", "Sam Lee")
	require.NoError(t, err)
	assert.True(t, first.Delivered)
	assert.Equal(t, "Ava on How are leads?", first.Content)

	_, err = f.chat.SendMessage(ctx, owner, id, "And churn?", "Sam Lee")
	require.NoError(t, err)

	require.Len(t, f.responder.calls, 2)
	assert.Empty(t, f.responder.calls[0].history)
	require.Len(t, f.responder.calls[1].history, 2, "second call sees the first exchange")

	history, err := f.chat.History(ctx, owner, id)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, domain.TurnRoleUser, history[0].Role)
	assert.Equal(t, "Sam_Lee", history[0].Name)
	assert.Equal(t, domain.TurnRoleAssistant, history[1].Role)
	assert.Equal(t, "And churn?", history[2].Content)
}

func TestChatServiceUnavailableAgent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.staffed(t, "finance")[0].ID
	f.responder.failFor[domain.CategoryFinance] = true

	result, err := f.chat.SendMessage(ctx, owner, id, "Close the books", "")
	require.NoError(t, err)
	assert.False(t, result.Delivered)
	assert.Empty(t, result.Content)

	history, err := f.chat.History(ctx, owner, id)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.TurnRoleUser, history[0].Role)

	assert.Contains(t, f.dispatcher.types(), events.EventAgentUnavailable)
}

func TestChatServiceRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.staffed(t, "sales")

	_, err := f.chat.SendMessage(ctx, owner, created[0].ID, "   ", "")
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = f.chat.SendMessage(ctx, owner, "missing", "hi", "")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	_, err = f.departments.AddDepartments(ctx, owner, []registry.Candidate{{ArchetypeID: "operations"}})
	require.NoError(t, err)
	list, _ := f.departments.List(ctx, owner)
	_, err = f.chat.SendMessage(ctx, owner, list[1].ID, "hi", "")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "department without an agent")
	assert.Empty(t, f.responder.calls)
}

func TestChatServiceBroadcastIsFailSoftPerDepartment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.staffed(t, "sales", "customer-service", "finance")
	f.responder.failFor[domain.CategoryCustomerService] = true

	_, err := f.departments.AddDepartments(ctx, owner, []registry.Candidate{{ArchetypeID: "operations"}})
	require.NoError(t, err)

	results, err := f.chat.Broadcast(ctx, owner, "Weekly status?", nil, "Sam")
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.True(t, results[0].Delivered)
	assert.Equal(t, created[0].ID, results[0].Department.ID)
	assert.False(t, results[1].Delivered)
	assert.NoError(t, results[1].Err)
	assert.True(t, results[2].Delivered)
	assert.False(t, results[3].Delivered)
	assert.True(t, errors.Is(results[3].Err, apperrors.ErrNotFound), "operations has no agent")

	targeted, err := f.chat.Broadcast(ctx, owner, "Just you", []string{created[2].ID, created[2].ID}, "Sam")
	require.NoError(t, err)
	require.Len(t, targeted, 1)

	_, err = f.chat.Broadcast(ctx, owner, "hi", []string{"missing"}, "Sam")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestChatServiceSerializesPerDepartment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.staffed(t, "sales")[0].ID

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.chat.SendMessage(ctx, owner, id, "ping", "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	history, err := f.chat.History(ctx, owner, id)
	require.NoError(t, err)
	require.Len(t, history, 16)
	for i, turn := range history {
		want := domain.TurnRoleUser
		if i%2 == 1 {
			want = domain.TurnRoleAssistant
		}
		assert.Equal(t, want, turn.Role, "turn %d", i)
	}
}

func TestLocalLockerHonoursContext(t *testing.T) {
	l := NewLocalLocker()
	release, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release()
	again, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	again()
}

func TestParticipantNameAndPreview(t *testing.T) {
	assert.Equal(t, "Sam_O_Neil", participantName(" Sam O'_Neil "))
	assert.Equal(t, "", participantName("  "))
	assert.Equal(t, "abc", preview(" abc ", 10))
	assert.Equal(t, "abcdefg...", preview("abcdefghijklmnop", 10))
}

func TestAuthService(t *testing.T) {
	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "secret", AccessTokenTTLMinutes: 5, BcryptCost: bcrypt.MinCost}}
	svc := NewAuthService(cfg, repository.NewMemoryUserRepository())
	ctx := context.Background()

	user, token, _, err := svc.RegisterUser(ctx, "Sam", " Sam@Example.com ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", user.Email)
	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)

	_, _, _, err = svc.RegisterUser(ctx, "Sam", "sam@example.com", "correct horse")
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)

	_, _, _, err = svc.RegisterUser(ctx, "Sam", "not-an-email", "correct horse")
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, _, _, err = svc.LoginUser(ctx, "sam@example.com", "wrong password")
	assert.Equal(t, "UNAUTHORIZED", apperrors.ToDomainError(err).Code)

	_, _, _, err = svc.LoginUser(ctx, "nobody@example.com", "correct horse")
	assert.Equal(t, "UNAUTHORIZED", apperrors.ToDomainError(err).Code)

	logged, _, _, err := svc.LoginUser(ctx, "SAM@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
}

func TestAuthServiceRejectsDisplayNameEmails(t *testing.T) {
	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "secret", AccessTokenTTLMinutes: 5, BcryptCost: bcrypt.MinCost}}
	users := repository.NewMemoryUserRepository()
	svc := NewAuthService(cfg, users)
	ctx := context.Background()

	for _, email := range []string{"Bob <bob@example.com>", `"a b" <bob@example.com>`, "<bob@example.com>"} {
		_, _, _, err := svc.RegisterUser(ctx, "Bob", email, "password123")
		require.Error(t, err, email)
		de := apperrors.ToDomainError(err)
		assert.Equal(t, "VALIDATION_FAILED", de.Code, email)
		assert.Equal(t, "email", de.Details["email"], email)
	}

	_, _, _, err := svc.RegisterUser(ctx, "  ", "bob@example.com", "password123")
	assert.Equal(t, "notblank", apperrors.ToDomainError(err).Details["name"])

	user, _, _, err := svc.RegisterUser(ctx, "Bob", "bob@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", user.Email)
}

func TestNewChatLockerFallsBackWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()

	locker, store := NewChatLocker(ctx, nil, time.Second, time.Second, nil)
	assert.Nil(t, store)
	release, err := locker.Lock(ctx, "chat:sales-1")
	require.NoError(t, err)
	release()

	redis := persistence.NewRedis(config.RedisConfig{Addr: "127.0.0.1:1"}, zap.NewNop())
	defer redis.Close()
	locker, store = NewChatLocker(ctx, redis, time.Second, time.Second, zap.NewNop())
	assert.Nil(t, store, "an unreachable redis must not become a readiness dependency")
	_, local := locker.(*keyedMutex)
	assert.True(t, local)
}

type slowDepartmentStore struct {
	repository.DepartmentRepository
	slowOwner string
	entered   chan struct{}
	release   chan struct{}
}

func (s *slowDepartmentStore) ListDepartments(ctx context.Context, ownerID string) ([]domain.DepartmentInstance, error) {
	if ownerID == s.slowOwner {
		close(s.entered)
		<-s.release
	}
	return s.DepartmentRepository.ListDepartments(ctx, ownerID)
}

func TestDepartmentServiceSlowLoadDoesNotBlockOtherOwners(t *testing.T) {
	store := &slowDepartmentStore{
		DepartmentRepository: repository.NewMemoryDepartmentRepository(),
		slowOwner:            "slow-owner",
		entered:              make(chan struct{}),
		release:              make(chan struct{}),
	}
	svc := NewDepartmentService(DepartmentDependencies{DepartmentRepo: store})
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := svc.Registry(ctx, "slow-owner")
		done <- err
	}()
	<-store.entered

	loaded := make(chan error, 1)
	go func() {
		_, err := svc.List(ctx, owner)
		loaded <- err
	}()
	select {
	case err := <-loaded:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("owner load blocked behind another owner's store query")
	}

	close(store.release)
	require.NoError(t, <-done)
}

func TestDepartmentServiceEvictsIdleSessions(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	svc := NewDepartmentService(DepartmentDependencies{
		DepartmentRepo: repository.NewMemoryDepartmentRepository(),
		SessionIdleTTL: 30 * time.Minute,
		Clock:          func() time.Time { return now },
	})
	ctx := context.Background()

	_, err := svc.ToggleSelection(ctx, owner, "sales")
	require.NoError(t, err)

	now = now.Add(20 * time.Minute)
	sel, err := svc.Selection(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []string{"sales"}, sel, "use refreshes the session")

	now = now.Add(31 * time.Minute)
	sel, err = svc.Selection(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, sel, "an idle session is dropped with its selection")

	_, err = svc.Registry(ctx, "owner-2")
	require.NoError(t, err)
	now = now.Add(time.Hour)
	_, err = svc.Registry(ctx, "owner-3")
	require.NoError(t, err)
	svc.mu.Lock()
	_, kept := svc.sessions["owner-2"]
	svc.mu.Unlock()
	assert.False(t, kept, "opening a session sweeps expired ones")
}

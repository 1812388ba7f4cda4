package service

import (
	"context"
	"sync"

	"conflict-resolution-be/internal/entity"
	"conflict-resolution-be/internal/pkg/logger"
	"conflict-resolution-be/internal/repository/contract"
	"conflict-resolution-be/internal/repository/specification"
	"conflict-resolution-be/internal/repository/unitofwork"
	"conflict-resolution-be/pkg/events"
	"conflict-resolution-be/pkg/llm"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

type fakeConflictRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]entity.Conflict
}

func matchConflict(c entity.Conflict, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if c.Id != s.ID {
				return false
			}
		case specification.ByCreator:
			if c.CreatedBy != s.UserID {
				return false
			}
		case specification.ByStatus:
			if c.Status != s.Status {
				return false
			}
		}
	}
	return true
}

func (r *fakeConflictRepo) Create(ctx context.Context, c *entity.Conflict) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[c.Id] = *c
	return nil
}

func (r *fakeConflictRepo) Update(ctx context.Context, c *entity.Conflict) error {
	return r.Create(ctx, c)
}

func (r *fakeConflictRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func (r *fakeConflictRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Conflict, error) {
	all, _ := r.FindAll(ctx, specs...)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r *fakeConflictRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Conflict, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Conflict
	for _, c := range r.items {
		if matchConflict(c, specs) {
			cp := c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeConflictRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

func (r *fakeConflictRepo) CountByStatus(ctx context.Context, userId uuid.UUID) (map[string]int64, error) {
	all, _ := r.FindAll(ctx, specification.ByCreator{UserID: userId})
	counts := map[string]int64{}
	for _, c := range all {
		counts[c.Status]++
	}
	return counts, nil
}

// fakeMessageRepo keeps insertion order, which matches created_at order.
type fakeMessageRepo struct {
	mu    sync.Mutex
	items []entity.ConflictMessage
	fail  error
}

func (r *fakeMessageRepo) Create(ctx context.Context, m *entity.ConflictMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.items = append(r.items, *m)
	return nil
}

func (r *fakeMessageRepo) DeleteByConflictId(ctx context.Context, conflictId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.items[:0]
	for _, m := range r.items {
		if m.ConflictId != conflictId {
			kept = append(kept, m)
		}
	}
	r.items = kept
	return nil
}

func (r *fakeMessageRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ConflictMessage, error) {
	all, _ := r.FindAll(ctx, specs...)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r *fakeMessageRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ConflictMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.ConflictMessage
	for _, m := range r.items {
		if matchMessage(m, specs) {
			cp := m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func matchMessage(m entity.ConflictMessage, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if m.Id != s.ID {
				return false
			}
		case specification.ByConflictID:
			if m.ConflictId != s.ConflictID {
				return false
			}
		case specification.ByResponseStreamID:
			if m.ResponseStreamId != s.StreamID {
				return false
			}
		case specification.ByMessageType:
			if m.Type != s.Type {
				return false
			}
		}
	}
	return true
}

// fakeUserMessageRepo keeps insertion order, which matches created_at order.
type fakeUserMessageRepo struct {
	mu    sync.Mutex
	items []entity.UserMessage
}

func (r *fakeUserMessageRepo) Create(ctx context.Context, m *entity.UserMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, *m)
	return nil
}

func (r *fakeUserMessageRepo) DeleteByUserId(ctx context.Context, userId uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.items[:0]
	for _, m := range r.items {
		if m.UserId != userId {
			kept = append(kept, m)
		}
	}
	deleted := int64(len(r.items) - len(kept))
	r.items = kept
	return deleted, nil
}

func (r *fakeUserMessageRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UserMessage, error) {
	all, _ := r.FindAll(ctx, specs...)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r *fakeUserMessageRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.UserMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.UserMessage
	for _, m := range r.items {
		if matchUserMessage(m, specs) {
			cp := m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func matchUserMessage(m entity.UserMessage, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if m.Id != s.ID {
				return false
			}
		case specification.ByUserID:
			if m.UserId != s.UserID {
				return false
			}
		case specification.ByResponseStreamID:
			if m.ResponseStreamId != s.StreamID {
				return false
			}
		}
	}
	return true
}

type fakeUnitOfWork struct {
	conflicts    *fakeConflictRepo
	messages     *fakeMessageRepo
	userMessages *fakeUserMessageRepo
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error { return nil }
func (u *fakeUnitOfWork) Commit() error                   { return nil }
func (u *fakeUnitOfWork) Rollback() error                 { return nil }

func (u *fakeUnitOfWork) ConflictRepository() contract.ConflictRepository {
	return u.conflicts
}

func (u *fakeUnitOfWork) ConflictMessageRepository() contract.ConflictMessageRepository {
	return u.messages
}

func (u *fakeUnitOfWork) UserMessageRepository() contract.UserMessageRepository {
	return u.userMessages
}

type fakeFactory struct {
	uow *fakeUnitOfWork
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{uow: &fakeUnitOfWork{
		conflicts:    &fakeConflictRepo{items: map[uuid.UUID]entity.Conflict{}},
		messages:     &fakeMessageRepo{},
		userMessages: &fakeUserMessageRepo{},
	}}
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return f.uow
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

type sentMail struct {
	kind, to, title, body, link string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendInvitation(to, inviter, title, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind: "invitation", to: to, title: title, body: inviter, link: link})
	return m.err
}

func (m *fakeMailer) SendInterviewCompleted(to, title, message, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind: "completed", to: to, title: title, body: message, link: link})
	return m.err
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// scriptedProvider replays chunks and records the history it was called with.
type scriptedProvider struct {
	mu      sync.Mutex
	chunks  []llm.StreamChunk
	err     error
	history []llm.Message
	options llm.Options
}

func (p *scriptedProvider) StreamChat(ctx context.Context, history []llm.Message, handler llm.StreamHandler, options ...llm.Option) error {
	p.mu.Lock()
	p.history = history
	p.options = llm.ApplyOptions(llm.Options{}, options...)
	p.mu.Unlock()

	for _, c := range p.chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := handler(c); err != nil {
			return err
		}
	}
	return p.err
}

func logNop() logger.ILogger {
	return logger.NewNopLogger()
}

func newLocalPubSub() *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
}

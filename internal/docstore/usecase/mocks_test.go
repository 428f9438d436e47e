package usecase

import (
	"context"
	"sync"

	"docstore-gateway/internal/docstore/domain/model"
	"docstore-gateway/internal/docstore/domain/repository"
	"docstore-gateway/internal/shared/eventbus"

	"github.com/stretchr/testify/mock"
)

// mockDocumentStore has no atomic insert, so clients fall back to check-then-act.
type mockDocumentStore struct {
	mock.Mock
}

func (m *mockDocumentStore) Read(ctx context.Context, addr model.Address) repository.ReadResult {
	args := m.Called(ctx, addr)
	return args.Get(0).(repository.ReadResult)
}

func (m *mockDocumentStore) Create(ctx context.Context, addr model.Address, doc model.Document) (model.Document, error) {
	args := m.Called(ctx, addr, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.Document), args.Error(1)
}

func (m *mockDocumentStore) Replace(ctx context.Context, addr model.Address, doc model.Document) error {
	return m.Called(ctx, addr, doc).Error(0)
}

func (m *mockDocumentStore) Delete(ctx context.Context, addr model.Address) error {
	return m.Called(ctx, addr).Error(0)
}

func (m *mockDocumentStore) Query(ctx context.Context, spec model.QuerySpec) (model.DocumentSeq, error) {
	args := m.Called(ctx, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.DocumentSeq), args.Error(1)
}

func (m *mockDocumentStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockConditionalStore struct {
	mockDocumentStore
}

func (m *mockConditionalStore) InsertIfAbsent(ctx context.Context, addr model.Address, doc model.Document) (model.Document, bool, error) {
	args := m.Called(ctx, addr, doc)
	var resource model.Document
	if args.Get(0) != nil {
		resource = args.Get(0).(model.Document)
	}
	return resource, args.Bool(1), args.Error(2)
}

// recordingPublisher captures published events synchronously.
type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) PublishAndForget(ctx context.Context, event eventbus.Event) {
	_ = p.Publish(ctx, event)
}

func (p *recordingPublisher) changes() []model.ChangeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.ChangeEvent, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Data().(model.ChangeEvent))
	}
	return out
}

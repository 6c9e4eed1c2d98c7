package fintrack

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

type MockIdentity struct {
	mock.Mock

	mu        sync.Mutex
	listeners []func(*Identity)
}

func (m *MockIdentity) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	args := m.Called(ctx, email, password)
	ident, _ := args.Get(0).(*Identity)
	return ident, args.Error(1)
}

func (m *MockIdentity) SignUp(ctx context.Context, email, password string) (*Identity, error) {
	args := m.Called(ctx, email, password)
	ident, _ := args.Get(0).(*Identity)
	return ident, args.Error(1)
}

func (m *MockIdentity) SignOut(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockIdentity) UpdateProfile(ctx context.Context, update ProfileUpdate) error {
	return m.Called(ctx, update).Error(0)
}

func (m *MockIdentity) OnAuthChange(fn func(*Identity)) func() {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.listeners = nil
		m.mu.Unlock()
	}
}

// emit delivers ident to every registered listener
func (m *MockIdentity) emit(ident *Identity) {
	m.mu.Lock()
	fns := append([]func(*Identity){}, m.listeners...)
	m.mu.Unlock()
	for _, fn := range fns {
		fn(ident)
	}
}

type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) Create(ctx context.Context, collection string, doc Document) (string, error) {
	args := m.Called(ctx, collection, doc)
	return args.String(0), args.Error(1)
}

func (m *MockPersistence) Delete(ctx context.Context, collection, id string) error {
	return m.Called(ctx, collection, id).Error(0)
}

func (m *MockPersistence) Subscribe(ctx context.Context, collection string, filter Filter) (Subscription, error) {
	args := m.Called(ctx, collection, filter)
	sub, _ := args.Get(0).(Subscription)
	return sub, args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event *Event) error {
	return m.Called(ctx, event).Error(0)
}

type MockExporter struct {
	mock.Mock
}

func (m *MockExporter) Export(ctx context.Context, report *Report) error {
	return m.Called(ctx, report).Error(0)
}

// mapCache is an in-memory LocalCache
type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{data: map[string][]byte{}}
}

func (c *mapCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *mapCache) Set(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = append([]byte(nil), value...)
	return nil
}

func (c *mapCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

package router

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"authservice/internal/model"
)

// memUsers is an in-memory UserRepository with the error semantics of the
// GORM implementation: gorm.ErrRecordNotFound on misses and
// gorm.ErrDuplicatedKey on a second insert of the same email.
type memUsers struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]model.User
	byEmail map[string]uuid.UUID
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[uuid.UUID]model.User{}, byEmail: map[string]uuid.UUID{}}
}

func (m *memUsers) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byEmail[user.Email]; ok {
		return gorm.ErrDuplicatedKey
	}
	if err := user.BeforeCreate(nil); err != nil {
		return err
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	m.byID[user.ID] = *user
	m.byEmail[user.Email] = user.ID
	return nil
}

func (m *memUsers) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	id, ok := m.byEmail[email]
	m.mu.Unlock()
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.FindByID(ctx, id)
}

func (m *memUsers) UpdateName(ctx context.Context, id uuid.UUID, name string) (*model.User, error) {
	m.mu.Lock()
	u, ok := m.byID[id]
	if ok {
		u.Name = name
		u.UpdatedAt = time.Now()
		m.byID[id] = u
	}
	m.mu.Unlock()
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.FindByID(ctx, id)
}

func (m *memUsers) UpdateRole(_ context.Context, id uuid.UUID, role model.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Role = role
	m.byID[id] = u
	return nil
}

func (m *memUsers) List(context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]model.User, 0, len(m.byID))
	for _, u := range m.byID {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (m *memUsers) delete(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		delete(m.byEmail, u.Email)
		delete(m.byID, id)
	}
}

func (m *memUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

type linkKey struct {
	provider string
	subject  string
}

// memLinks is an in-memory AuthProviderRepository with a unique
// (provider, provider user id) constraint.
type memLinks struct {
	mu    sync.Mutex
	links map[linkKey]uuid.UUID
	users *memUsers
}

func newMemLinks(users *memUsers) *memLinks {
	return &memLinks{links: map[linkKey]uuid.UUID{}, users: users}
}

func (m *memLinks) Create(_ context.Context, userID uuid.UUID, provider, providerUserID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := linkKey{provider, providerUserID}
	if _, ok := m.links[key]; ok {
		return gorm.ErrDuplicatedKey
	}
	m.links[key] = userID
	return nil
}

func (m *memLinks) FindUser(ctx context.Context, provider, providerUserID string) (*model.User, error) {
	m.mu.Lock()
	id, ok := m.links[linkKey{provider, providerUserID}]
	m.mu.Unlock()
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.users.FindByID(ctx, id)
}

func (m *memLinks) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.links)
}

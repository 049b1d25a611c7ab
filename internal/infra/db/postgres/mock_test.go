//go:build !integration

package postgres

import (
	"context"
	"time"

	"cloudshare/internal/domain/model"
	"cloudshare/internal/domain/ports/repository"
	red "cloudshare/internal/infra/redis"
)

// mockInnerProfileRepo mocks the database repository the profile decorator wraps.
type mockInnerProfileRepo struct {
	CreateFunc        func(ctx context.Context, tx repository.Tx, p *model.Profile) error
	UpdateFunc        func(ctx context.Context, tx repository.Tx, p *model.Profile) error
	DeleteFunc        func(ctx context.Context, tx repository.Tx, clerkID string) error
	FindByClerkIDFunc func(ctx context.Context, tx repository.Tx, clerkID string) (*model.Profile, error)
}

func (m *mockInnerProfileRepo) Create(ctx context.Context, tx repository.Tx, p *model.Profile) error {
	return m.CreateFunc(ctx, tx, p)
}
func (m *mockInnerProfileRepo) Update(ctx context.Context, tx repository.Tx, p *model.Profile) error {
	return m.UpdateFunc(ctx, tx, p)
}
func (m *mockInnerProfileRepo) Delete(ctx context.Context, tx repository.Tx, clerkID string) error {
	return m.DeleteFunc(ctx, tx, clerkID)
}
func (m *mockInnerProfileRepo) FindByClerkID(ctx context.Context, tx repository.Tx, clerkID string) (*model.Profile, error) {
	return m.FindByClerkIDFunc(ctx, tx, clerkID)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc   func(ctx context.Context, key string) (string, error)
	SetFunc   func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc   func(ctx context.Context, keys ...string) error
	PingFunc  func(ctx context.Context) error
	IncrFunc  func(ctx context.Context, key string, window time.Duration) (int64, error)
	CloseFunc func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	return m.IncrFunc(ctx, key, window)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }

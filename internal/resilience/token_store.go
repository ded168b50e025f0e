// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// Token store backends.
const (
	TokenStoreMemory = "memory"
	TokenStoreBadger = "badger"
	TokenStoreRedis  = "redis"
)

// expiredGrace keeps expired tokens around long enough for GetValid to see
// them and decide between refresh and re-authentication.
const expiredGrace = time.Hour

func storeTTL(expiresAt time.Time) time.Duration {
	ttl := time.Until(expiresAt) + expiredGrace
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

// MemoryTokenStore keeps tokens in process memory.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]Token
}

// NewMemoryTokenStore creates an empty memory store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]Token)}
}

func (s *MemoryTokenStore) Get(_ context.Context, service string) (Token, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[service]
	return t, ok, nil
}

func (s *MemoryTokenStore) Put(_ context.Context, t Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[t.Service] = t
	return nil
}

func (s *MemoryTokenStore) Delete(_ context.Context, service string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, service)
	return nil
}

// BadgerTokenStore persists tokens in BadgerDB so they survive restarts.
type BadgerTokenStore struct {
	db     *badger.DB
	prefix string
	owned  bool
}

// OpenBadgerTokenStore opens (or creates) a BadgerDB at path.
func OpenBadgerTokenStore(path, prefix string) (*BadgerTokenStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for tokens: %w", err)
	}
	s := NewBadgerTokenStore(db, prefix)
	s.owned = true
	return s, nil
}

// NewBadgerTokenStore wraps an existing DB. The caller keeps ownership.
func NewBadgerTokenStore(db *badger.DB, prefix string) *BadgerTokenStore {
	return &BadgerTokenStore{db: db, prefix: prefix}
}

func (s *BadgerTokenStore) key(service string) []byte {
	return []byte(s.prefix + service)
}

func (s *BadgerTokenStore) Get(_ context.Context, service string) (Token, bool, error) {
	var t Token
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(service))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &t)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Token{}, false, nil
	}
	if err != nil {
		return Token{}, false, fmt.Errorf("get token: %w", err)
	}
	return t, true, nil
}

func (s *BadgerTokenStore) Put(_ context.Context, t Token) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(s.key(t.Service), data)
		if !t.ExpiresAt.IsZero() {
			e = e.WithTTL(storeTTL(t.ExpiresAt))
		}
		return txn.SetEntry(e)
	})
}

func (s *BadgerTokenStore) Delete(_ context.Context, service string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(s.key(service)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete token: %w", err)
		}
		return nil
	})
}

// CollectGarbage runs one value log GC round. Returns nil when there was
// nothing to rewrite.
func (s *BadgerTokenStore) CollectGarbage() error {
	err := s.db.RunValueLogGC(0.5)
	if err == nil || errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return fmt.Errorf("token store gc: %w", err)
}

// Close closes the DB if the store opened it.
func (s *BadgerTokenStore) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}

// RedisTokenStore shares tokens between replicas through Redis.
type RedisTokenStore struct {
	client *redis.Client
	prefix string
}

// NewRedisTokenStore creates a store over an existing client.
func NewRedisTokenStore(client *redis.Client, prefix string) *RedisTokenStore {
	return &RedisTokenStore{client: client, prefix: prefix}
}

func (s *RedisTokenStore) Get(ctx context.Context, service string) (Token, bool, error) {
	val, err := s.client.Get(ctx, s.prefix+service).Bytes()
	if errors.Is(err, redis.Nil) {
		return Token{}, false, nil
	}
	if err != nil {
		return Token{}, false, fmt.Errorf("redis get token: %w", err)
	}

	var t Token
	if err := json.Unmarshal(val, &t); err != nil {
		return Token{}, false, fmt.Errorf("unmarshal token: %w", err)
	}
	return t, true, nil
}

func (s *RedisTokenStore) Put(ctx context.Context, t Token) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}

	var ttl time.Duration
	if !t.ExpiresAt.IsZero() {
		ttl = storeTTL(t.ExpiresAt)
	}
	if err := s.client.Set(ctx, s.prefix+t.Service, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set token: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Delete(ctx context.Context, service string) error {
	if err := s.client.Del(ctx, s.prefix+service).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis delete token: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}

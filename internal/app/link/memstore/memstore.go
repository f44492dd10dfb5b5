// Package memstore 提供 link.Store 的进程内实现，用于单元测试和本地开发。
// 生产实现是 repo.LinksRepo（Postgres）。
package memstore

import (
	"context"
	"sync"
	"time"

	"linkcut.local/internal/app/link"
)

type Store struct {
	mu    sync.Mutex
	links map[string]*link.Link
}

func New() *Store {
	return &Store{links: make(map[string]*link.Link)}
}

func (s *Store) Save(_ context.Context, l *link.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.links[l.Code]; exists {
		return link.ErrCodeExists
	}
	cp := *l
	s.links[l.Code] = &cp
	return nil
}

func (s *Store) FindByCode(_ context.Context, code string) (*link.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[code]
	if !ok {
		return nil, link.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *Store) ExistsByCode(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.links[code]
	return ok, nil
}

func (s *Store) IncrementIfLive(_ context.Context, code string, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[code]
	if !ok || !l.IsLive(now) {
		return "", link.ErrNotFound
	}
	l.ClickCount++
	return l.TargetURL, nil
}

func (s *Store) DeactivateIfExpired(_ context.Context, code string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[code]
	if !ok || !l.Active || !now.After(l.ExpiresAt) {
		return false, nil
	}
	l.Active = false
	return true, nil
}

func (s *Store) Deactivate(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[code]
	if !ok {
		return false, link.ErrNotFound
	}
	if !l.Active {
		return false, nil
	}
	l.Active = false
	return true, nil
}

func (s *Store) BulkDeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, l := range s.links {
		if l.Active && now.After(l.ExpiresAt) {
			l.Active = false
			n++
		}
	}
	return n, nil
}

func (s *Store) CountAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.links)), nil
}

func (s *Store) SumClicks(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, l := range s.links {
		sum += l.ClickCount
	}
	return sum, nil
}

func (s *Store) CountLiveAsOf(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, l := range s.links {
		if l.IsLive(now) {
			n++
		}
	}
	return n, nil
}

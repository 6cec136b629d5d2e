package storage

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryStore はプロセス内メモリに画像を保持するStore。テストと開発用。
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	baseURL string
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemory は空のMemoryStoreを生成する。
func NewMemory(publicBaseURL string) *MemoryStore {
	if publicBaseURL == "" {
		publicBaseURL = DefaultPublicBaseURL
	}
	return &MemoryStore{objects: make(map[string]memoryObject), baseURL: publicBaseURL}
}

func (s *MemoryStore) Driver() Driver { return DriverMemory }

func (s *MemoryStore) URL(key string) string { return joinURL(s.baseURL, key) }

func (s *MemoryStore) Put(_ context.Context, key string, r io.Reader, opts PutOptions) (Object, error) {
	key, err := CleanKey(key)
	if err != nil {
		return Object{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Object{}, fmt.Errorf("failed to read %s: %w", key, err)
	}

	s.mu.Lock()
	s.objects[key] = memoryObject{data: data, contentType: opts.ContentType}
	s.mu.Unlock()

	return Object{Key: key, Size: int64(len(data)), ContentType: opts.ContentType, URL: s.URL(key)}, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// Get は保存済みのバイト列とContent-Typeを返す。
func (s *MemoryStore) Get(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj.data, obj.contentType, ok
}

// Len は保存済みオブジェクト数を返す。
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

var _ Store = (*MemoryStore)(nil)

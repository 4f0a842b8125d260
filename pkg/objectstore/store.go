// Package objectstore stores client photos and generated images.
package objectstore

import (
	"context"
	"errors"
	"sync"
)

var ErrObjectNotFound = errors.New("object not found")

// Store puts and fetches binary objects. Put returns a reference that Get
// accepts; URL turns a reference into something a browser can load.
type Store interface {
	Put(ctx context.Context, path string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
	URL(ref string) string
}

type object struct {
	data        []byte
	contentType string
}

type Memory struct {
	mu      sync.RWMutex
	objects map[string]object
	baseURL string
}

func NewMemory(baseURL string) *Memory {
	return &Memory{
		objects: make(map[string]object),
		baseURL: baseURL,
	}
}

func (m *Memory) Put(_ context.Context, path string, data []byte, contentType string) (string, error) {
	if path == "" {
		return "", errors.New("empty object path")
	}
	cp := make([]byte, len(data))
	copy(cp, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = object{data: cp, contentType: contentType}
	return path, nil
}

func (m *Memory) Get(_ context.Context, ref string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[ref]
	if !ok {
		return nil, ErrObjectNotFound
	}
	cp := make([]byte, len(obj.data))
	copy(cp, obj.data)
	return cp, nil
}

func (m *Memory) URL(ref string) string {
	if ref == "" {
		return ""
	}
	return m.baseURL + "/" + ref
}

// ContentType reports what Put was given for ref.
func (m *Memory) ContentType(ref string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.objects[ref].contentType
}

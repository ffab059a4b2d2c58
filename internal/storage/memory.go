package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// MemoryService keeps objects in process memory. Used for local runs and tests.
type MemoryService struct {
	mu      sync.RWMutex
	prefix  string
	objects map[string]memoryObject
}

func NewMemoryService(keyPrefix string) *MemoryService {
	return &MemoryService{
		prefix:  keyPrefix,
		objects: make(map[string]memoryObject),
	}
}

func (m *MemoryService) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	fullKey := objectKey(m.prefix, key)
	if fullKey == "" {
		return "", fmt.Errorf("object key is required")
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[fullKey] = memoryObject{data: buf.Bytes(), contentType: contentType, modified: time.Now()}
	return "mem://" + fullKey, nil
}

func (m *MemoryService) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objectKey(m.prefix, key))
	return nil
}

func (m *MemoryService) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	full := objectKey(m.prefix, prefix)

	m.mu.RLock()
	defer m.mu.RUnlock()
	var objects []ObjectInfo
	for key, obj := range m.objects {
		if !strings.HasPrefix(key, full) {
			continue
		}
		modified := obj.modified
		objects = append(objects, ObjectInfo{Key: key, Size: int64(len(obj.data)), LastModified: &modified})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (m *MemoryService) GetObjectURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	fullKey := objectKey(m.prefix, key)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[fullKey]; !ok {
		return "", fmt.Errorf("%s: %w", fullKey, ErrObjectNotFound)
	}
	return "mem://" + fullKey, nil
}

// Get returns the stored bytes for key.
func (m *MemoryService) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[objectKey(m.prefix, key)]
	return obj.data, ok
}

var _ Service = (*MemoryService)(nil)

package services

import (
	"context"
	"sync"
)

// MockStorageService is an in-memory StorageService for testing
type MockStorageService struct {
	mu         sync.RWMutex
	objects    map[string][]byte
	FailUpload error
}

// NewMockStorageService creates a new mock storage service
func NewMockStorageService() *MockStorageService {
	return &MockStorageService{objects: make(map[string][]byte)}
}

func (m *MockStorageService) Upload(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailUpload != nil {
		return "", m.FailUpload
	}
	m.objects[key] = append([]byte(nil), content...)
	return "https://storage.test/designs/" + key, nil
}

func (m *MockStorageService) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Objects returns a copy of the stored objects keyed by object key
func (m *MockStorageService) Objects() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]byte, len(m.objects))
	for k, v := range m.objects {
		out[k] = v
	}
	return out
}

// FileExists checks if an object exists in mock storage
func (m *MockStorageService) FileExists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok
}

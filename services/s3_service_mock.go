package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"sync"
)

// MockS3Service keeps objects in memory. Keys are "<folder>/mock_<filename>"
// so tests can predict them.
type MockS3Service struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMockS3Service creates an empty in-memory bucket
func NewMockS3Service() *MockS3Service {
	return &MockS3Service{objects: make(map[string][]byte)}
}

// SetAsMockForTesting installs the mock as the global S3 service
func (m *MockS3Service) SetAsMockForTesting() {
	SetS3Service(m)
}

func (m *MockS3Service) UploadFile(ctx context.Context, fileHeader *multipart.FileHeader, folder string) (string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	key := fmt.Sprintf("%s/mock_%s", folder, fileHeader.Filename)
	m.mu.Lock()
	m.objects[key] = content
	m.mu.Unlock()
	return key, nil
}

// GetPresignedURL fails for keys that were never uploaded, like S3 would on GET
func (m *MockS3Service) GetPresignedURL(ctx context.Context, s3Key string) (string, error) {
	if s3Key == "" {
		return "", nil
	}
	if !m.FileExists(s3Key) {
		return "", fmt.Errorf("object %s not found in mock bucket", s3Key)
	}
	return fmt.Sprintf("https://linen-test.s3.amazonaws.com/%s?mock=true", s3Key), nil
}

func (m *MockS3Service) DeleteFile(ctx context.Context, s3Key string) error {
	m.mu.Lock()
	delete(m.objects, s3Key)
	m.mu.Unlock()
	return nil
}

// FileExists reports whether key is in the bucket
func (m *MockS3Service) FileExists(s3Key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[s3Key]
	return ok
}

// Object returns a stored object's bytes
func (m *MockS3Service) Object(s3Key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.objects[s3Key]
	return content, ok
}

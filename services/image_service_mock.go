package services

// MockImageService is the real S3ImageService (so uploads are validated the
// same way) on top of an in-memory bucket
type MockImageService struct {
	S3ImageService
	bucket *MockS3Service
}

// NewMockImageService creates an image service backed by a fresh MockS3Service
func NewMockImageService() *MockImageService {
	bucket := NewMockS3Service()
	return &MockImageService{S3ImageService: S3ImageService{s3Service: bucket}, bucket: bucket}
}

// SetAsMockForTesting installs the mock as the global image service
func (m *MockImageService) SetAsMockForTesting() {
	SetImageService(m)
}

// ImageExists reports whether an uploaded image is still stored
func (m *MockImageService) ImageExists(imageKey string) bool {
	return m.bucket.FileExists(imageKey)
}

// Bucket exposes the backing store for assertions
func (m *MockImageService) Bucket() *MockS3Service {
	return m.bucket
}

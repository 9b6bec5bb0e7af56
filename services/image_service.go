package services

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"

	"github.com/kendall-kelly/linen-ops-api/models"
	"github.com/kendall-kelly/linen-ops-api/utils"
)

// Image folders in the bucket
const (
	FolderClients  = "clients"
	FolderProducts = "products"
)

// ImageService stores client and product pictures
type ImageService interface {
	// UploadImage validates and uploads an image file under folder, returns the storage key
	UploadImage(ctx context.Context, fileHeader *multipart.FileHeader, folder string) (string, error)

	// GetImageURL generates a URL for accessing an uploaded image
	GetImageURL(ctx context.Context, imageKey string) (string, error)

	// DeleteImage removes an image from storage
	DeleteImage(ctx context.Context, imageKey string) error
}

// S3ImageService implements ImageService using AWS S3 for storage
type S3ImageService struct {
	s3Service S3Interface
}

var imageServiceInstance ImageService

// InitImageService initializes the image service with S3 backend
func InitImageService(s3Service S3Interface) ImageService {
	imageServiceInstance = &S3ImageService{
		s3Service: s3Service,
	}
	return imageServiceInstance
}

// GetImageService returns the initialized image service instance
func GetImageService() ImageService {
	return imageServiceInstance
}

// SetImageService sets the image service instance (primarily for testing)
func SetImageService(service ImageService) {
	imageServiceInstance = service
}

// UploadImage validates and uploads an image file to S3
func (s *S3ImageService) UploadImage(ctx context.Context, fileHeader *multipart.FileHeader, folder string) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	s3Key, err := s.s3Service.UploadFile(ctx, fileHeader, folder)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	return s3Key, nil
}

// GetImageURL generates a presigned URL for accessing an image
func (s *S3ImageService) GetImageURL(ctx context.Context, imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}

	url, err := s.s3Service.GetPresignedURL(ctx, imageKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate image URL: %w", err)
	}

	return url, nil
}

// DeleteImage deletes an image from S3
func (s *S3ImageService) DeleteImage(ctx context.Context, imageKey string) error {
	if imageKey == "" {
		return nil
	}

	if err := s.s3Service.DeleteFile(ctx, imageKey); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	return nil
}

// imageURL presigns key with the package image service, nil when there is
// no key or no service
func imageURL(ctx context.Context, key *string) *string {
	svc := GetImageService()
	if key == nil || *key == "" || svc == nil {
		return nil
	}
	url, err := svc.GetImageURL(ctx, *key)
	if err != nil {
		log.Printf("warning: failed to presign %s: %v", *key, err)
		return nil
	}
	return &url
}

// AttachClientImageURL fills the computed ImageURL field
func AttachClientImageURL(ctx context.Context, client *models.Client) {
	client.ImageURL = imageURL(ctx, client.ImageS3Key)
	for i := range client.SelectedProducts {
		AttachProductImageURL(ctx, &client.SelectedProducts[i])
	}
}

// AttachProductImageURL fills the computed ImageURL field
func AttachProductImageURL(ctx context.Context, product *models.Product) {
	product.ImageURL = imageURL(ctx, product.ImageS3Key)
}

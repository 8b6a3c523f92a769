package services

import (
	"context"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// AvatarFolder is the Cloudinary folder avatars are uploaded to.
const AvatarFolder = "wellsync/avatars"

// AvatarUploader hosts an embedded avatar image and returns its URL.
type AvatarUploader interface {
	UploadAvatar(ctx context.Context, dataURI, username string) (string, error)
}

type CloudinaryService struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryService(cloudName, apiKey, apiSecret string) (*CloudinaryService, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}

	return &CloudinaryService{
		cld: cld,
	}, nil
}

// UploadAvatar uploads a data:image/... payload under the username's public id,
// so a new avatar replaces the previous one.
func (s *CloudinaryService) UploadAvatar(ctx context.Context, dataURI, username string) (string, error) {
	result, err := s.cld.Upload.Upload(ctx, dataURI, uploader.UploadParams{
		Folder:       AvatarFolder,
		PublicID:     username,
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("cloudinary returned no url for %s", username)
	}

	return result.SecureURL, nil
}

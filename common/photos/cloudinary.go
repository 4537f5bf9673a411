package photos

import (
	"context"
	"errors"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/servimatch/go-servi/models"
)

// CloudinaryStore uploads review photos to the image CDN and hands back secure
// URLs for the rating endpoint.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	logger models.Logger
}

func NewCloudinaryStore(cloudinaryUrl string, logger models.Logger) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryUrl)
	if err != nil {
		return nil, err
	}
	return &CloudinaryStore{cld, logger}, nil
}

func (s *CloudinaryStore) Upload(ctx context.Context, localPath string, folder string) (string, error) {
	result, err := s.cld.Upload.Upload(ctx, localPath, uploader.UploadParams{Folder: folder})
	if err != nil {
		s.logger.Errorf("photos: error uploading %s: %v", localPath, err)
		return "", err
	}
	if len(result.SecureURL) == 0 {
		s.logger.Errorf("photos: no url returned for %s", localPath)
		return "", errors.New("photos: upload returned no url")
	}
	return result.SecureURL, nil
}

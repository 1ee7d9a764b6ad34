package utils

import (
	"context"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// UploadChatAttachment uploads an image to Cloudinary and returns its URL.
// Credentials come from CLOUDINARY_URL.
func UploadChatAttachment(file multipart.File, filename string) (string, error) {
	cld, err := cloudinary.New()
	if err != nil {
		return "", err
	}

	result, err := cld.Upload.Upload(context.Background(), file, uploader.UploadParams{
		ResourceType: "image",
		PublicID:     fmt.Sprintf("chat_attachments/%s_%d", filename, time.Now().Unix()),
	})
	if err != nil {
		return "", err
	}

	return result.SecureURL, nil
}

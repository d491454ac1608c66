package s3

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
)

// multipartThreshold is the body size above which uploads go through the
// multipart manager instead of a single PutObject.
const multipartThreshold = 8 << 20

// Put uploads one object.
func (c *Client) Put(ctx context.Context, name, contentType string, body []byte) error {
	key := c.key(name)
	if len(body) >= multipartThreshold {
		uploader := manager.NewUploader(c.s3)
		if _, err := uploader.Upload(ctx, &awss3.PutObjectInput{
			Bucket:      aws.String(c.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String(contentType),
		}); err != nil {
			return fmt.Errorf("s3: multipart upload %s: %w", key, err)
		}
		return nil
	}

	if _, err := c.s3.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	}); err != nil {
		return fmt.Errorf("s3: put %s: %w", key, err)
	}
	return nil
}

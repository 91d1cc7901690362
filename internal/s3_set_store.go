package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/lychee-technology/attrschema"
)

// s3ObjectAPI is the subset of *s3.Client the S3 store reads with.
type s3ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// s3Uploader is the subset of *manager.Uploader used to publish sets.
type s3Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3AttributeSetStore keeps one JSON document per attribute set under
// <prefix><id>.json in a bucket.
type S3AttributeSetStore struct {
	client   s3ObjectAPI
	uploader s3Uploader
	bucket   string
	prefix   string
}

var (
	_ attrschema.AttributeSetStore     = (*S3AttributeSetStore)(nil)
	_ attrschema.AttributeSetPublisher = (*S3AttributeSetStore)(nil)
)

// NewS3AttributeSetStore creates a store. uploader may be nil for a
// read-only store.
func NewS3AttributeSetStore(client s3ObjectAPI, uploader s3Uploader, bucket, prefix string) *S3AttributeSetStore {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3AttributeSetStore{client: client, uploader: uploader, bucket: bucket, prefix: prefix}
}

func (s *S3AttributeSetStore) key(id int64) string {
	return s.prefix + strconv.FormatInt(id, 10) + ".json"
}

// GetAttributeSet downloads and decodes one set.
func (s *S3AttributeSetStore) GetAttributeSet(ctx context.Context, id int64) (*attrschema.AttributeSet, error) {
	set, err := s.getObject(ctx, s.key(id))
	if err != nil {
		if isMissingObject(err) {
			return nil, attrschema.NewAttributeSetNotFoundError(id)
		}
		return nil, err
	}
	if set.ID != id {
		return nil, attrschema.NewAttributeSetInvalidError(id, fmt.Errorf("object %s holds attribute set %d", s.key(id), set.ID))
	}
	return set, nil
}

// ListAttributeSets downloads every set under the prefix, ordered by name.
func (s *S3AttributeSetStore) ListAttributeSets(ctx context.Context) ([]*attrschema.AttributeSet, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	sets := make([]*attrschema.AttributeSet, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, attrschema.NewStoreError(fmt.Sprintf("failed to list s3://%s/%s", s.bucket, s.prefix), err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if path.Ext(key) != ".json" {
				continue
			}
			set, err := s.getObject(ctx, key)
			if err != nil {
				return nil, err
			}
			sets = append(sets, set)
		}
	}
	sortSets(sets)
	return sets, nil
}

// PutAttributeSet uploads set as <prefix><id>.json.
func (s *S3AttributeSetStore) PutAttributeSet(ctx context.Context, set *attrschema.AttributeSet) error {
	if s.uploader == nil {
		return attrschema.NewStoreError("s3 store is read-only", nil)
	}
	if set == nil || set.ID <= 0 {
		return attrschema.NewDefinitionError("id", "attribute set id must be positive")
	}
	body, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return attrschema.NewInternalError("failed to encode attribute set", err)
	}

	key := s.key(set.ID)
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return attrschema.NewStoreError(fmt.Sprintf("failed to upload s3://%s/%s", s.bucket, key), err)
	}

	zap.S().Infow("published attribute set", "attribute_set_id", set.ID, "bucket", s.bucket, "key", key)
	return nil
}

func (s *S3AttributeSetStore) getObject(ctx context.Context, key string) (*attrschema.AttributeSet, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isMissingObject(err) {
			return nil, err
		}
		return nil, attrschema.NewStoreError(fmt.Sprintf("failed to fetch s3://%s/%s", s.bucket, key), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, attrschema.NewStoreError(fmt.Sprintf("failed to read s3://%s/%s", s.bucket, key), err)
	}
	set, err := DecodeAttributeSet(data)
	if err != nil {
		return nil, fmt.Errorf("s3://%s/%s: %w", s.bucket, key, err)
	}
	return set, nil
}

func isMissingObject(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

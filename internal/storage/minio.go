package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"
)

// MinioStorage stores files as objects in a MinIO (or any S3-compatible)
// bucket. It is the durable/shared tier in a two-tier setup: slower than
// LocalStorage but reachable from every host that can see the endpoint.
type MinioStorage struct {
	client *minio.Client
	bucket string
}

// NewMinioStorage returns a backend over the given bucket, creating the
// bucket if it does not exist yet.
func NewMinioStorage(client *minio.Client, bucket string) (*MinioStorage, error) {
	if client == nil {
		return nil, &ValidationError{Reason: "minio client is required"}
	}
	if bucket == "" {
		return nil, &ValidationError{Reason: "minio bucket name is required"}
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, errors.Wrapf(err, "could not check bucket %s", bucket)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrapf(err, "could not create bucket %s", bucket)
		}
		log.Printf("Created bucket %s", bucket)
	}

	return &MinioStorage{client: client, bucket: bucket}, nil
}

// validate rejects identifiers that would escape the bucket namespace.
func (s *MinioStorage) validate(identifier string) (string, error) {
	if identifier == "" {
		return "", &ValidationError{Reason: "empty identifier"}
	}
	if strings.HasPrefix(identifier, "/") {
		return "", &ValidationError{Reason: fmt.Sprintf("invalid identifier: %q is an absolute path", identifier)}
	}
	clean := path.Clean(identifier)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", &ValidationError{Reason: fmt.Sprintf("invalid identifier: %q resolves outside bucket", identifier)}
	}
	return clean, nil
}

func (s *MinioStorage) Exists(identifier string) bool {
	key, err := s.validate(identifier)
	if err != nil {
		return false
	}
	_, err = s.client.StatObject(context.Background(), s.bucket, key, minio.StatObjectOptions{})
	return err == nil
}

func (s *MinioStorage) Read(identifier string) ([]byte, error) {
	key, err := s.validate(identifier)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, &NotFoundError{Identifier: identifier, Location: "minio storage"}
		}
		return nil, errors.Wrapf(err, "could not stat object %s", identifier)
	}

	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "could not get object %s", identifier)
	}
	defer object.Close()

	content, err := io.ReadAll(object)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read object %s", identifier)
	}
	return content, nil
}

func (s *MinioStorage) Write(identifier string, content []byte) error {
	key, err := s.validate(identifier)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(
		context.Background(), s.bucket, key,
		bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"},
	)
	if err != nil {
		return errors.Wrapf(err, "could not put object %s", identifier)
	}
	return nil
}

func (s *MinioStorage) Delete(identifier string) (bool, error) {
	key, err := s.validate(identifier)
	if err != nil {
		return false, err
	}

	ctx := context.Background()
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, &NotFoundError{Identifier: identifier, Location: "minio storage"}
		}
		return false, errors.Wrapf(err, "could not stat object %s", identifier)
	}

	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return false, errors.Wrapf(err, "could not delete object %s", identifier)
	}
	return true, nil
}

func (s *MinioStorage) List(pattern string) ([]string, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var results []string
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if object.Err != nil {
			return nil, errors.Wrap(object.Err, "could not list objects")
		}
		if pattern != "" {
			match, err := doublestar.Match(pattern, object.Key)
			if err != nil {
				return nil, &ValidationError{Reason: fmt.Sprintf("invalid list pattern %q: %v", pattern, err)}
			}
			if !match {
				continue
			}
		}
		results = append(results, object.Key)
	}
	sort.Strings(results)
	return results, nil
}

func (s *MinioStorage) Size(identifier string) (int64, error) {
	key, err := s.validate(identifier)
	if err != nil {
		return 0, err
	}

	info, err := s.client.StatObject(context.Background(), s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return 0, &NotFoundError{Identifier: identifier, Location: "minio storage"}
		}
		return 0, errors.Wrapf(err, "could not stat object %s", identifier)
	}
	return info.Size, nil
}

func (s *MinioStorage) Copy(sourceID, destID string) error {
	srcKey, err := s.validate(sourceID)
	if err != nil {
		return err
	}
	dstKey, err := s.validate(destID)
	if err != nil {
		return err
	}

	_, err = s.client.CopyObject(
		context.Background(),
		minio.CopyDestOptions{Bucket: s.bucket, Object: dstKey},
		minio.CopySrcOptions{Bucket: s.bucket, Object: srcKey},
	)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return &NotFoundError{Identifier: sourceID, Location: "minio storage"}
		}
		return errors.Wrapf(err, "could not copy object %s to %s", sourceID, destID)
	}
	return nil
}

func (s *MinioStorage) Move(sourceID, destID string) error {
	if err := s.Copy(sourceID, destID); err != nil {
		return err
	}
	if _, err := s.Delete(sourceID); err != nil {
		return errors.Wrapf(err, "could not remove source after copy: %s", sourceID)
	}
	return nil
}

func (s *MinioStorage) GetPath(identifier string) (string, error) {
	key, err := s.validate(identifier)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("minio://%s/%s", s.bucket, key), nil
}

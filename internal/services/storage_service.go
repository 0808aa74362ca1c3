// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/insurance-backend/internal/config"
	"github.com/javajoker/insurance-backend/internal/utils"
)

const claimDocumentFolder = "claim-documents"

// DocumentStorage stores uploaded files and returns a reference to them.
type DocumentStorage interface {
	UploadFile(ctx context.Context, file io.Reader, header *multipart.FileHeader, options UploadOptions) (*UploadResult, error)
	DeleteFile(ctx context.Context, key string) error
	// KeyFromURL maps a URL returned by UploadFile or AccessURL back to its
	// key. ok is false for URLs this storage did not issue.
	KeyFromURL(url string) (key string, ok bool)
	AccessURL(key string, expiration time.Duration) (string, error)
	// LocalFile resolves a signed link to a file on local disk.
	LocalFile(key, token string) (string, error)
}

// StorageService writes to S3 when credentials are configured and to the
// local upload directory otherwise.
type StorageService struct {
	s3Client *s3.S3
	config   config.AWSConfig
}

type UploadResult struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

type UploadOptions struct {
	Folder       string
	MaxSize      int64 // in bytes
	AllowedTypes []string
	IsPublic     bool
}

func NewStorageService(cfg config.AWSConfig) (*StorageService, error) {
	if cfg.AccessKeyID == "" {
		return &StorageService{config: cfg}, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		config:   cfg,
	}, nil
}

func (s *StorageService) UploadFile(ctx context.Context, file io.Reader, header *multipart.FileHeader, options UploadOptions) (*UploadResult, error) {
	if options.MaxSize > 0 && header.Size > options.MaxSize {
		return nil, ErrValidation("file size %d bytes exceeds maximum allowed size %d bytes", header.Size, options.MaxSize)
	}

	fileExt := strings.ToLower(filepath.Ext(header.Filename))
	if len(options.AllowedTypes) > 0 && !contains(options.AllowedTypes, fileExt) {
		return nil, ErrValidation("file type %s is not allowed", fileExt)
	}

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return nil, ErrUnexpected("failed to read file", err)
	}
	if len(fileBytes) == 0 {
		return nil, ErrValidation("file is empty")
	}

	// The extension is client supplied; the content must agree with it.
	detected := mimetype.Detect(fileBytes)
	if len(options.AllowedTypes) > 0 && !contains(options.AllowedTypes, detected.Extension()) &&
		!(fileExt == ".jpeg" && detected.Extension() == ".jpg") {
		return nil, ErrValidation("file content (%s) does not match its extension %s", detected.String(), fileExt)
	}

	key := s.generateFileName(header.Filename, options.Folder)

	if s.s3Client != nil {
		return s.uploadToS3(ctx, fileBytes, key, detected.String(), options.IsPublic)
	}
	return s.uploadToLocal(fileBytes, key, detected.String())
}

func (s *StorageService) uploadToS3(ctx context.Context, fileBytes []byte, key, contentType string, isPublic bool) (*UploadResult, error) {
	params := &s3.PutObjectInput{
		Bucket:        aws.String(s.config.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(fileBytes),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(fileBytes))),
	}

	if isPublic {
		params.ACL = aws.String("public-read")
	}

	if _, err := s.s3Client.PutObjectWithContext(ctx, params); err != nil {
		return nil, ErrUnexpected("failed to upload to S3", err)
	}

	return &UploadResult{
		URL:      s.getS3URL(key),
		Key:      key,
		Size:     int64(len(fileBytes)),
		MimeType: contentType,
	}, nil
}

func (s *StorageService) uploadToLocal(fileBytes []byte, key, contentType string) (*UploadResult, error) {
	path := s.localPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, ErrUnexpected("failed to prepare upload directory", err)
	}
	if err := os.WriteFile(path, fileBytes, 0o644); err != nil {
		return nil, ErrUnexpected("failed to store file", err)
	}

	logrus.WithField("key", key).Debug("Stored upload on local disk")

	return &UploadResult{
		URL:      "/uploads/" + key,
		Key:      key,
		Size:     int64(len(fileBytes)),
		MimeType: contentType,
	}, nil
}

func (s *StorageService) DeleteFile(ctx context.Context, key string) error {
	if s.s3Client == nil {
		if err := os.Remove(s.localPath(key)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete local file: %w", err)
		}
		return nil
	}

	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}

	return nil
}

// AccessURL returns a link to key valid for expiration: a presigned URL on
// S3, a token-signed /uploads link on local disk.
func (s *StorageService) AccessURL(key string, expiration time.Duration) (string, error) {
	if s.s3Client == nil {
		token, err := utils.GenerateDocumentToken(key, expiration)
		if err != nil {
			return "", fmt.Errorf("failed to sign document link: %w", err)
		}
		return "/uploads/" + key + "?token=" + token, nil
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.S3Bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiration)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url, nil
}

func (s *StorageService) KeyFromURL(url string) (string, bool) {
	prefix := "/uploads/"
	if s.s3Client != nil {
		prefix = s.getS3URL("")
	}
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	if key == "" || strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}

// LocalFile checks a link signed by AccessURL and returns the file path.
func (s *StorageService) LocalFile(key, token string) (string, error) {
	if s.s3Client != nil {
		return "", ErrNotFound("document")
	}
	signed, err := utils.ValidateDocumentToken(token)
	if err != nil || signed != key {
		return "", ErrForbidden("document link is invalid or has expired")
	}
	if key == "" || strings.Contains(key, "..") {
		return "", ErrNotFound("document")
	}

	path := s.localPath(key)
	if _, err := os.Stat(path); err != nil {
		return "", ErrNotFound("document")
	}
	return path, nil
}

func (s *StorageService) localPath(key string) string {
	dir := s.config.LocalUploadDir
	if dir == "" {
		dir = "./uploads"
	}
	return filepath.Join(dir, filepath.FromSlash(key))
}

// ClaimDocumentOptions limits what a customer may attach to a claim. Files
// land under a folder named after the uploader.
func ClaimDocumentOptions(uploader uuid.UUID) UploadOptions {
	return UploadOptions{
		Folder:       claimDocumentFolder + "/" + uploader.String(),
		MaxSize:      10 * 1024 * 1024, // 10MB
		AllowedTypes: []string{".jpg", ".jpeg", ".png", ".pdf"},
		IsPublic:     false,
	}
}

func (s *StorageService) generateFileName(originalName, folder string) string {
	id := uuid.New()
	ext := strings.ToLower(filepath.Ext(originalName))

	timestamp := time.Now().Format("20060102")
	filename := fmt.Sprintf("%s_%s%s", timestamp, id.String()[:8], ext)

	if folder != "" {
		return fmt.Sprintf("%s/%s", folder, filename)
	}

	return filename
}

func (s *StorageService) getS3URL(key string) string {
	if s.config.CloudFrontURL != "" {
		return fmt.Sprintf("%s/%s", s.config.CloudFrontURL, key)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s",
		s.config.S3Bucket, s.config.Region, key)
}

// DocumentUploader returns who uploaded the claim document stored at key.
func DocumentUploader(key string) (uuid.UUID, bool) {
	parts := strings.Split(key, "/")
	if len(parts) != 3 || parts[0] != claimDocumentFolder || parts[2] == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// internal/services/storage_service_test.go
package services

import (
	"bytes"
	"context"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/insurance-backend/internal/config"
	"github.com/javajoker/insurance-backend/internal/utils"
)

func pngBytes() []byte {
	return append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)
}

var uploaderID = uuid.MustParse("7d1f3c2a-5b6e-4f80-9a1b-2c3d4e5f6a7b")

func uploadLocal(t *testing.T, storage *StorageService, name string, content []byte) (*UploadResult, error) {
	t.Helper()
	header := &multipart.FileHeader{Filename: name, Size: int64(len(content))}
	return storage.UploadFile(context.Background(), bytes.NewReader(content), header, ClaimDocumentOptions(uploaderID))
}

func TestLocalStorageLifecycle(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewStorageService(config.AWSConfig{LocalUploadDir: dir})
	require.NoError(t, err)

	result, err := uploadLocal(t, storage, "Discharge.PNG", pngBytes())
	require.NoError(t, err)
	assert.Equal(t, "image/png", result.MimeType)
	assert.Regexp(t, `^claim-documents/`+uploaderID.String()+`/\d{8}_[0-9a-f]{8}\.png$`, result.Key)
	assert.Equal(t, "/uploads/"+result.Key, result.URL)

	key, ok := storage.KeyFromURL(result.URL)
	require.True(t, ok)
	assert.Equal(t, result.Key, key)

	uploader, ok := DocumentUploader(key)
	require.True(t, ok)
	assert.Equal(t, uploaderID, uploader)

	path := filepath.Join(dir, filepath.FromSlash(key))
	_, err = os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, storage.DeleteFile(context.Background(), key))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Deleting twice is not an error.
	assert.NoError(t, storage.DeleteFile(context.Background(), key))
}

func TestStorageRejectsUnsafeUploads(t *testing.T) {
	storage, err := NewStorageService(config.AWSConfig{LocalUploadDir: t.TempDir()})
	require.NoError(t, err)

	_, err = uploadLocal(t, storage, "run.sh", []byte("#!/bin/sh\necho hi\n"))
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = uploadLocal(t, storage, "fake.pdf", []byte("plain text pretending"))
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = uploadLocal(t, storage, "empty.png", nil)
	assert.Equal(t, KindValidation, KindOf(err))

	big := &multipart.FileHeader{Filename: "huge.pdf", Size: 11 * 1024 * 1024}
	_, err = storage.UploadFile(context.Background(), bytes.NewReader(nil), big, ClaimDocumentOptions(uploaderID))
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestKeyFromURL(t *testing.T) {
	storage, err := NewStorageService(config.AWSConfig{LocalUploadDir: t.TempDir()})
	require.NoError(t, err)

	for _, url := range []string{
		"https://cdn.example.com/claim-documents/x.pdf",
		"/uploads/",
		"/uploads/../etc/passwd",
		"/uploads/?token=abc",
		"discharge.pdf",
	} {
		_, ok := storage.KeyFromURL(url)
		assert.False(t, ok, url)
	}
}

func TestLocalLinksAreSignedAndExpire(t *testing.T) {
	utils.SetJWTSecret("storage-test-secret")
	dir := t.TempDir()
	storage, err := NewStorageService(config.AWSConfig{LocalUploadDir: dir})
	require.NoError(t, err)

	result, err := uploadLocal(t, storage, "bill.png", pngBytes())
	require.NoError(t, err)
	other, err := uploadLocal(t, storage, "scan.png", pngBytes())
	require.NoError(t, err)

	link, err := storage.AccessURL(result.Key, time.Minute)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link, result.URL+"?token="))

	key, ok := storage.KeyFromURL(link)
	require.True(t, ok)
	assert.Equal(t, result.Key, key)

	token := strings.TrimPrefix(link, result.URL+"?token=")
	path, err := storage.LocalFile(result.Key, token)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, filepath.FromSlash(result.Key)), path)

	_, err = storage.LocalFile(other.Key, token)
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = storage.LocalFile(result.Key, "")
	assert.Equal(t, KindForbidden, KindOf(err))

	access, err := utils.GenerateJWT(uploaderID, "user", 1)
	require.NoError(t, err)
	_, err = storage.LocalFile(result.Key, access)
	assert.Equal(t, KindForbidden, KindOf(err))

	expired, err := storage.AccessURL(result.Key, -time.Minute)
	require.NoError(t, err)
	_, err = storage.LocalFile(result.Key, strings.TrimPrefix(expired, result.URL+"?token="))
	assert.Equal(t, KindForbidden, KindOf(err))
}

func TestDocumentUploader(t *testing.T) {
	for _, key := range []string{
		"claim-documents/discharge.pdf",
		"claim-documents/not-a-uuid/discharge.pdf",
		"avatars/" + uploaderID.String() + "/me.png",
		"claim-documents/" + uploaderID.String() + "/",
	} {
		_, ok := DocumentUploader(key)
		assert.False(t, ok, key)
	}
}

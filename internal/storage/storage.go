// Package storage archives uploaded CSV files and generated reports in an
// S3-compatible object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Key prefixes of archived objects.
const (
	UploadsPrefix = "uploads/"
	ReportsPrefix = "reports/"
)

var (
	// ErrNotFound is returned when an object does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrDisabled is returned by every operation of a store without a backend.
	ErrDisabled = errors.New("object storage is not configured")
)

// PutObjectOptions define optional parameters for uploading objects.
// Size is the exact number of bytes, or -1 when unknown.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	// ContentDisposition is served back on download, so presigned report
	// links save under the report's file name.
	ContentDisposition string
	Metadata           map[string]string
}

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is an object store client. Methods stream content and never touch local disk.
type Storage interface {
	// Put uploads an object under key.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get returns the object's content alongside its info. Missing objects yield ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited download URL.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// UploadKey builds the archive key of a bulk upload received at t.
func UploadKey(t time.Time, filename string) string {
	return fmt.Sprintf("%s%s/%s-%s", UploadsPrefix, t.UTC().Format("2006-01-02"), uuid.NewString(), cleanName(filename))
}

// ReportKey builds the archive key of an exported report.
func ReportKey(filename string) string {
	return ReportsPrefix + cleanName(filename)
}

// Attachment returns a Content-Disposition value naming filename.
func Attachment(filename string) string {
	return `attachment; filename="` + cleanName(filename) + `"`
}

// ReportName validates a report name taken from a URL and returns its key.
func ReportName(name string) (string, bool) {
	if name == "" || name != cleanName(name) || !strings.HasSuffix(name, ".xlsx") {
		return "", false
	}
	return ReportKey(name), true
}

func cleanName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == ".." {
		return "file"
	}
	return strings.ReplaceAll(base, " ", "_")
}

type disabled struct{}

// Disabled returns a Storage that rejects every call with ErrDisabled.
func Disabled() Storage {
	return disabled{}
}

func (disabled) Put(context.Context, string, io.Reader, PutObjectOptions) (ObjectInfo, error) {
	return ObjectInfo{}, ErrDisabled
}

func (disabled) Get(context.Context, string) (io.ReadCloser, ObjectInfo, error) {
	return nil, ObjectInfo{}, ErrDisabled
}

func (disabled) Delete(context.Context, string) error {
	return ErrDisabled
}

func (disabled) PresignGet(context.Context, string, time.Duration) (string, error) {
	return "", ErrDisabled
}

package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docflow_app_go/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// StorageProvider is the object storage that hosts case documents.
type StorageProvider interface {
	Exists(ctx context.Context, key string) (bool, error)
	// KeyFromURL returns the object key when raw points inside this storage.
	KeyFromURL(raw string) (string, bool)
	GetPublicURL(key string) string
	IsConfigured() bool
}

// InitializeStorage picks R2 when fully configured and reachable, local
// storage otherwise.
func InitializeStorage(cfg *config.Config, logger *zap.Logger) StorageProvider {
	if cfg.R2AccountID == "" || cfg.R2AccessKeyID == "" || cfg.R2SecretAccessKey == "" || cfg.R2BucketName == "" {
		logger.Info("storage: local filesystem", zap.String("path", cfg.UploadDir))
		return NewLocalStorage(cfg.UploadDir, cfg.AppURL)
	}

	r2, err := NewR2Storage(cfg)
	if err != nil {
		logger.Warn("failed to initialize R2 storage, falling back to local storage", zap.Error(err))
		return NewLocalStorage(cfg.UploadDir, cfg.AppURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := r2.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.R2BucketName)}); err != nil {
		logger.Warn("R2 bucket connection test failed, falling back to local storage", zap.Error(err))
		return NewLocalStorage(cfg.UploadDir, cfg.AppURL)
	}

	logger.Info("storage: cloudflare R2", zap.String("bucket", cfg.R2BucketName))
	return r2
}

// s3API is the subset of the S3 client R2Storage calls.
type s3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// R2Storage implements StorageProvider for Cloudflare R2
type R2Storage struct {
	client    s3API
	bucket    string
	publicURL string
}

// NewR2Storage creates a new R2 storage provider
func NewR2Storage(cfg *config.Config) (*R2Storage, error) {
	// R2 endpoint format: https://<account_id>.r2.cloudflarestorage.com
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)

	creds := credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(creds),
		awsconfig.WithRegion("auto"), // R2 uses "auto" region
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &R2Storage{
		client:    client,
		bucket:    cfg.R2BucketName,
		publicURL: cfg.R2PublicURL,
	}, nil
}

// IsConfigured returns true if R2 is properly configured
func (r *R2Storage) IsConfigured() bool {
	return r.client != nil && r.bucket != ""
}

// Exists reports whether key is present in the bucket.
func (r *R2Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check object in R2: %w", err)
}

// GetPublicURL returns the public URL for a file (if public URL is configured)
func (r *R2Storage) GetPublicURL(key string) string {
	if r.publicURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(r.publicURL, "/"), key)
}

func (r *R2Storage) KeyFromURL(raw string) (string, bool) {
	return keyUnderBase(r.publicURL, raw)
}

// LocalStorage implements StorageProvider for local filesystem
type LocalStorage struct {
	baseDir string
	baseURL string
}

// NewLocalStorage creates a new local storage provider. Files are served
// under appURL + "/" + baseDir.
func NewLocalStorage(baseDir, appURL string) *LocalStorage {
	return &LocalStorage{baseDir: baseDir, baseURL: strings.TrimSuffix(appURL, "/")}
}

// IsConfigured returns true (local storage is always available)
func (l *LocalStorage) IsConfigured() bool {
	return true
}

// Exists reports whether key is present under the base directory.
func (l *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	info, err := os.Stat(filepath.Join(l.baseDir, filepath.FromSlash(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat file: %w", err)
	}
	return !info.IsDir(), nil
}

// GetPublicURL returns the URL the file is served at
func (l *LocalStorage) GetPublicURL(key string) string {
	return l.root() + "/" + strings.TrimPrefix(key, "/")
}

func (l *LocalStorage) KeyFromURL(raw string) (string, bool) {
	return keyUnderBase(l.root(), raw)
}

func (l *LocalStorage) root() string {
	return l.baseURL + "/" + strings.TrimPrefix(filepath.ToSlash(filepath.Clean(l.baseDir)), "/")
}

// keyUnderBase returns the path of raw relative to base when raw is on the
// same host and below base's path.
func keyUnderBase(base, raw string) (string, bool) {
	if base == "" {
		return "", false
	}
	b, err := url.Parse(base)
	if err != nil || b.Host == "" {
		return "", false
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !strings.EqualFold(u.Host, b.Host) {
		return "", false
	}
	prefix := strings.TrimSuffix(b.Path, "/") + "/"
	if !strings.HasPrefix(u.Path, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(u.Path, prefix)
	if key == "" || strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}

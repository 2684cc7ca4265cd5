package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

const (
	// MaxAudioFileSize is the transcription service's upload limit (25MB).
	MaxAudioFileSize = 25 * 1024 * 1024
	// FolderAudio is the S3 prefix for uploaded audio objects.
	FolderAudio = "audio"
)

// Audio and video MIME types the transcription service accepts.
var (
	AllowedAudioTypes = map[string]string{
		"audio/flac": ".flac",
		"audio/m4a":  ".m4a",
		"audio/mp3":  ".mp3",
		"audio/mp4":  ".mp4",
		"audio/mpeg": ".mp3",
		"audio/mpga": ".mp3",
		"audio/oga":  ".ogg",
		"audio/ogg":  ".ogg",
		"audio/wav":  ".wav",
		"audio/webm": ".webm",
		"video/mp4":  ".mp4",
		"video/webm": ".webm",
	}
	AllowedAudioExtensions = map[string]string{
		".flac": "audio/flac",
		".m4a":  "audio/m4a",
		".mp3":  "audio/mp3",
		".mp4":  "audio/mp4",
		".mpga": "audio/mpga",
		".oga":  "audio/oga",
		".ogg":  "audio/ogg",
		".wav":  "audio/wav",
		".webm": "audio/webm",
	}
)

// S3Config holds S3 client configuration.
type S3Config struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	AudioBucket          string
	PresignExpireMinutes int
}

// S3 stores uploaded audio objects pending transcription, with validation
// and pre-signed URLs for direct browser uploads.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      S3Config
	logger   *zap.Logger
}

// NewS3 creates an S3 client using credentials from config or the
// environment (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY).
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	accessKey := cfg.AccessKeyID
	secretKey := cfg.SecretAccessKey
	if accessKey == "" || secretKey == "" {
		accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey, secretKey, "",
		)))
	} else if logger != nil {
		logger.Warn("S3 client using default credential chain (AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY not set)")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
	})
	return &S3{
		client:   client,
		uploader: uploader,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// ValidateAudioFileType returns true if the content type and/or extension
// are accepted by the transcription service.
func ValidateAudioFileType(contentType, filename string) bool {
	ext := strings.ToLower(path.Ext(filename))
	if contentType != "" {
		if _, ok := AllowedAudioTypes[strings.ToLower(contentType)]; ok {
			return true
		}
	}
	if ext != "" {
		if _, ok := AllowedAudioExtensions[ext]; ok {
			return true
		}
	}
	return false
}

// ContentTypeForFilename returns the MIME type for an audio filename
// extension.
func ContentTypeForFilename(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ct, ok := AllowedAudioExtensions[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

// AudioKey returns the S3 object key: audio/{session_id}/{object_id}<ext>.
func AudioKey(sessionID, objectID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if _, ok := AllowedAudioExtensions[ext]; !ok {
		ext = ".wav"
	}
	return path.Join(FolderAudio, sessionID, objectID+ext)
}

// GeneratePresignedUploadURL returns a pre-signed PUT URL for direct upload.
func (s *S3) GeneratePresignedUploadURL(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	presignClient := s3.NewPresignClient(s.client)
	req, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AudioBucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expires
	})
	if err != nil {
		return "", fmt.Errorf("presign put: %w", err)
	}
	return req.URL, nil
}

// PresignExpire returns the configured presign duration.
func (s *S3) PresignExpire() time.Duration {
	if s.cfg.PresignExpireMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(s.cfg.PresignExpireMinutes) * time.Minute
}

// AudioBucket returns the audio bucket name.
func (s *S3) AudioBucket() string { return s.cfg.AudioBucket }

// Upload streams a reader to the audio bucket (server-side uploads).
func (s *S3) Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error) {
	var contentLengthPtr *int64
	if contentLength > 0 {
		contentLengthPtr = &contentLength
	}
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.AudioBucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: contentLengthPtr,
	})
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	url := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.AudioBucket, s.cfg.Region, key)
	return url, nil
}

// GetObjectStream returns the object body, content type and size for a
// stored audio object. Caller must close the body.
func (s *S3) GetObjectStream(ctx context.Context, key string) (body io.ReadCloser, contentType string, size int64, err error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.AudioBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", 0, fmt.Errorf("get object: %w", err)
	}
	ct := ""
	if out.ContentType != nil {
		ct = *out.ContentType
	}
	var length int64
	if out.ContentLength != nil {
		length = *out.ContentLength
	}
	return out.Body, ct, length, nil
}

// DeleteObject removes an audio object once its pipeline run completes.
func (s *S3) DeleteObject(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.AudioBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

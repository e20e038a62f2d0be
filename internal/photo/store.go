// Package photo offloads event photo attachments to object storage. Photos
// arrive from clients as base64 data URIs; when MinIO is configured they are
// decoded and stored as objects and the event keeps only the object URL.
// Without MinIO the data URIs stay inline on the event row.
package photo

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"engcontrol/api/internal/util"
)

type Store struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the base URL stored on events. Defaults to the endpoint.
	PublicURL string
}

func NewStore(ctx context.Context, opts Options) (*Store, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	publicURL := strings.TrimRight(opts.PublicURL, "/")
	if publicURL == "" {
		scheme := "http"
		if opts.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, opts.Endpoint, opts.Bucket)
	}

	return &Store{client: client, bucket: opts.Bucket, publicURL: publicURL}, nil
}

// Offload stores every data-URI photo as an object and returns the photo list
// with those entries replaced by object URLs. Entries that are not data URIs
// pass through untouched, and an entry that fails to upload stays inline.
// A nil store leaves everything inline.
func (s *Store) Offload(ctx context.Context, eventID string, photos []string) []string {
	if s == nil || len(photos) == 0 {
		return photos
	}
	out := make([]string, len(photos))
	for i, p := range photos {
		mime, data, ok := ParseDataURI(p)
		if !ok {
			out[i] = p
			continue
		}
		key := fmt.Sprintf("events/%s/%s.%s", eventID, util.NewID("ph"), extension(mime))
		_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: mime,
		})
		if err != nil {
			log.Printf(`{"level":"warn","msg":"photo upload failed, keeping inline","event":%q,"error":%q}`, eventID, err.Error())
			out[i] = p
			continue
		}
		out[i] = s.publicURL + "/" + key
	}
	return out
}

// ParseDataURI decodes a "data:<mime>;base64,<payload>" string. ok is false
// for anything else, including data URIs without base64 encoding.
func ParseDataURI(s string) (mime string, data []byte, ok bool) {
	rest, found := strings.CutPrefix(s, "data:")
	if !found {
		return "", nil, false
	}
	meta, payload, found := strings.Cut(rest, ",")
	if !found || !strings.HasSuffix(meta, ";base64") {
		return "", nil, false
	}
	mime = strings.TrimSuffix(meta, ";base64")
	if mime == "" {
		return "", nil, false
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, false
	}
	return mime, data, true
}

func extension(mime string) string {
	switch mime {
	case "image/png":
		return "png"
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "bin"
	}
}

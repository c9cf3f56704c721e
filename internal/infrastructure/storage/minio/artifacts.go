package minio

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
	"github.com/ClairePA/ChemistryToolkit/pkg/types/common"
)

// Format is an export format of a molecule.
type Format string

const (
	FormatSMILES  Format = "smi"
	FormatMolfile Format = "mol"
)

const artifactPrefix = "molecules/"

// ParseFormat accepts "smi"/"smiles" and "mol"/"molfile".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "smi", "smiles":
		return FormatSMILES, nil
	case "mol", "molfile":
		return FormatMolfile, nil
	}
	return "", errors.InvalidParam("unsupported export format").WithDetail(s)
}

func (f Format) ContentType() string {
	if f == FormatMolfile {
		return "chemical/x-mdl-molfile"
	}
	return "chemical/x-daylight-smiles"
}

// Artifact describes a stored export.
type Artifact struct {
	Key         string    `json:"key"`
	Bucket      string    `json:"bucket"`
	Size        int64     `json:"size"`
	ETag        string    `json:"etag,omitempty"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// ArtifactKey returns molecules/<id>.<ext>.
func ArtifactKey(id common.ID, f Format) string {
	return fmt.Sprintf("%s%s.%s", artifactPrefix, id, f)
}

// ArtifactStore writes molecule exports to one bucket.
type ArtifactStore struct {
	api    ObjectAPI
	bucket string
	logger logging.Logger
}

func NewArtifactStore(api ObjectAPI, bucket string, log logging.Logger) *ArtifactStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ArtifactStore{api: api, bucket: bucket, logger: log}
}

// Put stores content under the key of (id, f), replacing any earlier export.
func (s *ArtifactStore) Put(ctx context.Context, id common.ID, f Format, content []byte) (*Artifact, error) {
	key := ArtifactKey(id, f)
	info, err := s.api.PutObject(ctx, s.bucket, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType:  f.ContentType(),
		UserMetadata: map[string]string{"molecule-id": string(id)},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeObjectStoreFailed, "artifact upload failed").WithDetail(key)
	}
	s.logger.Debug("artifact stored", logging.String("key", key), logging.Int64("size", info.Size))
	return &Artifact{
		Key:         key,
		Bucket:      s.bucket,
		Size:        info.Size,
		ETag:        info.ETag,
		ContentType: f.ContentType(),
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Stat returns the artifact metadata, or a NotFound error.
func (s *ArtifactStore) Stat(ctx context.Context, key string) (*Artifact, error) {
	info, err := s.api.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, errors.NotFound("artifact not found").WithDetail(key)
		}
		return nil, errors.Wrap(err, errors.ErrCodeObjectStoreFailed, "artifact stat failed").WithDetail(key)
	}
	return &Artifact{
		Key:         key,
		Bucket:      s.bucket,
		Size:        info.Size,
		ETag:        info.ETag,
		ContentType: info.ContentType,
		CreatedAt:   info.LastModified,
	}, nil
}

// URL returns a presigned download URL valid for expiry.
func (s *ArtifactStore) URL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.api.PresignedGetObject(ctx, s.bucket, key, expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeObjectStoreFailed, "presign failed").WithDetail(key)
	}
	return u.String(), nil
}

func (s *ArtifactStore) Delete(ctx context.Context, key string) error {
	if err := s.api.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeObjectStoreFailed, "artifact delete failed").WithDetail(key)
	}
	return nil
}

// List returns the stored artifacts, at most limit when limit > 0.
func (s *ArtifactStore) List(ctx context.Context, limit int) ([]*Artifact, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var out []*Artifact
	for obj := range s.api.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: artifactPrefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeObjectStoreFailed, "artifact list failed")
		}
		out = append(out, &Artifact{
			Key:         obj.Key,
			Bucket:      s.bucket,
			Size:        obj.Size,
			ETag:        obj.ETag,
			ContentType: obj.ContentType,
			CreatedAt:   obj.LastModified,
		})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

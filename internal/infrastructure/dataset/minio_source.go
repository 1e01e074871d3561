package dataset

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/openlands/caselens/internal/config"
	"github.com/openlands/caselens/internal/domain/casefile"
	"github.com/openlands/caselens/internal/infrastructure/monitoring/logging"
	"github.com/openlands/caselens/pkg/errors"
)

// objectStore is the subset of the MinIO client the source needs.
type objectStore interface {
	GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (io.ReadCloser, error)
}

type minioStore struct{ client *minio.Client }

func (s minioStore) GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return s.client.GetObject(ctx, bucket, object, opts)
}

// MinioSource loads dataset CSV exports from object storage.  It implements
// casefile.CorpusSource: each dataset tag maps to the object
// "<dataset>.csv" in the configured bucket.
type MinioSource struct {
	store  objectStore
	bucket string
	logger logging.Logger
}

// NewMinioSource connects to the object store.
func NewMinioSource(cfg config.MinIOConfig, logger logging.Logger) (*MinioSource, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCorpusSourceFailed, "failed to create object store client")
	}
	logger.Info("object store client created",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket))
	return &MinioSource{
		store:  minioStore{client: client},
		bucket: cfg.Bucket,
		logger: logger.Named("dataset.minio"),
	}, nil
}

// LoadCases fetches and parses every requested dataset.  A missing or
// unreadable dataset fails the whole load so a refresh never silently
// serves a partial corpus.
func (s *MinioSource) LoadCases(ctx context.Context, datasets []string) ([]casefile.CaseRecord, error) {
	if len(datasets) == 0 {
		return nil, errors.New(errors.ErrCodeCaseDatasetUnknown, "no datasets requested")
	}

	var records []casefile.CaseRecord
	for _, dataset := range datasets {
		object := dataset + ".csv"
		body, err := s.store.GetObject(ctx, s.bucket, object, minio.GetObjectOptions{})
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCorpusSourceFailed, "failed to fetch dataset object")
		}

		parsed, err := ParseCSV(body, dataset, s.logger)
		closeErr := body.Close()
		if err != nil {
			return nil, err
		}
		if closeErr != nil {
			return nil, errors.Wrap(closeErr, errors.ErrCodeCorpusSourceFailed, "failed to read dataset object")
		}
		records = append(records, parsed...)
	}
	return records, nil
}

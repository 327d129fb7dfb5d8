package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/qborelay/internal/common"
	"github.com/dmitrijs2005/qborelay/internal/logging"
	sc "github.com/dmitrijs2005/qborelay/internal/server/config"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ExportURLValidity is how long a presigned download link works.
const ExportURLValidity = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// ExportResult points at an uploaded fan-out document.
type ExportResult struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
	Companies int       `json:"companies"`
	Failed    int       `json:"failed"`
}

// ExportService stores fan-out results in S3-compatible storage and hands
// back a presigned link, for answers too large to return inline.
type ExportService struct {
	query  *QueryService
	config *sc.Config
	log    logging.Logger
	now    func() time.Time
}

func NewExportService(query *QueryService, config *sc.Config, log logging.Logger) *ExportService {
	if log == nil {
		log = logging.Nop{}
	}
	return &ExportService{
		query:  query,
		config: config,
		log:    log.With("module", "export"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Enabled reports whether a bucket is configured.
func (s *ExportService) Enabled() bool {
	return s.config.S3Bucket != ""
}

// ExportStorageKey builds exports/{user-hash}/{yyyy}/{mm}/{dd}/{uuid}.json.
// The user id is hashed so e-mail addresses do not end up in object names.
func ExportStorageKey(userID string, d time.Time) string {
	sum := sha256.Sum256([]byte(userID))
	return fmt.Sprintf("exports/%s/%04d/%02d/%02d/%v.json",
		hex.EncodeToString(sum[:8]), d.Year(), int(d.Month()), d.Day(), uuid.New())
}

func (s *ExportService) getClient(ctx context.Context) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(s.config.S3Region)}
	if s.config.S3RootUser != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.config.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// ExportAllCompanies runs QueryAllCompanies, uploads the JSON document and
// returns a download link valid for ExportURLValidity.
func (s *ExportService) ExportAllCompanies(ctx context.Context, userID, sql string, limitPerCompany int) (*ExportResult, error) {
	if !s.Enabled() {
		return nil, common.ErrExportDisabled
	}

	res, err := s.query.QueryAllCompanies(ctx, userID, sql, limitPerCompany)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal export: %v", common.ErrorInternal, err)
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: s3 client: %v", common.ErrorInternal, err)
	}

	bucket := s.config.S3Bucket
	now := s.now()
	key := ExportStorageKey(userID, now)

	if _, err := putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return nil, fmt.Errorf("%w: upload export: %v", common.ErrRemoteTransport, err)
	}

	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(ExportURLValidity))
	if err != nil {
		return nil, fmt.Errorf("%w: presign export: %v", common.ErrorInternal, err)
	}

	s.log.Info(ctx, "export stored", "user_id", userID, "key", key, "companies", len(res.Results))

	return &ExportResult{
		Key:       key,
		URL:       req.URL,
		ExpiresAt: now.Add(ExportURLValidity),
		Companies: len(res.Results),
		Failed:    res.Failed(),
	}, nil
}

package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config はS3互換ストレージ（AWS S3 / MinIO）の構成。
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string // MinIOなどのカスタムエンドポイント。空の場合はAWS
	// PathStyle はバケットをホスト名ではなくパスに含める。MinIOでは通常true
	PathStyle bool
	// PublicBaseURL は公開URLのベース。空の場合はエンドポイントとバケットから組み立てる
	PublicBaseURL string

	// 静的認証情報。空の場合はAWS SDKの既定の認証チェーンを使う
	AccessKeyID     string
	SecretAccessKey string
}

// S3Store はS3互換ストレージに画像を保存するStore。
type S3Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// NewS3 はS3Storeを生成する。optFnsはs3クライアントのオプションに追加適用される。
func NewS3(ctx context.Context, cfg S3Config, optFns ...func(*s3.Options)) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required for s3 image storage")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		for _, fn := range optFns {
			fn(o)
		}
	})

	return &S3Store{client: client, bucket: cfg.Bucket, baseURL: s3PublicBase(cfg, region)}, nil
}

// s3PublicBase は公開URLのベースを決定する。
func s3PublicBase(cfg S3Config, region string) string {
	if cfg.PublicBaseURL != "" {
		return cfg.PublicBaseURL
	}
	if cfg.Endpoint != "" {
		if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
			if cfg.PathStyle {
				return joinURL(u.String(), cfg.Bucket)
			}
			return u.Scheme + "://" + cfg.Bucket + "." + u.Host
		}
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
}

func (s *S3Store) Driver() Driver { return DriverS3 }

func (s *S3Store) URL(key string) string { return joinURL(s.baseURL, key) }

// Put はPutObjectでオブジェクトを保存する。
// rがio.Seekerでない場合、SDKがチャンク転送に切り替えるためSizeの指定を推奨する。
func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Object, error) {
	key, err := CleanKey(key)
	if err != nil {
		return Object{}, err
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if opts.Size > 0 {
		input.ContentLength = aws.Int64(opts.Size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return Object{}, fmt.Errorf("failed to put s3://%s/%s: %w", s.bucket, key, err)
	}
	return Object{Key: key, Size: opts.Size, ContentType: opts.ContentType, URL: s.URL(key)}, nil
}

// Delete はDeleteObjectでオブジェクトを削除する。S3は存在しないキーの削除も成功を返す。
func (s *S3Store) Delete(ctx context.Context, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

var _ Store = (*S3Store)(nil)

package objectstore

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() S3Config {
	return S3Config{
		User:     "minioadmin",
		Password: "minioadmin",
		Bucket:   "valutx",
		Region:   "us-east-1",
		Endpoint: "http://127.0.0.1:9000",
	}
}

func TestNewS3Store_NotConfigured(t *testing.T) {
	_, err := NewS3Store(context.Background(), S3Config{Bucket: "b"})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewS3Store_LoadConfigError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}

	_, err := NewS3Store(context.Background(), testConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load s3 config: no config")
}

func TestNewS3Store_AppliesRegion(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	var region string
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		region = lo.Region
		return orig(ctx, optFns...)
	}

	s, err := NewS3Store(context.Background(), testConfig())
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", region)
	assert.Equal(t, "valutx", s.bucket)
}

func TestPresignGet_PathStyleURL(t *testing.T) {
	s, err := NewS3Store(context.Background(), testConfig())
	require.NoError(t, err)

	raw, err := s.PresignGet(context.Background(), "exports/u1/2026/07/01/x.json", 5*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", u.Host)
	assert.Equal(t, "/valutx/exports/u1/2026/07/01/x.json", u.Path)
	assert.Equal(t, "300", u.Query().Get("X-Amz-Expires"))
}

func TestPresignGet_Error(t *testing.T) {
	orig := presignGetObject
	t.Cleanup(func() { presignGetObject = orig })
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("sign failed")
	}

	s, err := NewS3Store(context.Background(), testConfig())
	require.NoError(t, err)
	_, err = s.PresignGet(context.Background(), "k", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "presign get k: sign failed")
}

func TestPut(t *testing.T) {
	orig := putObject
	t.Cleanup(func() { putObject = orig })

	var got *s3.PutObjectInput
	var body string
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		got = in
		b, err := io.ReadAll(in.Body)
		require.NoError(t, err)
		body = string(b)
		return &s3.PutObjectOutput{}, nil
	}

	s, err := NewS3Store(context.Background(), testConfig())
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), "k.json", []byte(`{"a":1}`), "application/json"))

	assert.Equal(t, "valutx", aws.ToString(got.Bucket))
	assert.Equal(t, "k.json", aws.ToString(got.Key))
	assert.Equal(t, "application/json", aws.ToString(got.ContentType))
	assert.Equal(t, `{"a":1}`, body)

	putObject = func(*s3.Client, context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return nil, errors.New("denied")
	}
	err = s.Put(context.Background(), "k.json", nil, "application/json")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "put object k.json: denied"))
}

func TestExportKey(t *testing.T) {
	at := time.Date(2026, 3, 7, 23, 0, 0, 0, time.FixedZone("x", -5*3600))
	assert.Equal(t, "exports/u1/2026/03/08/abc.json", ExportKey("u1", at, "abc"))
}

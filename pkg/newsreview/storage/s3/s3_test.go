package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/leadnews/newsreview/pkg/newsreview"
)

type mockObjectClient struct {
	mock.Mock
}

func (m *mockObjectClient) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.GetObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPresignClient struct {
	mock.Mock
}

func (m *mockPresignClient) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*v4.PresignedHTTPRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func objectOutput(body string) *s3.GetObjectOutput {
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader([]byte(body))),
		ContentLength: aws.Int64(int64(len(body))),
	}
}

func TestBackend_Configuration(t *testing.T) {
	t.Run("EmptyBucket", func(t *testing.T) {
		_, err := New(Config{Region: "us-east-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket name is required")
	})

	t.Run("DefaultPresignDuration", func(t *testing.T) {
		b, err := NewWithClients(&mockObjectClient{}, &mockPresignClient{}, Config{Bucket: "dict"})
		require.NoError(t, err)
		assert.Equal(t, time.Hour, b.presignDuration)
	})

	t.Run("CustomEndpoint", func(t *testing.T) {
		b, err := New(Config{
			Bucket:          "dict",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
			Endpoint:        "http://localhost:9000",
			UsePathStyle:    true,
			PresignDuration: 600,
		})
		require.NoError(t, err)
		assert.Equal(t, 10*time.Minute, b.presignDuration)
	})
}

func TestBackend_GetSensitiveDictionary(t *testing.T) {
	ctx := context.Background()

	t.Run("ParsesLines", func(t *testing.T) {
		client := &mockObjectClient{}
		client.On("GetObject", mock.Anything, mock.MatchedBy(func(input *s3.GetObjectInput) bool {
			return *input.Bucket == "dict" && *input.Key == "sensitive/words.txt"
		})).Return(objectOutput("# banned\ncheap X\n\n  spam  \n"), nil)

		b, err := NewWithClients(client, &mockPresignClient{}, Config{Bucket: "dict", DictionaryKey: "sensitive/words.txt"})
		require.NoError(t, err)

		terms, err := b.GetSensitiveDictionary(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"cheap X", "spam"}, terms)
		client.AssertExpectations(t)
	})

	t.Run("MissingObject", func(t *testing.T) {
		client := &mockObjectClient{}
		client.On("GetObject", mock.Anything, mock.Anything).Return(nil, &types.NoSuchKey{})

		b, err := NewWithClients(client, &mockPresignClient{}, Config{Bucket: "dict", DictionaryKey: "missing.txt"})
		require.NoError(t, err)

		_, err = b.GetSensitiveDictionary(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, newsreview.ErrNotFound)
	})

	t.Run("GenericAPIError", func(t *testing.T) {
		client := &mockObjectClient{}
		client.On("GetObject", mock.Anything, mock.Anything).
			Return(nil, &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"})

		b, err := NewWithClients(client, &mockPresignClient{}, Config{Bucket: "dict", DictionaryKey: "words.txt"})
		require.NoError(t, err)

		_, err = b.GetSensitiveDictionary(ctx)
		require.Error(t, err)
		assert.NotErrorIs(t, err, newsreview.ErrNotFound)
		assert.Contains(t, err.Error(), "failed to download dictionary")
	})

	t.Run("NoKeyConfigured", func(t *testing.T) {
		b, err := NewWithClients(&mockObjectClient{}, &mockPresignClient{}, Config{Bucket: "dict"})
		require.NoError(t, err)

		_, err = b.GetSensitiveDictionary(ctx)
		assert.Error(t, err)
	})
}

func TestBackend_ImageURL(t *testing.T) {
	ctx := context.Background()

	t.Run("AbsoluteUnchanged", func(t *testing.T) {
		presign := &mockPresignClient{}
		b, err := NewWithClients(&mockObjectClient{}, presign, Config{Bucket: "img"})
		require.NoError(t, err)

		url, err := b.ImageURL(ctx, "https://cdn.example.com/a.png")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/a.png", url)
		presign.AssertNotCalled(t, "PresignGetObject", mock.Anything, mock.Anything)
	})

	t.Run("PresignsRelative", func(t *testing.T) {
		presign := &mockPresignClient{}
		presign.On("PresignGetObject", mock.Anything, mock.MatchedBy(func(input *s3.GetObjectInput) bool {
			return *input.Bucket == "img" && *input.Key == "images/a.png"
		})).Return(&v4.PresignedHTTPRequest{URL: "https://img.s3/images/a.png?X-Amz-Signature=abc"}, nil)

		b, err := NewWithClients(&mockObjectClient{}, presign, Config{Bucket: "img", ImagePrefix: "images/"})
		require.NoError(t, err)

		url, err := b.ImageURL(ctx, "/a.png")
		require.NoError(t, err)
		assert.Contains(t, url, "X-Amz-Signature")
		presign.AssertExpectations(t)
	})

	t.Run("PresignError", func(t *testing.T) {
		presign := &mockPresignClient{}
		presign.On("PresignGetObject", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

		b, err := NewWithClients(&mockObjectClient{}, presign, Config{Bucket: "img"})
		require.NoError(t, err)

		_, err = b.ImageURL(ctx, "a.png")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to presign image a.png")
	})

	t.Run("RealPresigner", func(t *testing.T) {
		client := s3.New(s3.Options{
			Region:       "us-east-1",
			Credentials:  credentials.NewStaticCredentialsProvider("key", "secret", ""),
			BaseEndpoint: aws.String("http://localhost:9000"),
			UsePathStyle: true,
		})
		b, err := NewWithClients(client, s3.NewPresignClient(client), Config{Bucket: "img", PresignDuration: 900})
		require.NoError(t, err)

		url, err := b.ImageURL(ctx, "a.png")
		require.NoError(t, err)
		assert.Contains(t, url, "localhost:9000/img/a.png")
		assert.Contains(t, url, "X-Amz-Expires=900")
	})
}

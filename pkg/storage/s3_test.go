package storage_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/imoji/pkg/storage"
)

type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func (m *MockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.GetObjectOutput), args.Error(1)
}

func (m *MockS3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.HeadObjectOutput), args.Error(1)
}

func (m *MockS3Client) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.ListObjectsV2Output), args.Error(1)
}

func (m *MockS3Client) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.DeleteObjectOutput), args.Error(1)
}

func (m *MockS3Client) DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.DeleteObjectsOutput), args.Error(1)
}

func newS3(t *testing.T, prefix string) (*storage.S3Storage, *MockS3Client) {
	t.Helper()
	client := &MockS3Client{}
	st, err := storage.NewS3Storage(context.Background(), storage.S3Config{
		Bucket: "stickers",
		Prefix: prefix,
	}, storage.WithS3Client(client))
	require.NoError(t, err)
	return st, client
}

func TestS3Storage_PutUsesPrefix(t *testing.T) {
	t.Parallel()

	st, client := newS3(t, "/cache/")
	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Bucket) == "stickers" &&
			aws.ToString(in.Key) == "cache/render/a.png" &&
			aws.ToInt64(in.ContentLength) == 3
	})).Return(&s3.PutObjectOutput{}, nil).Once()

	require.NoError(t, st.Put(context.Background(), "render/a.png", []byte("png")))
	assert.Equal(t, "s3://stickers/cache/render/a.png", st.Location("render/a.png"))
	client.AssertExpectations(t)
}

func TestS3Storage_Get(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		st, client := newS3(t, "")
		client.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
			return aws.ToString(in.Key) == "a.png"
		})).Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("data"))}, nil).Once()

		data, err := st.Get(context.Background(), "a.png")
		require.NoError(t, err)
		assert.Equal(t, []byte("data"), data)
	})

	t.Run("missing", func(t *testing.T) {
		st, client := newS3(t, "")
		client.On("GetObject", mock.Anything, mock.Anything).Return(nil, &types.NoSuchKey{}).Once()

		_, err := st.Get(context.Background(), "a.png")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("access denied", func(t *testing.T) {
		st, client := newS3(t, "")
		client.On("GetObject", mock.Anything, mock.Anything).
			Return(nil, &smithy.GenericAPIError{Code: "AccessDenied"}).Once()

		_, err := st.Get(context.Background(), "a.png")
		assert.ErrorIs(t, err, storage.ErrAccessDenied)
	})

	t.Run("traversal rejected", func(t *testing.T) {
		st, client := newS3(t, "")
		_, err := st.Get(context.Background(), "../a.png")
		assert.ErrorIs(t, err, storage.ErrInvalidPath)
		client.AssertNotCalled(t, "GetObject", mock.Anything, mock.Anything)
	})
}

func TestS3Storage_DeleteDir(t *testing.T) {
	t.Parallel()

	st, client := newS3(t, "cache")
	client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return aws.ToString(in.Prefix) == "cache/render/"
	})).Return(&s3.ListObjectsV2Output{
		Contents: []types.Object{
			{Key: aws.String("cache/render/a.png")},
			{Key: aws.String("cache/render/b.png")},
		},
	}, nil).Once()
	client.On("DeleteObjects", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectsInput) bool {
		return len(in.Delete.Objects) == 2
	})).Return(&s3.DeleteObjectsOutput{}, nil).Once()

	require.NoError(t, st.DeleteDir(context.Background(), "render"))
	client.AssertExpectations(t)
}

func TestS3Storage_DeleteDirEmpty(t *testing.T) {
	t.Parallel()

	st, client := newS3(t, "")
	client.On("ListObjectsV2", mock.Anything, mock.Anything).Return(&s3.ListObjectsV2Output{}, nil).Once()

	err := st.DeleteDir(context.Background(), "render")
	assert.ErrorIs(t, err, storage.ErrDirectoryNotFound)
	client.AssertNotCalled(t, "DeleteObjects", mock.Anything, mock.Anything)
}

func TestS3Storage_List(t *testing.T) {
	t.Parallel()

	st, client := newS3(t, "cache")
	client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return aws.ToString(in.Prefix) == "cache/" && aws.ToString(in.Delimiter) == "/"
	})).Return(&s3.ListObjectsV2Output{
		CommonPrefixes: []types.CommonPrefix{{Prefix: aws.String("cache/render/")}},
		Contents: []types.Object{
			{Key: aws.String("cache/token.bin"), Size: aws.Int64(12)},
		},
	}, nil).Once()

	entries, err := st.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, storage.Entry{Name: "render", Path: "render", IsDir: true}, entries[0])
	assert.Equal(t, storage.Entry{Name: "token.bin", Path: "token.bin", Size: 12}, entries[1])
}

func TestS3Storage_Exists(t *testing.T) {
	t.Parallel()

	st, client := newS3(t, "")
	client.On("HeadObject", mock.Anything, mock.MatchedBy(func(in *s3.HeadObjectInput) bool {
		return aws.ToString(in.Key) == "yes"
	})).Return(&s3.HeadObjectOutput{}, nil)
	client.On("HeadObject", mock.Anything, mock.Anything).Return(nil, &types.NotFound{})

	assert.True(t, st.Exists(context.Background(), "yes"))
	assert.False(t, st.Exists(context.Background(), "no"))
}

func TestNewS3Storage_RequiresBucket(t *testing.T) {
	t.Parallel()

	_, err := storage.NewS3Storage(context.Background(), storage.S3Config{}, storage.WithS3Client(&MockS3Client{}))
	assert.ErrorIs(t, err, storage.ErrInvalidConfig)
}

package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjectAPI struct {
	put     []*s3.PutObjectInput
	bodies  [][]byte
	deleted []string
	err     error
}

func (f *fakeObjectAPI) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(params.Body)
	f.put = append(f.put, params)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjectAPI) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deleted = append(f.deleted, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestUploadBytes(t *testing.T) {
	api := &fakeObjectAPI{}
	store := NewAwsS3WithClient(api, "frames", "ap-southeast-1")

	key, err := store.UploadBytes(context.Background(), []byte{0xff, 0xd8}, "captures/user-1", "image/jpeg", AllowImage...)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, "captures/user-1/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
	require.Len(t, api.put, 1)
	assert.Equal(t, "frames", aws.ToString(api.put[0].Bucket))
	assert.Equal(t, "image/jpeg", aws.ToString(api.put[0].ContentType))
	assert.Equal(t, []byte{0xff, 0xd8}, api.bodies[0])
}

func TestUploadBytesRejectsContentType(t *testing.T) {
	api := &fakeObjectAPI{}
	store := NewAwsS3WithClient(api, "frames", "ap-southeast-1")

	_, err := store.UploadBytes(context.Background(), []byte("%PDF"), "captures", "application/pdf", AllowImage...)
	assert.ErrorIs(t, err, ErrContentNotAllowed)
	assert.Empty(t, api.put)
}

func TestUploadBytesFailure(t *testing.T) {
	store := NewAwsS3WithClient(&fakeObjectAPI{err: errors.New("access denied")}, "frames", "us-east-1")

	_, err := store.UploadBytes(context.Background(), []byte{1}, "captures", "image/jpeg")
	assert.Error(t, err)
}

func TestPublicLinkRoundTrip(t *testing.T) {
	store := NewAwsS3WithClient(&fakeObjectAPI{}, "frames", "us-east-1")

	link := store.GetPublicLinkKey("captures/user-1/a.jpg")
	assert.Equal(t, "https://frames.s3.us-east-1.amazonaws.com/captures/user-1/a.jpg", link)
	assert.Equal(t, "captures/user-1/a.jpg", store.GetObjectKeyFromLink(link))
	assert.Equal(t, "", store.GetObjectKeyFromLink("https://example.com/a.jpg"))
}

func TestDeleteFile(t *testing.T) {
	api := &fakeObjectAPI{}
	store := NewAwsS3WithClient(api, "frames", "us-east-1")

	require.NoError(t, store.DeleteFile(context.Background(), "captures/a.jpg"))
	assert.Equal(t, []string{"captures/a.jpg"}, api.deleted)
	assert.ErrorIs(t, store.DeleteFile(context.Background(), ""), ErrObjectKeyRequired)
}

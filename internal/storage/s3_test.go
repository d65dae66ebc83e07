package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresigner struct {
	lastKey    string
	lastBucket string
	err        error
}

func (f *fakePresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*s3PresignedRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastKey = aws.ToString(params.Key)
	f.lastBucket = aws.ToString(params.Bucket)
	return &s3PresignedRequest{URL: "https://bucket.example.com/" + f.lastKey + "?X-Amz-Expires=3600"}, nil
}

type fakeGetter struct {
	objects map[string]string
	err     error
}

func (f *fakeGetter) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3AudioURLPresigns(t *testing.T) {
	p := &fakePresigner{}
	r := &S3{bucket: "transcripts", presign: p}

	url, err := r.AudioURL(context.Background(), "audio/transcripts/clip.wav")
	require.NoError(t, err)
	assert.Contains(t, url, "clip.wav")
	assert.Equal(t, "transcripts", p.lastBucket)
	assert.Equal(t, "audio/transcripts/clip.wav", p.lastKey)
}

func TestS3TextContent(t *testing.T) {
	g := &fakeGetter{objects: map[string]string{"notes.jsonl": "line1\nline2"}}
	r := &S3{bucket: "transcripts", client: g}

	content, ok, err := r.TextContent(context.Background(), "notes.jsonl")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "line1\nline2", content)
}

func TestS3TextContentMissingKey(t *testing.T) {
	r := &S3{bucket: "transcripts", client: &fakeGetter{objects: map[string]string{}}}

	content, ok, err := r.TextContent(context.Background(), "ghost.jsonl")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, content)
}

func TestS3TextContentPropagatesOtherErrors(t *testing.T) {
	r := &S3{bucket: "transcripts", client: &fakeGetter{err: errors.New("connection refused")}}

	_, _, err := r.TextContent(context.Background(), "notes.jsonl")
	require.Error(t, err)
}

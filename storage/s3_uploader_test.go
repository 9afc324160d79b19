package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicURL(t *testing.T) {
	testCases := []struct {
		name string
		base string
		key  string
		want string
	}{
		{name: "host only", base: "https://cdn.example.com", key: "results/a.json", want: "https://cdn.example.com/results/a.json"},
		{name: "trailing slash", base: "https://cdn.example.com/", key: "results/a.json", want: "https://cdn.example.com/results/a.json"},
		{name: "base path", base: "https://cdn.example.com/bucket", key: "/results/a.json", want: "https://cdn.example.com/bucket/results/a.json"},
		{name: "no base", base: "", key: "results/a.json", want: ""},
		{name: "no key", base: "https://cdn.example.com", key: "", want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, publicURL(tc.base, tc.key))
		})
	}
}

func TestNewS3UploaderValidatesConfig(t *testing.T) {
	_, err := NewS3Uploader(context.Background(), S3UploaderConfig{})
	assert.Error(t, err)

	_, err = NewS3Uploader(context.Background(), S3UploaderConfig{BucketName: "results", AccessKeyID: "id"})
	assert.Error(t, err)

	u, err := NewS3Uploader(context.Background(), S3UploaderConfig{
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "id",
		SecretAccessKey: "secret",
		BucketName:      "results",
		PublicBaseURL:   "https://cdn.example.com",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/results/x.json", u.GetPublicURL("results/x.json"))
	assert.False(t, S3UploaderConfig{}.Enabled())
}

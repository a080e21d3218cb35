package artifacts

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	key := Key("octo", "widgets", "build-backend", "da39a3ee")
	assert.Equal(t, "octo/widgets/build-backend_da39a3ee", key)
	assert.Equal(t, "octo/widgets/build-backend_da39a3ee/artifacts.zip", BlobName(key))
}

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"", "a//b", "../a", "a/./b", "a/"} {
		assert.ErrorIs(t, validateKey(key), ErrInvalidKey, key)
	}
	assert.NoError(t, validateKey("octo/widgets/job_abc"))
}

// fakeBlobs is an in-memory BlobAPI.
type fakeBlobs struct {
	containers map[string]bool
	blobs      map[string][]byte
	err        error
}

func newFakeBlobs(containers ...string) *fakeBlobs {
	f := &fakeBlobs{containers: map[string]bool{}, blobs: map[string][]byte{}}
	for _, c := range containers {
		f.containers[c] = true
	}
	return f
}

func (f *fakeBlobs) ContainerExists(_ context.Context, container string) (bool, error) {
	return f.containers[container], f.err
}

func (f *fakeBlobs) BlobExists(_ context.Context, container, blob string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.blobs[container+"/"+blob]
	return ok, nil
}

func (f *fakeBlobs) Upload(_ context.Context, container, blob string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.blobs[container+"/"+blob] = data
	return nil
}

func (f *fakeBlobs) Download(_ context.Context, container, blob string) (io.ReadCloser, error) {
	data, ok := f.blobs[container+"/"+blob]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func TestNewAzureStoreMissingContainer(t *testing.T) {
	_, err := NewAzureStore(context.Background(), newFakeBlobs("other"), "artifacts")
	assert.ErrorIs(t, err, ErrContainerNotFound)

	_, err = NewAzureStore(context.Background(), newFakeBlobs(), "")
	assert.Error(t, err)
}

func TestAzureStore(t *testing.T) {
	ctx := context.Background()
	blobs := newFakeBlobs("artifacts")
	store, err := NewAzureStore(ctx, blobs, "artifacts")
	require.NoError(t, err)

	key := Key("octo", "widgets", "build", "abc")
	ok, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Upload(ctx, key, bytes.NewReader([]byte("zip"))))
	assert.Contains(t, blobs.blobs, "artifacts/octo/widgets/build_abc/artifacts.zip")

	ok, err = store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	var buf bytes.Buffer
	require.NoError(t, store.Download(ctx, key, &buf))
	assert.Equal(t, "zip", buf.String())

	err = store.Download(ctx, Key("octo", "widgets", "build", "nope"), &buf)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAzureStoreError(t *testing.T) {
	ctx := context.Background()
	blobs := newFakeBlobs("artifacts")
	store, err := NewAzureStore(ctx, blobs, "artifacts")
	require.NoError(t, err)

	blobs.err = errors.New("forbidden")
	_, err = store.Exists(ctx, "octo/widgets/build_abc")
	assert.ErrorContains(t, err, "forbidden")
}

func TestExistence(t *testing.T) {
	ok, err := existence(nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = existence(&azcore.ResponseError{StatusCode: 404})
	require.NoError(t, err)
	assert.False(t, ok)

	denied := &azcore.ResponseError{StatusCode: 403}
	_, err = existence(denied)
	assert.Same(t, denied, err)
}

func TestDirStore(t *testing.T) {
	ctx := context.Background()
	store := &DirStore{Root: t.TempDir()}
	key := Key("octo", "widgets", "build", "abc")

	ok, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Upload(ctx, key, bytes.NewReader([]byte("zip"))))
	ok, err = store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	var buf bytes.Buffer
	require.NoError(t, store.Download(ctx, key, &buf))
	assert.Equal(t, "zip", buf.String())

	assert.ErrorIs(t, store.Download(ctx, "octo/widgets/none", &buf), ErrNotFound)
	assert.ErrorIs(t, store.Upload(ctx, "../escape", bytes.NewReader(nil)), ErrInvalidKey)
}

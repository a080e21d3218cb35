package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/charmbracelet/log"
)

// BlobAPI is the subset of the blob service the store needs.
type BlobAPI interface {
	ContainerExists(ctx context.Context, container string) (bool, error)
	BlobExists(ctx context.Context, container, blob string) (bool, error)
	Upload(ctx context.Context, container, blob string, body io.Reader) error
	Download(ctx context.Context, container, blob string) (io.ReadCloser, error)
}

type azureBlobClient struct {
	client *azblob.Client
}

// NewAzureBlobAPI connects to a storage account with the default Azure
// credential chain (environment, workload identity, managed identity, CLI).
func NewAzureBlobAPI(account string) (BlobAPI, error) {
	if account == "" {
		return nil, errors.New("storage account is required")
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("create Azure credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", account)
	opts := &azblob.ClientOptions{
		ClientOptions: policy.ClientOptions{
			Telemetry: policy.TelemetryOptions{ApplicationID: "pathfilter"},
		},
	}
	client, err := azblob.NewClient(serviceURL, cred, opts)
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}
	return &azureBlobClient{client: client}, nil
}

func (c *azureBlobClient) ContainerExists(ctx context.Context, container string) (bool, error) {
	_, err := c.client.ServiceClient().NewContainerClient(container).GetProperties(ctx, nil)
	return existence(err)
}

func (c *azureBlobClient) BlobExists(ctx context.Context, container, blob string) (bool, error) {
	_, err := c.client.ServiceClient().NewContainerClient(container).NewBlobClient(blob).GetProperties(ctx, nil)
	return existence(err)
}

func (c *azureBlobClient) Upload(ctx context.Context, container, blob string, body io.Reader) error {
	_, err := c.client.UploadStream(ctx, container, blob, body, nil)
	return err
}

func (c *azureBlobClient) Download(ctx context.Context, container, blob string) (io.ReadCloser, error) {
	resp, err := c.client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return resp.Body, nil
}

func existence(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

// AzureStore keeps artifacts in one Azure Blob Storage container.
type AzureStore struct {
	api       BlobAPI
	container string
}

// NewAzureStore returns a store over container and checks that the container
// exists.
func NewAzureStore(ctx context.Context, api BlobAPI, container string) (*AzureStore, error) {
	if container == "" {
		return nil, errors.New("storage container is required")
	}

	log.Debug("Checking artifact container", "container", container)
	ok, err := api.ContainerExists(ctx, container)
	if err != nil {
		return nil, fmt.Errorf("check container %s: %w", container, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContainerNotFound, container)
	}
	return &AzureStore{api: api, container: container}, nil
}

// Exists reports whether the archive for key is present.
func (s *AzureStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	ok, err := s.api.BlobExists(ctx, s.container, BlobName(key))
	if err != nil {
		return false, fmt.Errorf("check artifact %s: %w", key, err)
	}
	return ok, nil
}

// Upload stores body as the archive for key, replacing any existing one.
func (s *AzureStore) Upload(ctx context.Context, key string, body io.Reader) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := s.api.Upload(ctx, s.container, BlobName(key), body); err != nil {
		return fmt.Errorf("upload artifact %s: %w", key, err)
	}
	return nil
}

// Download copies the archive for key into w.
func (s *AzureStore) Download(ctx context.Context, key string, w io.Writer) error {
	if err := validateKey(key); err != nil {
		return err
	}
	body, err := s.api.Download(ctx, s.container, BlobName(key))
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("download artifact %s: %w", key, err)
	}
	defer body.Close()

	if _, err := io.Copy(w, body); err != nil {
		return fmt.Errorf("read artifact %s: %w", key, err)
	}
	return nil
}

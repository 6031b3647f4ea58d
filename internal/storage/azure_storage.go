package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/leaf-health-go/internal/catalog"
	"github.com/anime-shed/leaf-health-go/internal/logger"
)

// AzureArtifactSource downloads artifacts from a blob container. Blob names
// are the artifact file names.
type AzureArtifactSource struct {
	client    *azblob.Client
	container string
}

func NewAzureArtifactSource(accountName, accountKey, container string) (*AzureArtifactSource, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}

	return &AzureArtifactSource{client: client, container: container}, nil
}

func (s *AzureArtifactSource) Name() string { return "azure" }

func (s *AzureArtifactSource) FetchArtifact(ctx context.Context, desc catalog.Descriptor) error {
	blobName := artifactName(desc)
	log := logger.WithFields(logrus.Fields{
		"model_id":  desc.ID,
		"container": s.container,
		"blob":      blobName,
	})
	log.Info("Downloading model artifact from Azure")

	err := writeArtifact(desc.ArtifactPath, func(f *os.File) error {
		_, err := s.client.DownloadFile(ctx, s.container, blobName, f, nil)
		return err
	})
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return fmt.Errorf("%w: %s/%s", ErrArtifactNotFound, s.container, blobName)
		}
		return fmt.Errorf("download failed: %w", err)
	}

	log.Info("Model artifact downloaded")
	return nil
}

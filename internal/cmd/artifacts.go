package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/justrnr500/pathfilter/internal/artifacts"
)

var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "Upload and download job artifacts",
	Long: `Move job artifacts in and out of the artifact store.

Artifacts are zip archives stored as <key>/artifacts.zip. Keys normally come
from the artifact_key field of 'pathfilter jobs' output.`,
}

var artifactsUploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Zip paths and store them under a key",
	Long: `Zip the given paths (files, directories or ** globs, relative to the
repository root) and upload the archive under --key, replacing any existing
artifact.

Examples:
  pathfilter artifacts upload --key octo/widgets/build_3f2a --path dist --path 'reports/**/*.xml'`,
	RunE: runArtifactsUpload,
}

var artifactsDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Fetch an artifact and extract it",
	Long: `Download the archive stored under --key and extract it into --dest.

Examples:
  pathfilter artifacts download --key octo/widgets/build_3f2a --dest .`,
	RunE: runArtifactsDownload,
}

var (
	artifactKey   string
	artifactPaths []string
	artifactDest  string
)

func init() {
	rootCmd.AddCommand(artifactsCmd)
	artifactsCmd.AddCommand(artifactsUploadCmd, artifactsDownloadCmd)

	for _, c := range []*cobra.Command{artifactsUploadCmd, artifactsDownloadCmd} {
		addArtifactFlags(c)
		c.Flags().StringVarP(&artifactKey, "key", "k", "", "Artifact key")
		c.MarkFlagRequired("key")
	}
	artifactsUploadCmd.Flags().StringSliceVarP(&artifactPaths, "path", "p", nil, "Path or glob to include (repeatable)")
	artifactsUploadCmd.MarkFlagRequired("path")
	artifactsDownloadCmd.Flags().StringVarP(&artifactDest, "dest", "d", ".", "Directory to extract into, relative to the repository root")
}

func runArtifactsUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openArtifactStore(ctx, cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", "pathfilter-artifact-*.zip")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	n, err := artifacts.Pack(tmp, root, artifactPaths)
	if err != nil {
		return err
	}
	if _, err := tmp.Seek(0, 0); err != nil {
		return fmt.Errorf("rewind archive: %w", err)
	}

	log.Info("Uploading artifact", "key", artifactKey, "files", n)
	if err := store.Upload(ctx, artifactKey, tmp); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Uploaded %s (%d files)\n", artifacts.BlobName(artifactKey), n)
	return nil
}

func runArtifactsDownload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openArtifactStore(ctx, cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", "pathfilter-artifact-*.zip")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	log.Info("Downloading artifact", "key", artifactKey)
	if err := store.Download(ctx, artifactKey, tmp); err != nil {
		return err
	}
	info, err := tmp.Stat()
	if err != nil {
		return fmt.Errorf("stat archive: %w", err)
	}

	dest := artifactDest
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(root, dest)
	}
	n, err := artifacts.Unpack(tmp, info.Size(), dest)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Extracted %d files into %s\n", n, dest)
	return nil
}

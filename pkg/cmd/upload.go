package cmd

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/cockroachdb/errors"
)

// tryUpload copies the output directory to cfg.uploadURL, if set,
// using the cloud CLI matching the URL scheme.
func (ap *app) tryUpload(ctx context.Context) error {
	cfg := ap.cfg
	if cfg.uploadURL == "" {
		return nil
	}
	args, err := uploadCommand(cfg.uploadURL, cfg.dataDir)
	if err != nil {
		return err
	}

	redirect := " >" + filepath.Join(cfg.dataDir, "upload.log") + " 2>&1"
	cmd := exec.CommandContext(ctx, cfg.shellPath, "-c", strings.Join(args, " ")+redirect)
	ap.narrate(I, "⬆️", "uploading with: %s", strings.Join(cmd.Args, " "))
	res, err := cmd.CombinedOutput()
	log.Infof(ctx, "upload:\n%s\n-- %v / %s", string(res), err, cmd.ProcessState)
	if err != nil {
		ap.narrate(E, "😿", "upload error, check upload.log")
	}
	return err
}

func uploadCommand(url, dataDir string) ([]string, error) {
	var args []string
	switch {
	case strings.HasPrefix(url, "s3:"):
		args = []string{"aws", "s3", "cp", "--recursive"}
	case strings.HasPrefix(url, "gs:"):
		args = []string{"gsutil", "-m", "cp", "-r"}
	case strings.HasPrefix(url, "scp://"):
		args = []string{"scp", "-r"}
	default:
		return nil, errors.WithHint(errors.Newf("unsupported URL scheme: %q", url),
			"supported schemes: s3:, gs:, scp://")
	}
	target := url + "/" + filepath.Base(dataDir)
	return append(args, dataDir, target), nil
}

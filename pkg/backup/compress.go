package backup

import (
	"fmt"
	"io"
	"os"

	"backupmon/pkg/log"

	"github.com/klauspost/compress/gzip"
)

const gzipSuffix = ".gz"

// CompressFile gzips path into path.gz and removes path. On failure the
// original is left in place and no partial archive remains.
func CompressFile(path string) (string, error) {
	dest := path + gzipSuffix

	src, err := os.Open(path) // #nosec G304 - path is a dump this package created
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()

	if err := writeGzip(dest, src); err != nil {
		if removeErr := os.Remove(dest); removeErr != nil && !os.IsNotExist(removeErr) {
			log.Warn().Err(removeErr).Str("file", dest).Msg("Failed to remove partial archive")
		}
		return "", err
	}

	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("remove %s: %w", path, err)
	}

	log.Debug().Str("file", dest).Msg("Compressed dump")
	return dest, nil
}

func writeGzip(dest string, src io.Reader) error {
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}

	zw := gzip.NewWriter(out)
	if _, err := io.Copy(zw, src); err != nil {
		_ = zw.Close()
		_ = out.Close()
		return fmt.Errorf("compress %s: %w", dest, err)
	}
	if err := zw.Close(); err != nil {
		_ = out.Close()
		return fmt.Errorf("compress %s: %w", dest, err)
	}
	return out.Close()
}

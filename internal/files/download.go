package files

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/tonimelisma/msservices/internal/apierr"
	"github.com/tonimelisma/msservices/pkg/quickxorhash"
)

// partialSuffix marks a download still being written.
const partialSuffix = ".partial"

// DownloadByID downloads the file with itemID to dir/<itemID>/<name> and
// returns the local path. Missing directories are created. When the file
// already exists it is returned without downloading again.
func (s *Service) DownloadByID(ctx context.Context, itemID, dir string) (string, error) {
	if itemID == "" {
		return "", fmt.Errorf("%w: item id", ErrEmptyArgument)
	}

	if dir == "" {
		dir = s.opts.ScratchDir
	}

	s.logger.Info("downloading item",
		slog.String("drive_id", s.opts.DriveID),
		slog.String("item_id", itemID),
	)

	c, err := s.connect(ctx)
	if err != nil {
		return "", err
	}

	item, err := s.fetchItem(ctx, c, s.itemIDPath(itemID))
	if err != nil {
		return "", err
	}

	if item.IsFolder {
		return "", apierr.New(apierr.ErrUpstream, 0, fmt.Sprintf("item %s is a folder", itemID), nil)
	}

	name := filepath.Base(filepath.Clean("/" + item.Name))
	dest := filepath.Join(dir, filepath.Base(itemID), name)

	if _, statErr := os.Stat(dest); statErr == nil {
		s.logger.Debug("download already present", slog.String("path", dest))

		return dest, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o700); err != nil {
		return "", apierr.New(apierr.ErrLocalIO, 0, "creating download directory", err)
	}

	var resp *http.Response
	if item.DownloadURL != "" {
		resp, err = c.SendRaw(ctx, http.MethodGet, item.DownloadURL, nil, -1, nil)
	} else {
		resp, err = c.Do(ctx, http.MethodGet, s.itemIDPath(itemID)+"/content", nil, nil)
	}

	if err != nil {
		return "", fmt.Errorf("files: downloading %s: %w", itemID, err)
	}
	defer resp.Body.Close()

	if err := s.writeVerified(resp.Body, dest, item.QuickXorHash); err != nil {
		return "", err
	}

	s.logger.Debug("download complete",
		slog.String("item_id", itemID),
		slog.Int64("size", item.Size),
	)

	return dest, nil
}

// writeVerified streams body to dest via a partial file, checks the
// QuickXorHash when the server reported one, and renames into place.
func (s *Service) writeVerified(body io.Reader, dest, remoteHash string) error {
	partial := dest + partialSuffix

	f, err := os.Create(partial)
	if err != nil {
		return apierr.New(apierr.ErrLocalIO, 0, "creating download file", err)
	}

	h := quickxorhash.New()

	_, copyErr := io.Copy(io.MultiWriter(f, h), body)
	closeErr := f.Close()

	if copyErr != nil || closeErr != nil {
		os.Remove(partial)

		if copyErr != nil {
			return apierr.New(apierr.ErrUpstream, 0, "streaming download content", copyErr)
		}

		return apierr.New(apierr.ErrLocalIO, 0, "writing download file", closeErr)
	}

	if remoteHash != "" {
		if local := base64.StdEncoding.EncodeToString(h.Sum(nil)); local != remoteHash {
			os.Remove(partial)

			return apierr.New(apierr.ErrUpstream, 0,
				fmt.Sprintf("content hash mismatch: local %s, remote %s", local, remoteHash), nil)
		}
	}

	if err := os.Rename(partial, dest); err != nil {
		os.Remove(partial)

		return apierr.New(apierr.ErrLocalIO, 0, "moving download into place", err)
	}

	return nil
}

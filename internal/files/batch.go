package files

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// UploadRequest is one local file for UploadBatch.
type UploadRequest struct {
	LocalPath string
	PathParts []string
	FileName  string // empty uses the local base name
	Policy    ConflictPolicy
}

// UploadBatch uploads independent files with at most parallelism in
// flight. Each file connects with its own token. Outcomes are merged in
// request order regardless of completion order.
func (s *Service) UploadBatch(ctx context.Context, reqs []UploadRequest, parallelism int) UploadOutcome {
	if parallelism < 1 {
		parallelism = 1
	}

	s.logger.Info("uploading batch",
		slog.Int("files", len(reqs)),
		slog.Int("parallelism", parallelism),
	)

	results := make([]UploadOutcome, len(reqs))

	var g errgroup.Group
	g.SetLimit(parallelism)

	for i := range reqs {
		g.Go(func() error {
			r := reqs[i]
			results[i] = s.UploadFile(ctx, r.LocalPath, r.PathParts, r.FileName, r.Policy)

			return nil
		})
	}

	// Workers never return errors; failures live in the outcomes.
	_ = g.Wait()

	var out UploadOutcome
	for _, r := range results {
		out = out.Merge(r)
	}

	s.logger.Info("batch complete",
		slog.Int("uploaded", len(out.Files)),
		slog.Int("failed", len(out.Errors)),
	)

	return out
}

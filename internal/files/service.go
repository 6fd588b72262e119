package files

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/tonimelisma/msservices/internal/graph"
)

// defaultFragmentTimeout bounds one upload fragment when Options leaves it unset.
const defaultFragmentTimeout = 60 * time.Second

// Options scope a Service to one drive.
type Options struct {
	DriveID         string
	RootBasePath    string // prefixed to every path-based address
	ScratchDir      string // staging area for base64 uploads and downloads
	FragmentTimeout time.Duration
}

// Service exposes drive operations. It keeps no token or client between
// calls: every operation connects with a freshly acquired token.
type Service struct {
	opts       Options
	tokens     graph.TokenProvider
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Service. A nil logger uses slog.Default().
func New(
	opts Options, tokens graph.TokenProvider, baseURL string, httpClient *http.Client, logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	if opts.FragmentTimeout <= 0 {
		opts.FragmentTimeout = defaultFragmentTimeout
	}

	if opts.ScratchDir == "" {
		opts.ScratchDir = filepath.Join(os.TempDir(), "msservices")
	}

	return &Service{
		opts:       opts,
		tokens:     tokens,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (s *Service) connect(ctx context.Context) (*graph.Client, error) {
	c, err := graph.Connect(ctx, s.baseURL, s.httpClient, s.tokens, s.logger)
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}

	return c, nil
}

// itemPath addresses a drive item by path below RootBasePath. No path
// segments addresses the base folder itself (or the drive root).
func (s *Service) itemPath(parts ...string) string {
	segments := joinSegments(append([]string{s.opts.RootBasePath}, parts...)...)
	if len(segments) == 0 {
		return fmt.Sprintf("/drives/%s/root", url.PathEscape(s.opts.DriveID))
	}

	return fmt.Sprintf("/drives/%s/root:/%s:", url.PathEscape(s.opts.DriveID), encodePathSegments(segments))
}

// itemIDPath addresses a drive item by ID.
func (s *Service) itemIDPath(itemID string) string {
	return fmt.Sprintf("/drives/%s/items/%s", url.PathEscape(s.opts.DriveID), url.PathEscape(itemID))
}

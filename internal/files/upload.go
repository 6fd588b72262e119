package files

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/tonimelisma/msservices/internal/apierr"
	"github.com/tonimelisma/msservices/internal/graph"
	"github.com/tonimelisma/msservices/pkg/quickxorhash"
)

// SimpleUploadMaxSize is the largest payload sent in a single request.
// Payloads of exactly this size still take the single-shot path.
const SimpleUploadMaxSize = 4 * 1024 * 1024

// FragmentSize is the byte length of every upload session fragment except
// possibly the last.
const FragmentSize = 4 * 1024 * 1024

// ConflictPolicy decides what happens when the target name already exists.
type ConflictPolicy string

// Conflict policies understood by the Graph API.
const (
	ConflictFail    ConflictPolicy = "fail"
	ConflictReplace ConflictPolicy = "replace"
	ConflictRename  ConflictPolicy = "rename"
)

// ParseConflictPolicy validates a policy name.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch p := ConflictPolicy(strings.ToLower(s)); p {
	case ConflictFail, ConflictReplace, ConflictRename:
		return p, nil
	default:
		return "", apierr.Configuration(fmt.Sprintf("conflict policy must be fail, replace or rename, got %q", s))
	}
}

// Fragment is one byte range of a chunked upload. End is inclusive.
type Fragment struct {
	Index int
	Start int64
	End   int64
}

// Length returns the number of bytes in the fragment.
func (f Fragment) Length() int64 {
	return f.End - f.Start + 1
}

// ContentRange formats the Content-Range header for a file of total bytes.
func (f Fragment) ContentRange(total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", f.Start, f.End, total)
}

// PlanFragments splits size bytes into contiguous FragmentSize ranges in
// ascending order. The last fragment may be short.
func PlanFragments(size int64) []Fragment {
	if size <= 0 {
		return nil
	}

	n := (size + FragmentSize - 1) / FragmentSize
	frags := make([]Fragment, 0, n)

	for i := range n {
		start := i * FragmentSize
		end := min(start+FragmentSize, size) - 1
		frags = append(frags, Fragment{Index: int(i), Start: start, End: end})
	}

	return frags
}

// UploadSession tracks a server-side upload session. UploadURL is
// pre-authenticated and must never be logged.
type UploadSession struct {
	UploadURL      string
	FileSize       int64
	FragmentSize   int64
	NextOffset     int64
	TotalFragments int
}

func newUploadSession(uploadURL string, size int64) *UploadSession {
	return &UploadSession{
		UploadURL:      uploadURL,
		FileSize:       size,
		FragmentSize:   FragmentSize,
		TotalFragments: len(PlanFragments(size)),
	}
}

// UploadError is one failed file in an UploadOutcome.
type UploadError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// UploadOutcome collects the items uploaded and the per-file failures.
type UploadOutcome struct {
	Files  []Item        `json:"files"`
	Errors []UploadError `json:"errors"`
}

// Merge returns o followed by other, preserving the order of each side.
func (o UploadOutcome) Merge(other UploadOutcome) UploadOutcome {
	return UploadOutcome{
		Files:  append(append([]Item(nil), o.Files...), other.Files...),
		Errors: append(append([]UploadError(nil), o.Errors...), other.Errors...),
	}
}

// failed builds a single-error outcome for fileName from err.
func failed(fileName string, err error) UploadOutcome {
	code := apierr.StatusCode(err)

	var prefix string

	switch {
	case errors.Is(err, apierr.ErrConfiguration), errors.Is(err, apierr.ErrAuth):
		prefix = "Invalid configuration: "
		if code == 0 {
			code = apierr.CodeConfiguration
		}
	case errors.Is(err, apierr.ErrLocalIO):
		if code == 0 {
			code = apierr.CodeLocalIO
		}
	case code == 0:
		code = apierr.CodeUpstream
	}

	return UploadOutcome{Errors: []UploadError{{
		Code:    code,
		Message: fmt.Sprintf("%s did not upload. %s%v", fileName, prefix, err),
	}}}
}

type uploadSessionRequest struct {
	Item uploadSessionItem `json:"item"`
}

type uploadSessionItem struct {
	ConflictBehavior string         `json:"@microsoft.graph.conflictBehavior"` //nolint:tagliatelle // Graph API annotation key
	Description      string         `json:"description"`
	FileSystemInfo   fileSystemInfo `json:"fileSystemInfo"`
	Name             string         `json:"name"`
}

// fileSystemInfo is sent as a typed placeholder; the server fills in times.
type fileSystemInfo struct {
	ODataType string `json:"@odata.type"` //nolint:tagliatelle // OData annotation key
}

type uploadSessionResponse struct {
	UploadURL string `json:"uploadUrl"`
}

// Upload sends size bytes from src to fileName in the folder at pathParts.
// Payloads up to SimpleUploadMaxSize take one request; larger ones go
// through an upload session, one FragmentSize range at a time. Failures are
// reported in the outcome, never returned.
func (s *Service) Upload(
	ctx context.Context, src io.ReaderAt, size int64, pathParts []string, fileName string, policy ConflictPolicy,
) UploadOutcome {
	names := joinSegments(fileName)
	if len(names) != 1 {
		return failed(fileName, apierr.Configuration("file name must be a single path segment"))
	}

	name := names[0]

	if size < 0 {
		return failed(name, apierr.Configuration(fmt.Sprintf("upload size must not be negative, got %d", size)))
	}
	target := append(append([]string(nil), pathParts...), name)

	s.logger.Info("uploading file",
		slog.String("drive_id", s.opts.DriveID),
		slog.String("file_name", name),
		slog.Int64("size", size),
		slog.String("conflict", string(policy)),
	)

	c, err := s.connect(ctx)
	if err != nil {
		return failed(name, err)
	}

	var item *Item
	if size <= SimpleUploadMaxSize {
		item, err = s.simpleUpload(ctx, c, src, size, target, policy)
	} else {
		item, err = s.chunkedUpload(ctx, c, src, size, target, name, policy)
	}

	if err != nil {
		s.logger.Error("upload aborted",
			slog.String("file_name", name),
			slog.String("error", err.Error()),
		)

		return failed(name, err)
	}

	if err := verifyHash(src, size, item.QuickXorHash); err != nil {
		return failed(name, err)
	}

	return UploadOutcome{Files: []Item{*item}}
}

// simpleUpload PUTs the whole payload with the conflict policy in the
// request target.
func (s *Service) simpleUpload(
	ctx context.Context, c *graph.Client, src io.ReaderAt, size int64, target []string, policy ConflictPolicy,
) (*Item, error) {
	data := make([]byte, size)
	if _, err := src.ReadAt(data, 0); err != nil && !errors.Is(err, io.EOF) {
		return nil, apierr.New(apierr.ErrLocalIO, 0, "reading upload source", err)
	}

	headers := http.Header{}
	headers.Set("Content-Type", "application/octet-stream")

	apiPath := s.itemPath(target...) + "/content?@microsoft.graph.conflictBehavior=" + string(policy)

	resp, err := c.Do(ctx, http.MethodPut, apiPath, bytes.NewReader(data), headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var dir driveItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&dir); err != nil {
		return nil, apierr.New(apierr.ErrUpstream, resp.StatusCode, "decoding upload response", err)
	}

	item := dir.toItem(s.logger)

	return &item, nil
}

// chunkedUpload negotiates a session, sends every fragment in order and
// then fetches the finished item. Cancellation is honored between
// fragments; a fragment in flight runs to completion under its own timeout.
// The item in the final fragment's response is authoritative: under the
// rename policy the destination path may still address an older file.
func (s *Service) chunkedUpload(
	ctx context.Context, c *graph.Client, src io.ReaderAt, size int64,
	target []string, name string, policy ConflictPolicy,
) (*Item, error) {
	req := uploadSessionRequest{Item: uploadSessionItem{
		ConflictBehavior: string(policy),
		FileSystemInfo:   fileSystemInfo{ODataType: "microsoft.graph.fileSystemInfo"},
		Name:             name,
	}}

	var sr uploadSessionResponse
	if err := c.DoJSON(ctx, http.MethodPost, s.itemPath(target...)+"/createUploadSession", req, &sr); err != nil {
		return nil, fmt.Errorf("creating upload session: %w", err)
	}

	if sr.UploadURL == "" {
		return nil, apierr.New(apierr.ErrUpstream, 0, "upload session has no upload URL", nil)
	}

	session := newUploadSession(sr.UploadURL, size)

	var completed *driveItemResponse

	for _, frag := range PlanFragments(size) {
		if err := ctx.Err(); err != nil {
			return nil, apierr.New(apierr.ErrUpstream, 0,
				fmt.Sprintf("canceled before fragment %d of %d", frag.Index+1, session.TotalFragments), err)
		}

		done, err := s.sendFragment(ctx, c, session, src, frag)
		if err != nil {
			return nil, err
		}

		session.NextOffset = frag.End + 1

		if (done != nil) != (frag.Index == session.TotalFragments-1) {
			return nil, apierr.New(apierr.ErrUpstream, 0,
				fmt.Sprintf("session completion out of step at fragment %d of %d", frag.Index+1, session.TotalFragments), nil)
		}

		completed = done
	}

	var dir driveItemResponse
	if err := c.DoJSON(ctx, http.MethodGet, s.itemPath(target...), nil, &dir); err != nil {
		if completed.ID == "" {
			return nil, fmt.Errorf("fetching uploaded item: %w", err)
		}

		s.logger.Warn("fetching uploaded item failed, using session result",
			slog.String("item_id", completed.ID),
			slog.String("error", err.Error()),
		)

		dir = *completed
	}

	if completed.ID != "" && dir.ID != completed.ID {
		s.logger.Info("upload stored under a different item than the destination path",
			slog.String("item_id", completed.ID),
			slog.String("name", completed.Name),
		)

		dir = *completed
	}

	item := dir.toItem(s.logger)

	return &item, nil
}

// sendFragment PUTs one range to the session URL. When the server reports
// the upload complete (200/201 rather than 202) it returns the finished
// item, with an empty ID if the body did not describe one.
func (s *Service) sendFragment(
	ctx context.Context, c *graph.Client, session *UploadSession, src io.ReaderAt, frag Fragment,
) (*driveItemResponse, error) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.FragmentTimeout)
	defer cancel()

	headers := http.Header{}
	headers.Set("Content-Type", "application/octet-stream")
	headers.Set("Content-Range", frag.ContentRange(session.FileSize))

	s.logger.Debug("sending fragment",
		slog.Int("fragment", frag.Index+1),
		slog.Int("fragments", session.TotalFragments),
		slog.Int64("offset", frag.Start),
		slog.Int64("length", frag.Length()),
	)

	body := io.NewSectionReader(src, frag.Start, frag.Length())

	resp, err := c.SendRaw(fctx, http.MethodPut, session.UploadURL, body, frag.Length(), headers)
	if err != nil {
		return nil, fmt.Errorf("fragment %d of %d: %w", frag.Index+1, session.TotalFragments, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		_, _ = io.Copy(io.Discard, resp.Body)

		return nil, nil //nolint:nilnil // 202: more ranges expected, no item yet
	}

	var done driveItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&done); err != nil {
		s.logger.Warn("completed upload returned no item", slog.String("error", err.Error()))

		return &driveItemResponse{}, nil
	}

	return &done, nil
}

// verifyHash compares the local QuickXorHash of src with the server's.
// A missing server hash is not checked.
func verifyHash(src io.ReaderAt, size int64, remote string) error {
	if remote == "" {
		return nil
	}

	local, err := quickxorhash.Base64(io.NewSectionReader(src, 0, size))
	if err != nil {
		return apierr.New(apierr.ErrLocalIO, 0, "hashing upload source", err)
	}

	if local != remote {
		return apierr.New(apierr.ErrUpstream, 0,
			fmt.Sprintf("content hash mismatch: local %s, remote %s", local, remote), nil)
	}

	return nil
}

// UploadFile uploads a local file. An empty fileName uses the local base name.
func (s *Service) UploadFile(
	ctx context.Context, localPath string, pathParts []string, fileName string, policy ConflictPolicy,
) UploadOutcome {
	if fileName == "" {
		fileName = filepath.Base(localPath)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return failed(fileName, apierr.New(apierr.ErrLocalIO, 0, "opening local file", err))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return failed(fileName, apierr.New(apierr.ErrLocalIO, 0, "reading local file info", err))
	}

	if info.IsDir() {
		return failed(fileName, apierr.New(apierr.ErrLocalIO, 0, localPath+" is a directory", nil))
	}

	return s.Upload(ctx, f, info.Size(), pathParts, fileName, policy)
}

// UploadBase64 decodes a base64 payload into a scratch file and uploads it.
// The scratch file is removed before returning.
func (s *Service) UploadBase64(
	ctx context.Context, encoded string, pathParts []string, fileName string, policy ConflictPolicy,
) UploadOutcome {
	scratch, err := s.stageBase64(encoded)
	if err != nil {
		return failed(fileName, err)
	}

	defer func() {
		if rmErr := os.Remove(scratch); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			s.logger.Warn("removing scratch file", slog.String("error", rmErr.Error()))
		}
	}()

	return s.UploadFile(ctx, scratch, pathParts, fileName, policy)
}

// stageBase64 writes the decoded payload to a new file in the scratch dir.
func (s *Service) stageBase64(encoded string) (string, error) {
	if err := os.MkdirAll(s.opts.ScratchDir, 0o700); err != nil {
		return "", apierr.New(apierr.ErrLocalIO, 0, "could not stage to temporary storage", err)
	}

	f, err := os.CreateTemp(s.opts.ScratchDir, "upload-*")
	if err != nil {
		return "", apierr.New(apierr.ErrLocalIO, 0, "could not stage to temporary storage", err)
	}

	dec := base64.NewDecoder(base64.StdEncoding, strings.NewReader(strings.TrimSpace(encoded)))

	_, copyErr := io.Copy(f, dec)
	closeErr := f.Close()

	if copyErr != nil || closeErr != nil {
		os.Remove(f.Name())

		var corrupt base64.CorruptInputError
		if errors.As(copyErr, &corrupt) {
			return "", apierr.New(apierr.ErrConfiguration, 0, "payload is not valid base64", copyErr)
		}

		return "", apierr.New(apierr.ErrLocalIO, 0, "could not stage to temporary storage", errors.Join(copyErr, closeErr))
	}

	return f.Name(), nil
}

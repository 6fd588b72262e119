// Package files manages drive items in one OneDrive or SharePoint drive:
// item operations, the recursive tree walker, chunked uploads and
// downloads into a scratch directory.
package files

import (
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// ChildCountUnknown indicates the child count was not present in the API response.
const ChildCountUnknown = -1

// Timestamp validation bounds. Timestamps outside this range are dropped
// with a warning.
const (
	minValidYear = 1970
	maxValidYear = 2100
)

// Item is a drive item normalized from the Graph API response.
type Item struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	DriveID      string    `json:"driveId,omitempty"`
	ParentID     string    `json:"parentId,omitempty"`
	Size         int64     `json:"size"`
	ETag         string    `json:"eTag,omitempty"`
	IsFolder     bool      `json:"isFolder"`
	MimeType     string    `json:"mimeType,omitempty"`
	QuickXorHash string    `json:"quickXorHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitzero"`
	ModifiedAt   time.Time `json:"modifiedAt,omitzero"`
	ChildCount   int       `json:"childCount"`
	WebURL       string    `json:"webUrl,omitempty"`
	DownloadURL  string    `json:"-"` // pre-authenticated; never logged or printed
}

// driveItemResponse mirrors the Graph API driveItem JSON.
type driveItemResponse struct {
	ID                   string           `json:"id"`
	Name                 string           `json:"name"`
	Size                 int64            `json:"size"`
	ETag                 string           `json:"eTag"`
	CreatedDateTime      string           `json:"createdDateTime"`
	LastModifiedDateTime string           `json:"lastModifiedDateTime"`
	WebURL               string           `json:"webUrl"`
	ParentReference      *parentRef       `json:"parentReference"`
	File                 *fileFacet       `json:"file"`
	Folder               *folderFacet     `json:"folder"`
	Package              *json.RawMessage `json:"package"`
	DownloadURL          string           `json:"@microsoft.graph.downloadUrl"` //nolint:tagliatelle // Graph API annotation key
}

type parentRef struct {
	ID      string `json:"id"`
	DriveID string `json:"driveId"`
}

type fileFacet struct {
	MimeType string     `json:"mimeType"`
	Hashes   *hashFacet `json:"hashes"`
}

type hashFacet struct {
	QuickXorHash string `json:"quickXorHash"`
}

type folderFacet struct {
	ChildCount int `json:"childCount"`
}

// isContainer reports whether the item can hold children. OneNote packages
// are folders on the server but are not walked.
func (d *driveItemResponse) isContainer() bool {
	return d.Folder != nil && d.Package == nil
}

// toItem normalizes a Graph API driveItem response into an Item.
func (d *driveItemResponse) toItem(logger *slog.Logger) Item {
	item := Item{
		ID:          d.ID,
		Name:        d.Name,
		Size:        d.Size,
		ETag:        d.ETag,
		IsFolder:    d.isContainer(),
		ChildCount:  ChildCountUnknown,
		WebURL:      d.WebURL,
		DownloadURL: d.DownloadURL,
	}

	// Graph returns drive IDs with inconsistent casing across endpoints.
	if d.ParentReference != nil {
		item.DriveID = strings.ToLower(d.ParentReference.DriveID)
		item.ParentID = d.ParentReference.ID
	}

	if d.Folder != nil {
		item.ChildCount = d.Folder.ChildCount
	}

	if d.File != nil {
		item.MimeType = d.File.MimeType

		if d.File.Hashes != nil {
			item.QuickXorHash = d.File.Hashes.QuickXorHash
		}
	}

	item.CreatedAt = parseTimestamp(d.CreatedDateTime, "createdDateTime", d.ID, logger)
	item.ModifiedAt = parseTimestamp(d.LastModifiedDateTime, "lastModifiedDateTime", d.ID, logger)

	return item
}

// parseTimestamp parses an RFC3339 timestamp. Missing, invalid or
// out-of-range values yield the zero time.
func parseTimestamp(raw, field, itemID string, logger *slog.Logger) time.Time {
	if raw == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		logger.Warn("invalid timestamp",
			slog.String("field", field),
			slog.String("item_id", itemID),
			slog.String("raw", raw),
			slog.String("error", err.Error()),
		)

		return time.Time{}
	}

	if t.Year() < minValidYear || t.Year() > maxValidYear {
		logger.Warn("timestamp out of valid range",
			slog.String("field", field),
			slog.String("item_id", itemID),
			slog.String("raw", raw),
		)

		return time.Time{}
	}

	return t
}

// joinSegments cleans, NFC-normalizes and joins path segments. Each
// element may itself contain slashes; empty segments are dropped.
func joinSegments(parts ...string) []string {
	var out []string

	for _, p := range parts {
		for _, seg := range strings.Split(p, "/") {
			seg = strings.TrimSpace(seg)
			if seg == "" {
				continue
			}

			out = append(out, norm.NFC.String(seg))
		}
	}

	return out
}

// encodePathSegments URL-encodes each segment so characters like #, ?, %
// and spaces are safe inside a Graph API URL.
func encodePathSegments(segments []string) string {
	encoded := make([]string, len(segments))
	for i, seg := range segments {
		encoded[i] = url.PathEscape(seg)
	}

	return strings.Join(encoded, "/")
}

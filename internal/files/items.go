package files

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tonimelisma/msservices/internal/apierr"
	"github.com/tonimelisma/msservices/internal/graph"
)

type createFolderRequest struct {
	Name             string      `json:"name"`
	Folder           folderFacet `json:"folder"`
	ConflictBehavior string      `json:"@microsoft.graph.conflictBehavior"` //nolint:tagliatelle // Graph API annotation key
}

type updateItemRequest struct {
	ParentReference *moveParentRef `json:"parentReference,omitempty"`
	Name            string         `json:"name,omitempty"`
}

type moveParentRef struct {
	ID string `json:"id"`
}

// ErrEmptyArgument is returned when a required identifier or name is empty.
var ErrEmptyArgument = errors.New("files: empty argument")

// Get fetches the item at pathParts below the base folder.
func (s *Service) Get(ctx context.Context, pathParts ...string) (*Item, error) {
	s.logger.Info("getting item", slog.String("drive_id", s.opts.DriveID))

	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	return s.fetchItem(ctx, c, s.itemPath(pathParts...))
}

// GetByID fetches an item by its ID.
func (s *Service) GetByID(ctx context.Context, itemID string) (*Item, error) {
	if itemID == "" {
		return nil, fmt.Errorf("%w: item id", ErrEmptyArgument)
	}

	s.logger.Info("getting item",
		slog.String("drive_id", s.opts.DriveID),
		slog.String("item_id", itemID),
	)

	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	return s.fetchItem(ctx, c, s.itemIDPath(itemID))
}

// fetchItem fetches and normalizes a single item. Shared by the path- and
// ID-based entry points.
func (s *Service) fetchItem(ctx context.Context, c *graph.Client, apiPath string) (*Item, error) {
	var dir driveItemResponse
	if err := c.DoJSON(ctx, http.MethodGet, apiPath, nil, &dir); err != nil {
		return nil, fmt.Errorf("files: getting item: %w", err)
	}

	item := dir.toItem(s.logger)

	return &item, nil
}

// Move reparents an item.
func (s *Service) Move(ctx context.Context, itemID, newParentID string) (*Item, error) {
	if itemID == "" || newParentID == "" {
		return nil, fmt.Errorf("%w: item id and parent id", ErrEmptyArgument)
	}

	s.logger.Info("moving item",
		slog.String("drive_id", s.opts.DriveID),
		slog.String("item_id", itemID),
		slog.String("new_parent_id", newParentID),
	)

	return s.updateItem(ctx, itemID, updateItemRequest{ParentReference: &moveParentRef{ID: newParentID}})
}

// Rename changes an item's name in place.
func (s *Service) Rename(ctx context.Context, itemID, newName string) (*Item, error) {
	names := joinSegments(newName)
	if itemID == "" || len(names) != 1 {
		return nil, fmt.Errorf("%w: item id and a single-segment name", ErrEmptyArgument)
	}

	s.logger.Info("renaming item",
		slog.String("drive_id", s.opts.DriveID),
		slog.String("item_id", itemID),
		slog.String("new_name", names[0]),
	)

	return s.updateItem(ctx, itemID, updateItemRequest{Name: names[0]})
}

func (s *Service) updateItem(ctx context.Context, itemID string, req updateItemRequest) (*Item, error) {
	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	var dir driveItemResponse
	if err := c.DoJSON(ctx, http.MethodPatch, s.itemIDPath(itemID), req, &dir); err != nil {
		return nil, fmt.Errorf("files: updating item %s: %w", itemID, err)
	}

	item := dir.toItem(s.logger)

	return &item, nil
}

// Delete removes an item (to the drive's recycle bin).
func (s *Service) Delete(ctx context.Context, itemID string) error {
	if itemID == "" {
		return fmt.Errorf("%w: item id", ErrEmptyArgument)
	}

	s.logger.Info("deleting item",
		slog.String("drive_id", s.opts.DriveID),
		slog.String("item_id", itemID),
	)

	c, err := s.connect(ctx)
	if err != nil {
		return err
	}

	if err := c.DoJSON(ctx, http.MethodDelete, s.itemIDPath(itemID), nil, nil); err != nil {
		return fmt.Errorf("files: deleting item %s: %w", itemID, err)
	}

	return nil
}

// CreateFolder creates name under basePathParts. An existing item with the
// same name is a conflict error.
func (s *Service) CreateFolder(ctx context.Context, name string, basePathParts ...string) (*Item, error) {
	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	return s.createFolder(ctx, c, name, basePathParts)
}

func (s *Service) createFolder(ctx context.Context, c *graph.Client, name string, parent []string) (*Item, error) {
	names := joinSegments(name)
	if len(names) != 1 {
		return nil, fmt.Errorf("%w: folder name %q", ErrEmptyArgument, name)
	}

	s.logger.Info("creating folder",
		slog.String("drive_id", s.opts.DriveID),
		slog.String("name", names[0]),
	)

	req := createFolderRequest{Name: names[0], ConflictBehavior: string(ConflictFail)}

	var dir driveItemResponse
	if err := c.DoJSON(ctx, http.MethodPost, s.itemPath(parent...)+"/children", req, &dir); err != nil {
		return nil, fmt.Errorf("files: creating folder %s: %w", names[0], err)
	}

	item := dir.toItem(s.logger)

	return &item, nil
}

// EnsureFolders creates every missing folder along pathParts and returns
// the deepest one. Segments that already exist are left untouched.
func (s *Service) EnsureFolders(ctx context.Context, pathParts ...string) (*Item, error) {
	segments := joinSegments(pathParts...)
	if len(segments) == 0 {
		return s.Get(ctx)
	}

	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	var item *Item

	for i, seg := range segments {
		item, err = s.fetchItem(ctx, c, s.itemPath(segments[:i+1]...))
		if err == nil {
			continue
		}

		if !errors.Is(err, apierr.ErrNotFound) {
			return nil, err
		}

		item, err = s.createFolder(ctx, c, seg, segments[:i])
		if err != nil {
			return nil, err
		}
	}

	return item, nil
}

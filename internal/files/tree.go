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

// listChildrenPageSize is the $top value for children listings, the
// maximum the Graph API allows for drive item collections.
const listChildrenPageSize = 200

// TreeNode is an item together with the children listed beneath it. Each
// node owns its Children slice. Materialized is true once a container's
// children have been listed; with recursion off it stays false and
// Children stays empty.
type TreeNode struct {
	Item
	Children     []TreeNode `json:"children,omitempty"`
	Materialized bool       `json:"materialized"`
}

// List returns the children of the folder at pathParts. With recursive set,
// every folder is expanded depth-first in server order. A folder that does
// not exist lists as empty; not-found on a later page of its children, or
// anywhere below it, is an error.
func (s *Service) List(ctx context.Context, recursive bool, pathParts ...string) ([]TreeNode, error) {
	s.logger.Info("listing folder",
		slog.String("drive_id", s.opts.DriveID),
		slog.Bool("recursive", recursive),
	)

	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	p := graph.NewPager[driveItemResponse](c, http.MethodGet, childrenPath(s.itemPath(pathParts...)), nil)

	children, err := graph.DrainPager(ctx, p)
	if errors.Is(err, apierr.ErrNotFound) && p.Pages() == 0 {
		s.logger.Warn("folder not found, listing as empty", slog.String("drive_id", s.opts.DriveID))

		return []TreeNode{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("files: listing children: %w", err)
	}

	return s.expand(ctx, c, children, recursive)
}

// ListByID returns the children of the folder with the given ID. Unlike
// List, a missing folder is reported as a not-found error rather than an
// empty listing.
func (s *Service) ListByID(ctx context.Context, itemID string, recursive bool) ([]TreeNode, error) {
	if itemID == "" {
		return nil, fmt.Errorf("%w: item id", ErrEmptyArgument)
	}

	s.logger.Info("listing folder",
		slog.String("drive_id", s.opts.DriveID),
		slog.String("item_id", itemID),
		slog.Bool("recursive", recursive),
	)

	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	return s.walk(ctx, c, s.itemIDPath(itemID), recursive)
}

// walk lists the container at apiPath and expands its children.
func (s *Service) walk(ctx context.Context, c *graph.Client, apiPath string, recursive bool) ([]TreeNode, error) {
	children, err := s.listChildren(ctx, c, apiPath)
	if err != nil {
		return nil, err
	}

	return s.expand(ctx, c, children, recursive)
}

// listChildren drains the immediate children of the container at apiPath.
func (s *Service) listChildren(ctx context.Context, c *graph.Client, apiPath string) ([]driveItemResponse, error) {
	children, err := graph.Drain[driveItemResponse](ctx, c, http.MethodGet, childrenPath(apiPath), nil)
	if err != nil {
		return nil, fmt.Errorf("files: listing children: %w", err)
	}

	return children, nil
}

func childrenPath(apiPath string) string {
	return fmt.Sprintf("%s/children?$top=%d", apiPath, listChildrenPageSize)
}

// expand converts children to nodes, walking each container depth-first
// when recursive is set.
func (s *Service) expand(
	ctx context.Context, c *graph.Client, children []driveItemResponse, recursive bool,
) ([]TreeNode, error) {
	nodes := make([]TreeNode, 0, len(children))

	for i := range children {
		node := TreeNode{Item: children[i].toItem(s.logger)}

		if recursive && children[i].isContainer() {
			sub, err := s.walk(ctx, c, s.itemIDPath(node.ID), true)
			if err != nil {
				return nil, err
			}

			node.Children = sub
			node.Materialized = true
		}

		nodes = append(nodes, node)
	}

	return nodes, nil
}

// Flatten returns every node of the forest in pre-order with its path
// relative to the listed folder.
func Flatten(nodes []TreeNode) []FlatEntry {
	var out []FlatEntry

	var visit func(prefix string, ns []TreeNode)
	visit = func(prefix string, ns []TreeNode) {
		for i := range ns {
			p := ns[i].Name
			if prefix != "" {
				p = prefix + "/" + p
			}

			out = append(out, FlatEntry{Path: p, Item: ns[i].Item})
			visit(p, ns[i].Children)
		}
	}

	visit("", nodes)

	return out
}

// FlatEntry is one node of a flattened tree.
type FlatEntry struct {
	Path string
	Item Item
}

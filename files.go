package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/msservices/internal/files"
)

func newLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List files and folders under a path",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLs,
	}

	cmd.Flags().BoolP("recursive", "r", false, "list subfolders recursively")

	return cmd
}

func newLsIDCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls-id <item-id>",
		Short: "List the children of a folder by ID",
		Args:  cobra.ExactArgs(1),
		RunE:  runLsID,
	}

	cmd.Flags().BoolP("recursive", "r", false, "list subfolders recursively")

	return cmd
}

func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <path>",
		Short: "Display file or folder metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  runStat,
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <item-id> [local-dir]",
		Short: "Download a file by ID",
		Long: `Download a file into <local-dir>/<item-id>/<name>. The scratch directory
is used when no directory is given. An existing download is not fetched again.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runGet,
	}
}

func newPutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <local-path>... <remote-folder>",
		Short: "Upload files into a remote folder",
		Long: `Upload one or more local files into a remote folder. Files up to 4 MiB are
sent in one request; larger files go through an upload session in 4 MiB
fragments. With a single argument the file goes to the drive root.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runPut,
	}

	cmd.Flags().String("conflict", string(files.ConflictReplace), "when the name exists: fail, replace or rename")
	cmd.Flags().String("name", "", "remote file name (single file only)")

	return cmd
}

func newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a folder and any missing parents",
		Args:  cobra.ExactArgs(1),
		RunE:  runMkdir,
	}
}

func newMvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <item-id> <new-parent-id>",
		Short: "Move an item under another folder",
		Args:  cobra.ExactArgs(2),
		RunE:  runMv,
	}
}

func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <item-id> <new-name>",
		Short: "Rename an item in place",
		Args:  cobra.ExactArgs(2),
		RunE:  runRename,
	}
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <item-id>",
		Short: "Delete an item (folders are deleted with their contents)",
		Args:  cobra.ExactArgs(1),
		RunE:  runRm,
	}
}

// splitRemotePath turns "a/b/c" into path parts; "" and "/" mean the base.
func splitRemotePath(path string) []string {
	clean := strings.Trim(path, "/")
	if clean == "" {
		return nil
	}

	return strings.Split(clean, "/")
}

func runLs(cmd *cobra.Command, args []string) error {
	remotePath := ""
	if len(args) > 0 {
		remotePath = args[0]
	}

	recursive, err := cmd.Flags().GetBool("recursive")
	if err != nil {
		return err
	}

	svc, err := newFilesService(resolvedCfg, buildLogger())
	if err != nil {
		return err
	}

	nodes, err := svc.List(cmd.Context(), recursive, splitRemotePath(remotePath)...)
	if err != nil {
		return fmt.Errorf("listing %q: %w", remotePath, err)
	}

	return printTree(nodes)
}

func runLsID(cmd *cobra.Command, args []string) error {
	recursive, err := cmd.Flags().GetBool("recursive")
	if err != nil {
		return err
	}

	svc, err := newFilesService(resolvedCfg, buildLogger())
	if err != nil {
		return err
	}

	nodes, err := svc.ListByID(cmd.Context(), args[0], recursive)
	if err != nil {
		return fmt.Errorf("listing %s: %w", args[0], err)
	}

	return printTree(nodes)
}

// printTree prints nodes as JSON, or flattened into a table with folders
// first at each level.
func printTree(nodes []files.TreeNode) error {
	if flagJSON {
		return printJSON(os.Stdout, nodes)
	}

	sortTree(nodes)

	entries := files.Flatten(nodes)
	rows := make([][]string, 0, len(entries))

	for i := range entries {
		name := entries[i].Path
		if entries[i].Item.IsFolder {
			name += "/"
		}

		rows = append(rows, []string{
			name,
			formatSize(entries[i].Item.Size),
			formatTime(entries[i].Item.ModifiedAt),
			entries[i].Item.ID,
		})
	}

	printTable(os.Stdout, []string{"NAME", "SIZE", "MODIFIED", "ID"}, rows)

	return nil
}

func sortTree(nodes []files.TreeNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].IsFolder != nodes[j].IsFolder {
			return nodes[i].IsFolder
		}

		return nodes[i].Name < nodes[j].Name
	})

	for i := range nodes {
		sortTree(nodes[i].Children)
	}
}

func runStat(cmd *cobra.Command, args []string) error {
	svc, err := newFilesService(resolvedCfg, buildLogger())
	if err != nil {
		return err
	}

	item, err := svc.Get(cmd.Context(), splitRemotePath(args[0])...)
	if err != nil {
		return fmt.Errorf("getting %q: %w", args[0], err)
	}

	return printItem(item)
}

func printItem(item *files.Item) error {
	if flagJSON {
		return printJSON(os.Stdout, item)
	}

	kind := "file"
	if item.IsFolder {
		kind = "folder"
	}

	rows := [][]string{
		{"Name", item.Name},
		{"ID", item.ID},
		{"Type", kind},
		{"Size", formatSize(item.Size)},
		{"Modified", formatTime(item.ModifiedAt)},
		{"Created", formatTime(item.CreatedAt)},
	}

	if item.IsFolder {
		rows = append(rows, []string{"Children", fmt.Sprint(item.ChildCount)})
	} else {
		rows = append(rows, []string{"MIME type", item.MimeType}, []string{"QuickXorHash", item.QuickXorHash})
	}

	if item.WebURL != "" {
		rows = append(rows, []string{"Web URL", item.WebURL})
	}

	printTable(os.Stdout, []string{"FIELD", "VALUE"}, rows)

	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	svc, err := newFilesService(resolvedCfg, buildLogger())
	if err != nil {
		return err
	}

	dir := resolvedCfg.ScratchDirOrDefault()
	if len(args) > 1 {
		dir = args[1]
	}

	local, err := svc.DownloadByID(cmd.Context(), args[0], dir)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", args[0], err)
	}

	if flagJSON {
		return printJSON(os.Stdout, map[string]string{"path": local})
	}

	fmt.Println(local)

	return nil
}

func runPut(cmd *cobra.Command, args []string) error {
	conflict, err := cmd.Flags().GetString("conflict")
	if err != nil {
		return err
	}

	policy, err := files.ParseConflictPolicy(conflict)
	if err != nil {
		return err
	}

	name, err := cmd.Flags().GetString("name")
	if err != nil {
		return err
	}

	locals, remote := args, []string(nil)
	if len(args) > 1 {
		locals, remote = args[:len(args)-1], splitRemotePath(args[len(args)-1])
	}

	if name != "" && len(locals) > 1 {
		return fmt.Errorf("--name applies to a single file, got %d", len(locals))
	}

	svc, err := newFilesService(resolvedCfg, buildLogger())
	if err != nil {
		return err
	}

	reqs := make([]files.UploadRequest, 0, len(locals))
	for _, local := range locals {
		reqs = append(reqs, files.UploadRequest{LocalPath: local, PathParts: remote, FileName: name, Policy: policy})
	}

	var outcome files.UploadOutcome
	if len(reqs) == 1 {
		outcome = svc.UploadFile(cmd.Context(), reqs[0].LocalPath, remote, name, policy)
	} else {
		outcome = svc.UploadBatch(cmd.Context(), reqs, resolvedCfg.UploadParallelism)
	}

	return reportUploads(outcome)
}

// reportUploads prints the outcome and fails when any file did not upload.
func reportUploads(outcome files.UploadOutcome) error {
	if flagJSON {
		if err := printJSON(os.Stdout, outcome); err != nil {
			return err
		}
	} else {
		for i := range outcome.Files {
			statusf("Uploaded %s (%s) id=%s\n",
				outcome.Files[i].Name, formatSize(outcome.Files[i].Size), outcome.Files[i].ID)
		}

		for _, e := range outcome.Errors {
			fmt.Fprintf(os.Stderr, "%s [%d]\n", e.Message, e.Code)
		}
	}

	if len(outcome.Errors) > 0 {
		return fmt.Errorf("%d of %d uploads failed",
			len(outcome.Errors), len(outcome.Errors)+len(outcome.Files))
	}

	return nil
}

func runMkdir(cmd *cobra.Command, args []string) error {
	parts := splitRemotePath(args[0])
	if len(parts) == 0 {
		return fmt.Errorf("mkdir: a folder path is required")
	}

	svc, err := newFilesService(resolvedCfg, buildLogger())
	if err != nil {
		return err
	}

	item, err := svc.EnsureFolders(cmd.Context(), parts...)
	if err != nil {
		return fmt.Errorf("creating %q: %w", args[0], err)
	}

	if flagJSON {
		return printJSON(os.Stdout, item)
	}

	statusf("Created %s id=%s\n", filepath.ToSlash(strings.Join(parts, "/")), item.ID)

	return nil
}

func runMv(cmd *cobra.Command, args []string) error {
	svc, err := newFilesService(resolvedCfg, buildLogger())
	if err != nil {
		return err
	}

	item, err := svc.Move(cmd.Context(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("moving %s: %w", args[0], err)
	}

	if flagJSON {
		return printJSON(os.Stdout, item)
	}

	statusf("Moved %s under %s\n", item.Name, args[1])

	return nil
}

func runRename(cmd *cobra.Command, args []string) error {
	svc, err := newFilesService(resolvedCfg, buildLogger())
	if err != nil {
		return err
	}

	item, err := svc.Rename(cmd.Context(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("renaming %s: %w", args[0], err)
	}

	if flagJSON {
		return printJSON(os.Stdout, item)
	}

	statusf("Renamed to %s\n", item.Name)

	return nil
}

func runRm(cmd *cobra.Command, args []string) error {
	svc, err := newFilesService(resolvedCfg, buildLogger())
	if err != nil {
		return err
	}

	if err := svc.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("deleting %s: %w", args[0], err)
	}

	statusf("Deleted %s\n", args[0])

	return nil
}

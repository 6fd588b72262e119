package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/msservices/internal/mail"
)

func newMailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mail",
		Short: "Send and inspect mail",
	}

	send := &cobra.Command{
		Use:   "send",
		Short: "Send an HTML message, or save it as a draft",
		Args:  cobra.NoArgs,
		RunE:  runMailSend,
	}
	send.Flags().StringSlice("to", nil, "recipient address (repeatable)")
	send.Flags().String("subject", "", "message subject")
	send.Flags().String("body", "", "HTML body")
	send.Flags().String("body-file", "", "read the HTML body from a file")
	send.Flags().String("from", "", "sender mailbox (defaults to from_address)")
	send.Flags().StringSlice("attach", nil, "file to attach (repeatable)")
	send.Flags().Bool("draft", false, "save to Drafts instead of sending")

	if err := send.MarkFlagRequired("to"); err != nil {
		panic(err)
	}

	sendDraft := &cobra.Command{
		Use:   "send-draft <message-id> [mailbox]",
		Short: "Send a saved draft",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runMailSendDraft,
	}

	folders := &cobra.Command{
		Use:   "folders [mailbox]",
		Short: "List mail folders",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMailFolders,
	}

	ls := &cobra.Command{
		Use:   "ls [mailbox]",
		Short: "List messages",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMailLs,
	}
	ls.Flags().String("folder", "", "folder ID or well-known name (e.g. inbox)")

	attachments := &cobra.Command{
		Use:   "attachments <message-id> [mailbox]",
		Short: "List the attachments of a message",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runMailAttachments,
	}

	rm := &cobra.Command{
		Use:   "rm <message-id> [mailbox]",
		Short: "Delete a message",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runMailRm,
	}

	cmd.AddCommand(send, sendDraft, folders, ls, attachments, rm)

	return cmd
}

// mailboxArg returns args[i], or the default sender when absent.
func mailboxArg(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}

	return resolvedCfg.FromAddress
}

func runMailSend(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	to, _ := flags.GetStringSlice("to")         //nolint:errcheck // registered above
	subject, _ := flags.GetString("subject")    //nolint:errcheck // registered above
	body, _ := flags.GetString("body")          //nolint:errcheck // registered above
	bodyFile, _ := flags.GetString("body-file") //nolint:errcheck // registered above
	from, _ := flags.GetString("from")          //nolint:errcheck // registered above
	attach, _ := flags.GetStringSlice("attach") //nolint:errcheck // registered above
	draft, _ := flags.GetBool("draft")          //nolint:errcheck // registered above

	if bodyFile != "" {
		data, err := os.ReadFile(bodyFile)
		if err != nil {
			return fmt.Errorf("reading body file: %w", err)
		}

		body = string(data)
	}

	msg := mail.OutgoingMessage{To: to, Subject: subject, HTMLBody: body, From: from}

	for _, path := range attach {
		if err := msg.AttachFile(path); err != nil {
			return fmt.Errorf("attaching %s: %w", path, err)
		}
	}

	svc, err := newMailService(resolvedCfg, buildLogger())
	if err != nil {
		return err
	}

	if draft {
		saved, err := svc.CreateDraft(cmd.Context(), msg)
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(os.Stdout, saved)
		}

		statusf("Draft saved id=%s\n", saved.ID)

		return nil
	}

	if err := svc.Send(cmd.Context(), msg); err != nil {
		return err
	}

	statusf("Sent to %d recipient(s)\n", len(to))

	return nil
}

func runMailSendDraft(cmd *cobra.Command, args []string) error {
	svc, err := newMailService(resolvedCfg, buildLogger())
	if err != nil {
		return err
	}

	if err := svc.SendDraft(cmd.Context(), mailboxArg(args, 1), args[0]); err != nil {
		return err
	}

	statusf("Sent draft %s\n", args[0])

	return nil
}

func runMailFolders(cmd *cobra.Command, args []string) error {
	svc, err := newMailService(resolvedCfg, buildLogger())
	if err != nil {
		return err
	}

	folders, err := svc.ListMailFolders(cmd.Context(), mailboxArg(args, 0))
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(os.Stdout, folders)
	}

	rows := make([][]string, 0, len(folders))
	for _, f := range folders {
		rows = append(rows, []string{f.DisplayName, fmt.Sprint(f.UnreadItemCount), fmt.Sprint(f.TotalItemCount), f.ID})
	}

	printTable(os.Stdout, []string{"FOLDER", "UNREAD", "TOTAL", "ID"}, rows)

	return nil
}

func runMailLs(cmd *cobra.Command, args []string) error {
	folder, err := cmd.Flags().GetString("folder")
	if err != nil {
		return err
	}

	svc, err := newMailService(resolvedCfg, buildLogger())
	if err != nil {
		return err
	}

	msgs, err := svc.ListMessages(cmd.Context(), mailboxArg(args, 0), folder)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(os.Stdout, msgs)
	}

	rows := make([][]string, 0, len(msgs))
	for i := range msgs {
		flag := " "
		if !msgs[i].IsRead {
			flag = "*"
		}

		rows = append(rows, []string{flag, formatTime(msgs[i].ReceivedAt), msgs[i].From, msgs[i].Subject, msgs[i].ID})
	}

	printTable(os.Stdout, []string{" ", "RECEIVED", "FROM", "SUBJECT", "ID"}, rows)

	return nil
}

func runMailAttachments(cmd *cobra.Command, args []string) error {
	svc, err := newMailService(resolvedCfg, buildLogger())
	if err != nil {
		return err
	}

	atts, err := svc.ListAttachments(cmd.Context(), mailboxArg(args, 1), args[0])
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(os.Stdout, atts)
	}

	rows := make([][]string, 0, len(atts))
	for _, a := range atts {
		rows = append(rows, []string{a.Name, a.ContentType, formatSize(a.Size), a.ID})
	}

	printTable(os.Stdout, []string{"NAME", "TYPE", "SIZE", "ID"}, rows)

	return nil
}

func runMailRm(cmd *cobra.Command, args []string) error {
	svc, err := newMailService(resolvedCfg, buildLogger())
	if err != nil {
		return err
	}

	if err := svc.DeleteMessage(cmd.Context(), mailboxArg(args, 1), args[0]); err != nil {
		return err
	}

	statusf("Deleted message %s\n", args[0])

	return nil
}

package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/tonimelisma/msservices/internal/apierr"
	"github.com/tonimelisma/msservices/internal/graph"
)

// Options configure the mail service.
type Options struct {
	FromAddress string // default sender mailbox
}

// Service talks to mailboxes through the Graph API. Every call connects
// with a freshly acquired token.
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

	return &Service{opts: opts, tokens: tokens, baseURL: baseURL, httpClient: httpClient, logger: logger}
}

func (s *Service) connect(ctx context.Context) (*graph.Client, error) {
	c, err := graph.Connect(ctx, s.baseURL, s.httpClient, s.tokens, s.logger)
	if err != nil {
		return nil, fmt.Errorf("mail: %w", err)
	}

	return c, nil
}

// sender resolves the mailbox a message is sent from.
func (s *Service) sender(from string) (string, error) {
	if from == "" {
		from = s.opts.FromAddress
	}

	if from == "" {
		return "", apierr.Configuration("Default from email address is required")
	}

	return from, nil
}

func userPath(mailbox string) string {
	return "/users/" + url.PathEscape(mailbox)
}

// Send sends msg immediately. The attachments field is omitted when msg
// has none.
func (s *Service) Send(ctx context.Context, msg OutgoingMessage) error {
	from, err := s.sender(msg.From)
	if err != nil {
		return err
	}

	payload, err := msg.payload(from)
	if err != nil {
		return err
	}

	s.logger.Info("sending mail",
		slog.String("from", from),
		slog.Int("recipients", len(msg.To)),
		slog.Int("attachments", len(msg.Attachments)),
	)

	c, err := s.connect(ctx)
	if err != nil {
		return err
	}

	if err := c.DoJSON(ctx, http.MethodPost, userPath(from)+"/sendMail", sendMailRequest{Message: payload}, nil); err != nil {
		return fmt.Errorf("mail: failed to send email: %w", err)
	}

	return nil
}

// CreateDraft saves msg in the sender's Drafts folder.
func (s *Service) CreateDraft(ctx context.Context, msg OutgoingMessage) (*Message, error) {
	from, err := s.sender(msg.From)
	if err != nil {
		return nil, err
	}

	payload, err := msg.payload(from)
	if err != nil {
		return nil, err
	}

	s.logger.Info("creating draft", slog.String("from", from))

	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	var resp messageResponse
	if err := c.DoJSON(ctx, http.MethodPost, userPath(from)+"/messages", payload, &resp); err != nil {
		return nil, fmt.Errorf("mail: creating draft: %w", err)
	}

	m := resp.toMessage()

	return &m, nil
}

// SendDraft sends a previously created draft.
func (s *Service) SendDraft(ctx context.Context, mailbox, messageID string) error {
	s.logger.Info("sending draft", slog.String("mailbox", mailbox), slog.String("message_id", messageID))

	c, err := s.connect(ctx)
	if err != nil {
		return err
	}

	path := fmt.Sprintf("%s/messages/%s/send", userPath(mailbox), url.PathEscape(messageID))
	if err := c.DoJSON(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("mail: sending draft %s: %w", messageID, err)
	}

	return nil
}

// DeleteMessage deletes a message from mailbox.
func (s *Service) DeleteMessage(ctx context.Context, mailbox, messageID string) error {
	s.logger.Info("deleting message", slog.String("mailbox", mailbox), slog.String("message_id", messageID))

	c, err := s.connect(ctx)
	if err != nil {
		return err
	}

	path := fmt.Sprintf("%s/messages/%s", userPath(mailbox), url.PathEscape(messageID))
	if err := c.DoJSON(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("mail: deleting message %s: %w", messageID, err)
	}

	return nil
}

// ListMailFolders returns every top-level mail folder of mailbox.
func (s *Service) ListMailFolders(ctx context.Context, mailbox string) ([]Folder, error) {
	s.logger.Info("listing mail folders", slog.String("mailbox", mailbox))

	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	folders, err := graph.Drain[Folder](ctx, c, http.MethodGet, userPath(mailbox)+"/mailFolders", nil)
	if err != nil {
		return nil, fmt.Errorf("mail: listing folders: %w", err)
	}

	return folders, nil
}

// ListMessages returns every message in folderID, or across the mailbox
// when folderID is empty, newest first.
func (s *Service) ListMessages(ctx context.Context, mailbox, folderID string) ([]Message, error) {
	s.logger.Info("listing messages", slog.String("mailbox", mailbox), slog.String("folder_id", folderID))

	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	path := userPath(mailbox)
	if folderID != "" {
		path += "/mailFolders/" + url.PathEscape(folderID)
	}

	path += "/messages?$orderby=receivedDateTime%20desc"

	raw, err := graph.Drain[messageResponse](ctx, c, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("mail: listing messages: %w", err)
	}

	msgs := make([]Message, 0, len(raw))
	for i := range raw {
		msgs = append(msgs, raw[i].toMessage())
	}

	return msgs, nil
}

// ListAttachments returns the attachments of a stored message.
func (s *Service) ListAttachments(ctx context.Context, mailbox, messageID string) ([]AttachmentInfo, error) {
	s.logger.Info("listing attachments", slog.String("mailbox", mailbox), slog.String("message_id", messageID))

	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("%s/messages/%s/attachments?$select=id,name,contentType,size,isInline",
		userPath(mailbox), url.PathEscape(messageID))

	atts, err := graph.Drain[AttachmentInfo](ctx, c, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("mail: listing attachments: %w", err)
	}

	return atts, nil
}

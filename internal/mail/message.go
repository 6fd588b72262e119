// Package mail sends mail as a mailbox through the Graph API and lists
// folders, messages and attachments.
package mail

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/tonimelisma/msservices/internal/apierr"
)

const fileAttachmentType = "#microsoft.graph.fileAttachment"

// Attachment is a file attachment in Graph wire form.
type Attachment struct {
	ODataType    string `json:"@odata.type"` //nolint:tagliatelle // OData annotation key
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
}

// OutgoingMessage is an HTML message to send or save as a draft. An empty
// From uses the service's default sender.
type OutgoingMessage struct {
	To          []string
	Subject     string
	HTMLBody    string
	From        string
	Attachments []Attachment
}

// AttachFile reads path and appends it as an attachment, detecting the
// content type from the file's contents.
func (m *OutgoingMessage) AttachFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apierr.New(apierr.ErrLocalIO, apierr.CodeLocalIO, "File does not exist or cannot be read", err)
	}

	m.AttachBytes(filepath.Base(path), "", data)

	return nil
}

// AttachBytes appends data as an attachment. An empty contentType is
// detected from data.
func (m *OutgoingMessage) AttachBytes(name, contentType string, data []byte) {
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}

	m.Attachments = append(m.Attachments, Attachment{
		ODataType:    fileAttachmentType,
		Name:         name,
		ContentType:  contentType,
		ContentBytes: base64.StdEncoding.EncodeToString(data),
	})
}

type emailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type itemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// messagePayload is the Graph message resource as sent.
type messagePayload struct {
	Subject      string       `json:"subject"`
	Body         itemBody     `json:"body"`
	From         recipient    `json:"from"`
	ToRecipients []recipient  `json:"toRecipients"`
	Attachments  []Attachment `json:"attachments,omitempty"`
}

// sendMailRequest wraps the message for /sendMail.
type sendMailRequest struct {
	Message messagePayload `json:"Message"` //nolint:tagliatelle // accepted casing of the sendMail body
}

func (m *OutgoingMessage) payload(from string) (messagePayload, error) {
	if len(m.To) == 0 {
		return messagePayload{}, apierr.Configuration("At least one recipient is required")
	}

	to := make([]recipient, 0, len(m.To))
	for _, addr := range m.To {
		to = append(to, recipient{EmailAddress: emailAddress{Address: addr}})
	}

	return messagePayload{
		Subject:      m.Subject,
		Body:         itemBody{ContentType: "HTML", Content: m.HTMLBody},
		From:         recipient{EmailAddress: emailAddress{Address: from}},
		ToRecipients: to,
		Attachments:  m.Attachments,
	}, nil
}

// Message is a received or drafted message.
type Message struct {
	ID             string    `json:"id"`
	Subject        string    `json:"subject"`
	From           string    `json:"from,omitempty"`
	To             []string  `json:"to,omitempty"`
	ReceivedAt     time.Time `json:"receivedAt,omitzero"`
	IsRead         bool      `json:"isRead"`
	IsDraft        bool      `json:"isDraft"`
	HasAttachments bool      `json:"hasAttachments"`
	BodyPreview    string    `json:"bodyPreview,omitempty"`
	WebLink        string    `json:"webLink,omitempty"`
}

type messageResponse struct {
	ID               string      `json:"id"`
	Subject          string      `json:"subject"`
	From             *recipient  `json:"from"`
	ToRecipients     []recipient `json:"toRecipients"`
	ReceivedDateTime string      `json:"receivedDateTime"`
	IsRead           bool        `json:"isRead"`
	IsDraft          bool        `json:"isDraft"`
	HasAttachments   bool        `json:"hasAttachments"`
	BodyPreview      string      `json:"bodyPreview"`
	WebLink          string      `json:"webLink"`
}

func (r *messageResponse) toMessage() Message {
	msg := Message{
		ID:             r.ID,
		Subject:        r.Subject,
		IsRead:         r.IsRead,
		IsDraft:        r.IsDraft,
		HasAttachments: r.HasAttachments,
		BodyPreview:    r.BodyPreview,
		WebLink:        r.WebLink,
	}

	if r.From != nil {
		msg.From = r.From.EmailAddress.Address
	}

	for _, to := range r.ToRecipients {
		msg.To = append(msg.To, to.EmailAddress.Address)
	}

	if t, err := time.Parse(time.RFC3339, r.ReceivedDateTime); err == nil {
		msg.ReceivedAt = t
	}

	return msg
}

// Folder is a mail folder.
type Folder struct {
	ID               string `json:"id"`
	DisplayName      string `json:"displayName"`
	ParentFolderID   string `json:"parentFolderId,omitempty"`
	ChildFolderCount int    `json:"childFolderCount"`
	UnreadItemCount  int    `json:"unreadItemCount"`
	TotalItemCount   int    `json:"totalItemCount"`
}

// AttachmentInfo describes an attachment on a stored message. Content is
// not fetched.
type AttachmentInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	IsInline    bool   `json:"isInline"`
}

func (a AttachmentInfo) String() string {
	return fmt.Sprintf("%s (%s, %d bytes)", a.Name, a.ContentType, a.Size)
}

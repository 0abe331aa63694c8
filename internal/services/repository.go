package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ajramos/mailrag/internal/gmail"
)

// MessageRepositoryImpl implements MessageRepository over the backend client
type MessageRepositoryImpl struct {
	gmailClient *gmail.Client
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(gmailClient *gmail.Client) *MessageRepositoryImpl {
	return &MessageRepositoryImpl{
		gmailClient: gmailClient,
	}
}

func (r *MessageRepositoryImpl) FetchFirstPage(ctx context.Context, userID int64, opts QueryOptions) (*MessagePage, error) {
	if userID <= 0 {
		return nil, ErrIdentityUnresolved
	}
	return r.fetchPage(ctx, userID, "", opts)
}

func (r *MessageRepositoryImpl) FetchNextPage(ctx context.Context, userID int64, pageToken string, opts QueryOptions) (*MessagePage, error) {
	if userID <= 0 {
		return nil, ErrIdentityUnresolved
	}
	if strings.TrimSpace(pageToken) == "" {
		return nil, fmt.Errorf("%w: page token cannot be empty", ErrInvalidInput)
	}
	return r.fetchPage(ctx, userID, pageToken, opts)
}

func (r *MessageRepositoryImpl) fetchPage(ctx context.Context, userID int64, pageToken string, opts QueryOptions) (*MessagePage, error) {
	page, err := r.gmailClient.ListMessagesPage(ctx, userID, gmail.ListOptions{
		MaxResults: opts.MaxResults,
		PageToken:  pageToken,
		Query:      opts.Query,
		LabelIDs:   opts.LabelIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", classify(err))
	}

	return &MessagePage{
		Messages:           page.Messages,
		NextPageToken:      page.NextPageToken,
		ResultSizeEstimate: page.ResultSizeEstimate,
	}, nil
}

func (r *MessageRepositoryImpl) GetMessage(ctx context.Context, userID int64, id string) (*gmail.RawMessage, error) {
	if userID <= 0 {
		return nil, ErrIdentityUnresolved
	}
	if id == "" {
		return nil, fmt.Errorf("%w: message ID cannot be empty", ErrInvalidInput)
	}

	msg, err := r.gmailClient.GetMessage(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, classify(err))
	}

	return msg, nil
}

func (r *MessageRepositoryImpl) MarkAsRead(ctx context.Context, userID int64, id string) error {
	if userID <= 0 {
		return ErrIdentityUnresolved
	}
	if id == "" {
		return fmt.Errorf("%w: message ID cannot be empty", ErrInvalidInput)
	}
	if err := r.gmailClient.MarkAsRead(ctx, userID, id); err != nil {
		return fmt.Errorf("failed to mark message as read: %w", classify(err))
	}
	return nil
}

func (r *MessageRepositoryImpl) ArchiveMessage(ctx context.Context, userID int64, id string) error {
	if userID <= 0 {
		return ErrIdentityUnresolved
	}
	if id == "" {
		return fmt.Errorf("%w: message ID cannot be empty", ErrInvalidInput)
	}
	if err := r.gmailClient.ArchiveMessage(ctx, userID, id); err != nil {
		return fmt.Errorf("failed to archive message: %w", classify(err))
	}
	return nil
}

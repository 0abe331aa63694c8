package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ajramos/mailrag/internal/gmail"
	"github.com/ajramos/mailrag/internal/metrics"
	"github.com/ajramos/mailrag/internal/render"
	"go.uber.org/zap"
)

// FilterStatus selects which messages the inbox view shows
type FilterStatus string

const (
	FilterAll     FilterStatus = "all"
	FilterUnread  FilterStatus = "unread"
	FilterStarred FilterStatus = "starred"
)

// ParseFilterStatus parses a status name; empty means all
func ParseFilterStatus(s string) (FilterStatus, error) {
	switch FilterStatus(strings.ToLower(strings.TrimSpace(s))) {
	case FilterAll, "":
		return FilterAll, nil
	case FilterUnread:
		return FilterUnread, nil
	case FilterStarred:
		return FilterStarred, nil
	}
	return FilterAll, fmt.Errorf("%w: unknown filter %q", ErrInvalidInput, s)
}

// InboxOptions configures an InboxSession
type InboxOptions struct {
	PageSize int
	Query    string
	LabelIDs []string
	// SyncTimeout bounds each background remote sync (mark read, archive)
	SyncTimeout time.Duration
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Now         func() time.Time
}

// InboxSession holds the loaded messages, pagination cursor, filters and
// selection for one signed-in user. Local changes (read, star, archive,
// remove) are the source of truth for the session and survive reloads.
type InboxSession struct {
	repo    MessageRepository
	loader  *FullMessageLoader
	opts    InboxOptions
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu           sync.Mutex
	userID       int64
	messages     []*gmail.Message
	index        map[string]int
	text         map[string]string // lowercased plain text of Content, for search
	nextToken    string
	generation   uint64
	firstLoading bool
	nextLoading  bool
	err          error

	term   string
	status FilterStatus

	selectedID string
	selectSeq  uint64

	readLocal map[string]bool
	starLocal map[string]bool
	archived  map[string]bool
	removed   map[string]bool

	syncs sync.WaitGroup
}

// NewInboxSession creates an empty session over repo
func NewInboxSession(repo MessageRepository, opts InboxOptions) *InboxSession {
	if opts.PageSize <= 0 {
		opts.PageSize = gmail.DefaultPageSize
	}
	if opts.SyncTimeout <= 0 {
		opts.SyncTimeout = gmail.DefaultTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loader := NewFullMessageLoader(repo)
	loader.now = now
	return &InboxSession{
		repo:      repo,
		loader:    loader,
		opts:      opts,
		logger:    logger,
		metrics:   opts.Metrics,
		now:       now,
		index:     map[string]int{},
		text:      map[string]string{},
		status:    FilterAll,
		readLocal: map[string]bool{},
		starLocal: map[string]bool{},
		archived:  map[string]bool{},
		removed:   map[string]bool{},
	}
}

// SetLogger sets the logger for debug output
func (s *InboxSession) SetLogger(logger *zap.Logger) {
	if logger == nil {
		return
	}
	s.mu.Lock()
	s.logger = logger
	s.mu.Unlock()
}

func (s *InboxSession) queryOptions() QueryOptions {
	return QueryOptions{MaxResults: s.opts.PageSize, Query: s.opts.Query, LabelIDs: s.opts.LabelIDs}
}

// LoadFirstPage replaces the loaded set with the first page for userID. It is
// ignored while another first-page load is in flight. On failure the
// previously loaded data is kept and the error is recorded.
func (s *InboxSession) LoadFirstPage(ctx context.Context, userID int64) error {
	s.mu.Lock()
	if s.firstLoading {
		s.mu.Unlock()
		return nil
	}
	if userID <= 0 {
		s.err = ErrIdentityUnresolved
		s.mu.Unlock()
		return ErrIdentityUnresolved
	}
	s.firstLoading = true
	if s.userID != 0 && s.userID != userID {
		s.resetLocked()
	}
	s.userID = userID
	s.generation++
	gen := s.generation
	opts := s.queryOptions()
	s.mu.Unlock()

	page, err := s.repo.FetchFirstPage(ctx, userID, opts)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.firstLoading = false
	if err != nil {
		s.err = err
		s.logger.Warn("inbox: first page failed", zap.Int64("user_id", userID), zap.Error(err))
		return err
	}
	if gen != s.generation {
		return nil
	}

	s.messages = nil
	s.index = map[string]int{}
	s.text = map[string]string{}
	for _, msg := range s.normalize(page.Messages) {
		s.upsertLocked(msg)
	}
	s.nextToken = page.NextPageToken
	s.err = nil
	s.metrics.PageLoaded("first")
	s.logger.Debug("inbox: first page loaded",
		zap.Int("messages", len(s.messages)),
		zap.Bool("has_more", s.nextToken != ""))
	return nil
}

// LoadNextPage appends the next page. It is a no-op when the listing is
// exhausted, no user is loaded, or a page load is already in flight. Entries
// whose id is already loaded are replaced in place by the newer data.
func (s *InboxSession) LoadNextPage(ctx context.Context) error {
	s.mu.Lock()
	if s.nextToken == "" || s.userID <= 0 || s.nextLoading || s.firstLoading {
		s.mu.Unlock()
		return nil
	}
	s.nextLoading = true
	token := s.nextToken
	userID := s.userID
	gen := s.generation
	opts := s.queryOptions()
	s.mu.Unlock()

	page, err := s.repo.FetchNextPage(ctx, userID, token, opts)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextLoading = false
	if gen != s.generation {
		// a reload replaced the set while this page was in flight
		return nil
	}
	if err != nil {
		s.err = err
		s.logger.Warn("inbox: next page failed", zap.String("page_token", token), zap.Error(err))
		return err
	}

	for _, msg := range s.normalize(page.Messages) {
		s.upsertLocked(msg)
	}
	s.nextToken = page.NextPageToken
	s.err = nil
	s.metrics.PageLoaded("next")
	return nil
}

func (s *InboxSession) normalize(raws []*gmail.RawMessage) []*gmail.Message {
	now := s.now()
	out := make([]*gmail.Message, 0, len(raws))
	for _, raw := range raws {
		msg := gmail.NormalizeAt(raw, now)
		if msg == nil || msg.ID == "" {
			continue
		}
		out = append(out, msg)
	}
	s.metrics.AddNormalized(len(out))
	return out
}

// upsertLocked inserts msg or replaces the entry with the same id in place
func (s *InboxSession) upsertLocked(msg *gmail.Message) {
	if s.removed[msg.ID] {
		return
	}
	s.applyLocalLocked(msg)
	s.text[msg.ID] = strings.ToLower(render.HTMLToText(msg.Content))
	if i, ok := s.index[msg.ID]; ok {
		s.messages[i] = msg
		return
	}
	s.index[msg.ID] = len(s.messages)
	s.messages = append(s.messages, msg)
}

func (s *InboxSession) applyLocalLocked(msg *gmail.Message) {
	if s.readLocal[msg.ID] {
		msg.IsRead = true
	}
	if starred, ok := s.starLocal[msg.ID]; ok {
		msg.IsStarred = starred
	}
	if s.archived[msg.ID] {
		msg.IsArchived = true
	}
}

func (s *InboxSession) lookupLocked(id string) *gmail.Message {
	if i, ok := s.index[id]; ok {
		return s.messages[i]
	}
	return nil
}

// SetFilter sets both the search term and the status filter
func (s *InboxSession) SetFilter(term string, status FilterStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.term = term
	s.status = status
}

// SetSearch sets the search term
func (s *InboxSession) SetSearch(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.term = term
}

// SetStatus sets the status filter
func (s *InboxSession) SetStatus(status FilterStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// Filter returns the current search term and status
func (s *InboxSession) Filter() (string, FilterStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.term, s.status
}

// View returns the filtered, newest-first list of messages
func (s *InboxSession) View() []*gmail.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	term := strings.ToLower(strings.TrimSpace(s.term))
	out := make([]*gmail.Message, 0, len(s.messages))
	for _, m := range s.messages {
		if !matchesStatus(m, s.status) {
			continue
		}
		if term != "" && !s.matchesTermLocked(m, term) {
			continue
		}
		out = append(out, m.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ReceivedAt.Equal(out[j].ReceivedAt) {
			return out[i].ReceivedAt.After(out[j].ReceivedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func matchesStatus(m *gmail.Message, status FilterStatus) bool {
	switch status {
	case FilterUnread:
		return !m.IsRead
	case FilterStarred:
		return m.IsStarred
	default:
		return !m.IsArchived
	}
}

func (s *InboxSession) matchesTermLocked(m *gmail.Message, term string) bool {
	return strings.Contains(strings.ToLower(m.Subject), term) ||
		strings.Contains(strings.ToLower(m.From), term) ||
		strings.Contains(strings.ToLower(m.FromName), term) ||
		strings.Contains(s.text[m.ID], term)
}

// MarkRead marks a message read locally and syncs the change in the
// background. Returns false for unknown ids.
func (s *InboxSession) MarkRead(ctx context.Context, id string) bool {
	s.mu.Lock()
	msg := s.lookupLocked(id)
	if msg == nil {
		s.mu.Unlock()
		return false
	}
	wasUnread := s.markReadLocked(msg)
	userID := s.userID
	s.mu.Unlock()

	if wasUnread {
		s.syncRemote(ctx, "mark_read", id, func(ctx context.Context) error {
			return s.repo.MarkAsRead(ctx, userID, id)
		})
	}
	return true
}

func (s *InboxSession) markReadLocked(msg *gmail.Message) bool {
	wasUnread := !msg.IsRead
	s.readLocal[msg.ID] = true
	msg.IsRead = true
	return wasUnread
}

// ToggleStar flips the starred flag locally. Returns false for unknown ids.
func (s *InboxSession) ToggleStar(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.lookupLocked(id)
	if msg == nil {
		return false
	}
	msg.IsStarred = !msg.IsStarred
	s.starLocal[id] = msg.IsStarred
	return true
}

// Archive hides a message from the default view and syncs the change in the
// background. Returns false for unknown ids.
func (s *InboxSession) Archive(ctx context.Context, id string) bool {
	s.mu.Lock()
	msg := s.lookupLocked(id)
	if msg == nil {
		s.mu.Unlock()
		return false
	}
	alreadyArchived := msg.IsArchived
	msg.IsArchived = true
	s.archived[id] = true
	if s.selectedID == id {
		s.clearSelectionLocked()
	}
	userID := s.userID
	s.mu.Unlock()

	if !alreadyArchived {
		s.syncRemote(ctx, "archive", id, func(ctx context.Context) error {
			return s.repo.ArchiveMessage(ctx, userID, id)
		})
	}
	return true
}

// Remove drops a message from the session. It stays hidden if a later page
// or reload returns it again. Returns false for unknown ids.
func (s *InboxSession) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.removed[id] = true
	s.messages = append(s.messages[:i], s.messages[i+1:]...)
	delete(s.text, id)
	s.index = make(map[string]int, len(s.messages))
	for j, m := range s.messages {
		s.index[m.ID] = j
	}
	if s.selectedID == id {
		s.clearSelectionLocked()
	}
	return true
}

// resetLocked forgets everything tied to the previous user
func (s *InboxSession) resetLocked() {
	s.messages = nil
	s.index = map[string]int{}
	s.text = map[string]string{}
	s.nextToken = ""
	s.readLocal = map[string]bool{}
	s.starLocal = map[string]bool{}
	s.archived = map[string]bool{}
	s.removed = map[string]bool{}
	s.clearSelectionLocked()
}

func (s *InboxSession) clearSelectionLocked() {
	s.selectedID = ""
	s.selectSeq++
}

// ClearSelection deselects the current message
func (s *InboxSession) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearSelectionLocked()
}

// Select makes id the selected message, marks it read and loads its full
// content. A result that arrives after the selection moved on is discarded
// with ErrStaleSelection. When the fetch fails the summary already held is
// returned together with the error.
func (s *InboxSession) Select(ctx context.Context, id string) (*gmail.Message, error) {
	s.mu.Lock()
	msg := s.lookupLocked(id)
	if msg == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: message %s", ErrNotFound, id)
	}
	s.selectedID = id
	s.selectSeq++
	seq := s.selectSeq
	wasUnread := s.markReadLocked(msg)
	summary := msg.Clone()
	userID := s.userID
	s.mu.Unlock()

	if wasUnread {
		s.syncRemote(ctx, "mark_read", id, func(ctx context.Context) error {
			return s.repo.MarkAsRead(ctx, userID, id)
		})
	}
	if summary.Full {
		return summary, nil
	}

	full, err := s.loader.LoadFull(ctx, userID, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectSeq != seq || s.selectedID != id {
		return nil, ErrStaleSelection
	}
	if err != nil {
		s.logger.Warn("inbox: full message load failed", zap.String("message_id", id), zap.Error(err))
		return summary, err
	}
	i, ok := s.index[id]
	if !ok {
		return nil, ErrStaleSelection
	}
	merged := gmail.Merge(s.messages[i], full)
	s.applyLocalLocked(merged)
	s.messages[i] = merged
	s.text[id] = strings.ToLower(render.HTMLToText(merged.Content))
	return merged.Clone(), nil
}

// syncRemote runs fn in a tracked goroutine. Failures are logged; the local
// change is not rolled back.
func (s *InboxSession) syncRemote(ctx context.Context, op, id string, fn func(context.Context) error) {
	s.syncs.Add(1)
	go func() {
		defer s.syncs.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.SyncTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.metrics.SyncFailed(op)
			s.mu.Lock()
			logger := s.logger
			s.mu.Unlock()
			logger.Warn("inbox: remote sync failed",
				zap.String("op", op),
				zap.String("message_id", id),
				zap.Error(err))
		}
	}()
}

// Wait blocks until all background remote syncs have finished
func (s *InboxSession) Wait() {
	s.syncs.Wait()
}

// Messages returns every loaded message in load order, archived included
func (s *InboxSession) Messages() []*gmail.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*gmail.Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.Clone()
	}
	return out
}

// Message returns a loaded message by id
func (s *InboxSession) Message(id string) (*gmail.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.lookupLocked(id)
	if msg == nil {
		return nil, false
	}
	return msg.Clone(), true
}

// Selected returns the selected message, or nil
func (s *InboxSession) Selected() *gmail.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectedID == "" {
		return nil
	}
	return s.lookupLocked(s.selectedID).Clone()
}

// HasMore reports whether another page can be loaded
func (s *InboxSession) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextToken != ""
}

// Loading reports whether a page load is in flight
func (s *InboxSession) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firstLoading || s.nextLoading
}

// Err returns the error of the last failed page load, or nil
func (s *InboxSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Counts returns unread and starred counts over non-archived messages
func (s *InboxSession) Counts() (unread, starred int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.IsArchived {
			continue
		}
		if !m.IsRead {
			unread++
		}
		if m.IsStarred {
			starred++
		}
	}
	return unread, starred
}

// UserID returns the user the session was loaded for
func (s *InboxSession) UserID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

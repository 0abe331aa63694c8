package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ajramos/mailrag/internal/db"
	"github.com/ajramos/mailrag/internal/llm"
	"go.uber.org/zap"
)

// Category groups related email kinds in the generation catalog
type Category struct {
	Key           string
	Name          string
	Subcategories map[string]string
}

// Catalog lists the categories offered for AI generation
var Catalog = []Category{
	{Key: "business", Name: "Business", Subcategories: map[string]string{
		"introduction": "Introduction",
		"followup":     "Follow-up",
		"proposal":     "Proposal",
		"meeting":      "Meeting Request",
		"thankyou":     "Thank You",
	}},
	{Key: "legal", Name: "Legal", Subcategories: map[string]string{
		"refund":    "Refund Request",
		"complaint": "Complaint",
		"inquiry":   "Legal Inquiry",
		"notice":    "Legal Notice",
	}},
	{Key: "personal", Name: "Personal", Subcategories: map[string]string{
		"invitation":      "Invitation",
		"apology":         "Apology",
		"congratulations": "Congratulations",
		"condolences":     "Condolences",
	}},
	{Key: "support", Name: "Support", Subcategories: map[string]string{
		"technical":    "Technical Support",
		"billing":      "Billing Inquiry",
		"feedback":     "Feedback",
		"cancellation": "Cancellation Request",
	}},
}

// SubcategoryKeys returns a category's subcategory keys in sorted order
func (c Category) SubcategoryKeys() []string {
	keys := make([]string, 0, len(c.Subcategories))
	for k := range c.Subcategories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BuildPrompt renders the generation prompt for a catalog entry
func BuildPrompt(category, subcategory, extra string) (string, error) {
	for _, c := range Catalog {
		if c.Key != category {
			continue
		}
		label, ok := c.Subcategories[subcategory]
		if !ok {
			return "", fmt.Errorf("%w: unknown subcategory %q for %s", ErrInvalidInput, subcategory, category)
		}
		extra = strings.TrimSpace(extra)
		if extra == "" {
			extra = "None provided"
		}
		return fmt.Sprintf("Generate a professional %s email. Additional context: %s", label, extra), nil
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrInvalidInput, category)
}

// SplitGeneratedEmail separates a "Subject: ..." first line from the body,
// which starts after the blank line following it.
func SplitGeneratedEmail(email string) (subject, body string) {
	lines := strings.Split(strings.ReplaceAll(email, "\r\n", "\n"), "\n")
	if len(lines) == 0 || !strings.HasPrefix(lines[0], "Subject: ") {
		return "", email
	}
	subject = strings.TrimSpace(strings.TrimPrefix(lines[0], "Subject: "))
	if len(lines) > 2 {
		body = strings.Join(lines[2:], "\n")
	}
	return subject, body
}

// GenerationServiceImpl implements GenerationService
type GenerationServiceImpl struct {
	provider llm.Provider
	history  GeneratedHistory
	account  string
	logger   *zap.Logger
	now      func() time.Time
}

// NewGenerationService creates a generation service. history may be nil.
func NewGenerationService(provider llm.Provider, history GeneratedHistory, accountEmail string) *GenerationServiceImpl {
	return &GenerationServiceImpl{
		provider: provider,
		history:  history,
		account:  strings.ToLower(strings.TrimSpace(accountEmail)),
		logger:   zap.NewNop(),
		now:      time.Now,
	}
}

// SetLogger sets the logger for debug output
func (s *GenerationServiceImpl) SetLogger(logger *zap.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Generate drafts an email and records it in history
func (s *GenerationServiceImpl) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("%w: AI provider not available", ErrServiceUnavailable)
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" && req.Category != "" {
		var err error
		if prompt, err = BuildPrompt(req.Category, req.Subcategory, req.Context); err != nil {
			return nil, err
		}
	}
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt cannot be empty", ErrInvalidInput)
	}

	start := s.now()
	email, err := s.provider.Generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("generation: provider failed", zap.String("provider", s.provider.Name()), zap.Error(err))
		return nil, fmt.Errorf("failed to generate email: %w", err)
	}
	res := &GenerationResult{
		Prompt:   prompt,
		Email:    email,
		Provider: s.provider.Name(),
		Duration: s.now().Sub(start),
	}
	res.Subject, res.Body = SplitGeneratedEmail(email)

	if s.history != nil && strings.TrimSpace(email) != "" {
		id, err := s.history.Save(ctx, &db.GeneratedEmail{
			AccountEmail: s.account,
			Category:     req.Category,
			Subcategory:  req.Subcategory,
			Prompt:       prompt,
			Content:      email,
			Provider:     res.Provider,
			CreatedAt:    start.Unix(),
		})
		if err != nil {
			// the draft is still usable without history
			s.logger.Warn("generation: history save failed", zap.Error(err))
		} else {
			res.ID = id
		}
	}
	return res, nil
}

// History returns the newest generated drafts for the account
func (s *GenerationServiceImpl) History(ctx context.Context, limit int) ([]*db.GeneratedEmail, error) {
	if s.history == nil {
		return nil, nil
	}
	out, err := s.history.List(ctx, s.account, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list generated emails: %w", err)
	}
	return out, nil
}

// Package chatbot answers client questions from a business's knowledge base
// and keeps a log of every exchange.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store"
)

const Fallback = "I'm not sure about that. Could you provide more details? You can ask about booking, pricing, hours, cancellations, staff or payment methods."

// KnowledgeLookup finds the stored answer for a question, if any.
type KnowledgeLookup interface {
	Match(ctx context.Context, businessID int64, query string) (Match, bool, error)
}

type storeLookup struct {
	store     store.Queries
	threshold float64
}

func NewLookup(q store.Queries, threshold float64) KnowledgeLookup {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &storeLookup{store: q, threshold: threshold}
}

func (l *storeLookup) Match(ctx context.Context, businessID int64, query string) (Match, bool, error) {
	entries, err := l.store.ListKnowledge(ctx, businessID)
	if err != nil {
		return Match{}, false, fmt.Errorf("list knowledge: %w", err)
	}
	m, ok := Best(entries, query, l.threshold)
	return m, ok, nil
}

type Service struct {
	store  store.Store
	lookup KnowledgeLookup
}

func New(s store.Store, lookup KnowledgeLookup) *Service {
	if lookup == nil {
		lookup = NewLookup(s, DefaultThreshold)
	}
	return &Service{store: s, lookup: lookup}
}

type Question struct {
	BusinessID int64  `json:"business_id"`
	SessionID  string `json:"session_id,omitempty"`
	Question   string `json:"question"`
}

type Answer struct {
	SessionID   string  `json:"session_id"`
	Answer      string  `json:"answer"`
	Resolved    bool    `json:"resolved"`
	KnowledgeID int64   `json:"knowledge_id,omitempty"`
	Score       float64 `json:"score,omitempty"`
}

// Ask answers q from the knowledge base, falling back to a generic reply, and
// logs the exchange. clientID is nil for anonymous visitors.
func (s *Service) Ask(ctx context.Context, clientID *int64, q Question) (Answer, error) {
	text := strings.TrimSpace(q.Question)
	if text == "" {
		return Answer{}, model.Validation("question is required")
	}
	if _, err := s.store.GetBusiness(ctx, q.BusinessID); err != nil {
		return Answer{}, lookupError(err, "business %d", q.BusinessID)
	}
	session := strings.TrimSpace(q.SessionID)
	if session == "" {
		session = uuid.NewString()
	}
	m, ok, err := s.lookup.Match(ctx, q.BusinessID, text)
	if err != nil {
		return Answer{}, err
	}
	out := Answer{SessionID: session, Answer: Fallback}
	if ok {
		out.Answer = m.Entry.Answer
		out.Resolved = true
		out.KnowledgeID = m.Entry.ID
		out.Score = m.Score
	}
	entry := model.ChatLog{
		BusinessID: q.BusinessID,
		ClientID:   clientID,
		SessionID:  session,
		Question:   text,
		Response:   out.Answer,
		Resolved:   out.Resolved,
	}
	if err := s.store.InsertChatLog(ctx, &entry); err != nil {
		return Answer{}, fmt.Errorf("insert chat log: %w", err)
	}
	return out, nil
}

type KnowledgeInput struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category,omitempty"`
}

func (s *Service) AddKnowledge(ctx context.Context, actor model.Actor, businessID int64, in KnowledgeInput) (model.KnowledgeEntry, error) {
	if err := s.requireOwner(ctx, actor, businessID); err != nil {
		return model.KnowledgeEntry{}, err
	}
	k := model.KnowledgeEntry{
		BusinessID: businessID,
		Question:   strings.TrimSpace(in.Question),
		Answer:     strings.TrimSpace(in.Answer),
		Category:   strings.TrimSpace(in.Category),
	}
	if k.Question == "" || k.Answer == "" {
		return model.KnowledgeEntry{}, model.Validation("question and answer are required")
	}
	if err := s.store.InsertKnowledge(ctx, &k); err != nil {
		return model.KnowledgeEntry{}, fmt.Errorf("insert knowledge: %w", err)
	}
	return k, nil
}

func (s *Service) ListKnowledge(ctx context.Context, businessID int64) ([]model.KnowledgeEntry, error) {
	list, err := s.store.ListKnowledge(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("list knowledge: %w", err)
	}
	return list, nil
}

// Logs returns the most recent exchanges, newest first.
func (s *Service) Logs(ctx context.Context, actor model.Actor, businessID int64, limit int) ([]model.ChatLog, error) {
	if err := s.requireOwner(ctx, actor, businessID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	list, err := s.store.ListChatLogs(ctx, businessID, limit)
	if err != nil {
		return nil, fmt.Errorf("list chat logs: %w", err)
	}
	return list, nil
}

func (s *Service) requireOwner(ctx context.Context, actor model.Actor, businessID int64) error {
	biz, err := s.store.GetBusiness(ctx, businessID)
	if err != nil {
		return lookupError(err, "business %d", businessID)
	}
	if actor.Role != model.RoleOwner || biz.OwnerID != actor.UserID {
		return model.Forbidden("business %d is managed by its owner only", businessID)
	}
	return nil
}

func lookupError(err error, format string, args ...any) error {
	if errors.Is(err, store.ErrNotFound) {
		return model.NotFound(format+" not found", args...)
	}
	return fmt.Errorf("load "+format+": %w", append(args, err)...)
}

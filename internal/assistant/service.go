package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/meridian-bi/meridian/internal/analytics"
	"github.com/meridian-bi/meridian/internal/shared"
)

const disabledMessage = "The AI assistant is not configured. Set GEMINI_API_KEY to enable it."

const chatSystemPrompt = `You are a business intelligence assistant for a small company.
You answer questions about inventory, sales and collections using the metrics
provided in the context block. Be concise, answer in the language the user
writes in, and never invent figures that are not in the context.`

const analysisSystemPrompt = `You are an inventory analyst. Given the metrics and alerts provided,
return ONLY a JSON object with this exact structure:
{
  "summary": "<two or three sentences on overall inventory health>",
  "risks": ["<specific risk>", ...],
  "recommendations": ["<specific action>", ...],
  "confidence": <number between 0.0 and 1.0>
}`

// RepositoryPort defines conversation persistence.
type RepositoryPort interface {
	CreateConversation(ctx context.Context, companyID, userID int64, title string) (*Conversation, error)
	GetConversation(ctx context.Context, companyID, userID, id int64) (*Conversation, error)
	ListConversations(ctx context.Context, companyID, userID int64) ([]Conversation, error)
	AppendMessage(ctx context.Context, conversationID int64, role, content string) (*Message, error)
	ListMessages(ctx context.Context, conversationID int64) ([]Message, error)
	RecentMessages(ctx context.Context, conversationID int64, limit int) ([]Message, error)
}

// Completer is the LLM surface the service needs.
type Completer interface {
	Enabled() bool
	Complete(ctx context.Context, system string, history []Turn, user string) (string, error)
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

// MetricsProvider supplies the business context embedded in prompts.
type MetricsProvider interface {
	Summary(ctx context.Context, actor *shared.Identity, from, to time.Time) (analytics.KPISummary, error)
	Alerts(ctx context.Context, companyID int64) ([]analytics.Alert, error)
}

// Service handles the AI chat and analysis flows.
type Service struct {
	repo    RepositoryPort
	llm     Completer
	metrics MetricsProvider
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, llm Completer, metrics MetricsProvider) *Service {
	return &Service{repo: repo, llm: llm, metrics: metrics}
}

// ListConversations returns the caller's threads.
func (s *Service) ListConversations(ctx context.Context, actor *shared.Identity) ([]Conversation, error) {
	return s.repo.ListConversations(ctx, actor.CompanyID, actor.UserID)
}

// GetConversation loads a thread with its messages.
func (s *Service) GetConversation(ctx context.Context, actor *shared.Identity, id int64) (*Conversation, []Message, error) {
	conv, err := s.repo.GetConversation(ctx, actor.CompanyID, actor.UserID, id)
	if err != nil {
		return nil, nil, err
	}
	messages, err := s.repo.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, nil, err
	}
	return conv, messages, nil
}

// Chat appends the user turn, calls the model with recent history plus a
// metrics context block, and stores the reply. A zero conversationID opens a
// new thread titled from the first message.
func (s *Service) Chat(ctx context.Context, actor *shared.Identity, conversationID int64, content string) (*Conversation, *Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil, fmt.Errorf("assistant: message content required")
	}

	var conv *Conversation
	var err error
	if conversationID > 0 {
		conv, err = s.repo.GetConversation(ctx, actor.CompanyID, actor.UserID, conversationID)
	} else {
		conv, err = s.repo.CreateConversation(ctx, actor.CompanyID, actor.UserID, titleFrom(content))
	}
	if err != nil {
		return nil, nil, err
	}

	history, err := s.repo.RecentMessages(ctx, conv.ID, historyLimit)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.repo.AppendMessage(ctx, conv.ID, RoleUser, content); err != nil {
		return nil, nil, err
	}

	if !s.llm.Enabled() {
		reply, err := s.repo.AppendMessage(ctx, conv.ID, RoleAssistant, disabledMessage)
		return conv, reply, err
	}

	contextBlock := s.metricsBlock(ctx, actor)
	turns := make([]Turn, 0, len(history))
	for _, m := range history {
		turns = append(turns, Turn{Role: m.Role, Text: m.Content})
	}

	answer, err := s.llm.Complete(ctx, chatSystemPrompt+"\n\n"+contextBlock, turns, content)
	if err != nil {
		return nil, nil, err
	}
	reply, err := s.repo.AppendMessage(ctx, conv.ID, RoleAssistant, answer)
	if err != nil {
		return nil, nil, err
	}
	return conv, reply, nil
}

// AnalyzeInventory runs the structured analysis over current metrics.
func (s *Service) AnalyzeInventory(ctx context.Context, actor *shared.Identity) (*InventoryAnalysis, error) {
	if !s.llm.Enabled() {
		return &InventoryAnalysis{Summary: disabledMessage}, nil
	}

	raw, err := s.llm.CompleteJSON(ctx, analysisSystemPrompt, s.metricsBlock(ctx, actor))
	if err != nil {
		return nil, err
	}
	var analysis InventoryAnalysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return nil, fmt.Errorf("assistant: model reply is not valid JSON: %w", err)
	}
	if analysis.Confidence < 0 {
		analysis.Confidence = 0
	}
	if analysis.Confidence > 1 {
		analysis.Confidence = 1
	}
	return &analysis, nil
}

// metricsBlock renders the KPI and alert snapshot injected into prompts.
// Failures degrade to a shorter block rather than failing the chat.
func (s *Service) metricsBlock(ctx context.Context, actor *shared.Identity) string {
	var b strings.Builder
	b.WriteString("Current business metrics:\n")

	summary, err := s.metrics.Summary(ctx, actor, time.Time{}, time.Time{})
	if err == nil {
		fmt.Fprintf(&b, "- Inventory value: %.2f across %d products (%.0f units)\n", summary.InventoryValue, summary.ProductCount, summary.InventoryUnits)
		fmt.Fprintf(&b, "- Revenue last 30 days: %.2f over %d sales (avg ticket %.2f)\n", summary.Revenue, summary.SaleCount, summary.AvgTicket)
		fmt.Fprintf(&b, "- Gross margin: %.2f, inventory turnover: %.2f\n", summary.GrossMargin, summary.InventoryTurnover)
		fmt.Fprintf(&b, "- Outstanding receivables: %.2f\n", summary.Outstanding)
		fmt.Fprintf(&b, "- Out of stock: %d products, low stock: %d products\n", summary.OutOfStockProducts, summary.LowStockProducts)
	}

	alerts, err := s.metrics.Alerts(ctx, actor.CompanyID)
	if err == nil && len(alerts) > 0 {
		b.WriteString("Active inventory alerts:\n")
		for i, a := range alerts {
			if i >= 15 {
				fmt.Fprintf(&b, "- and %d more\n", len(alerts)-i)
				break
			}
			fmt.Fprintf(&b, "- [%s] %s\n", a.Type, a.Message)
		}
	}
	return b.String()
}

func titleFrom(content string) string {
	runes := []rune(content)
	if len(runes) > 60 {
		return string(runes[:60])
	}
	return content
}

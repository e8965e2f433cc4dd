package history

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/diogo/chatai/internal/models"
)

// ExportFormat represents the format for exporting conversations
type ExportFormat string

const (
	ExportFormatMarkdown ExportFormat = "markdown"
	ExportFormatJSON     ExportFormat = "json"
)

// ParseExportFormat accepts "markdown", "md" and "json"
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return ExportFormatMarkdown, nil
	case "json":
		return ExportFormatJSON, nil
	default:
		return "", fmt.Errorf("unknown export format %q (use markdown or json)", s)
	}
}

// Export renders conv in the given format
func Export(conv *Conversation, format ExportFormat) ([]byte, error) {
	switch format {
	case ExportFormatJSON:
		return ExportToJSON(conv)
	case ExportFormatMarkdown:
		return []byte(ExportToMarkdown(conv)), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// ExportToMarkdown exports a conversation to Markdown format
func ExportToMarkdown(conv *Conversation) string {
	var sb strings.Builder

	sb.WriteString("# ")
	sb.WriteString(conv.Title)
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "**Chat:** %s\n", conv.ChatName)
	if conv.Model != "" {
		fmt.Fprintf(&sb, "**Model:** %s\n", conv.Model)
	}
	fmt.Fprintf(&sb, "**Created:** %s\n", conv.CreatedAt.Format(time.DateTime))
	fmt.Fprintf(&sb, "**Updated:** %s\n", conv.UpdatedAt.Format(time.DateTime))
	fmt.Fprintf(&sb, "**Messages:** %d\n\n---\n\n", len(conv.Messages))

	for i, msg := range conv.Messages {
		role := "User"
		if msg.Role == models.RoleAssistant {
			role = "Assistant"
		}

		sb.WriteString("## ")
		sb.WriteString(role)
		if !msg.CreatedAt.IsZero() {
			sb.WriteString(" (")
			sb.WriteString(msg.CreatedAt.Format(time.TimeOnly))
			sb.WriteString(")")
		}
		sb.WriteString("\n\n")

		sb.WriteString(msg.Content)
		sb.WriteString("\n")

		if i < len(conv.Messages)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return sb.String()
}

// ExportToJSON exports a conversation to indented JSON
func ExportToJSON(conv *Conversation) ([]byte, error) {
	type exportMessage struct {
		Sequence  int       `json:"sequence"`
		Role      string    `json:"role"`
		Content   string    `json:"content"`
		CreatedAt time.Time `json:"created_at,omitzero"`
	}

	type exportConversation struct {
		ID        string          `json:"id"`
		ChatName  string          `json:"chat_name"`
		Title     string          `json:"title"`
		Model     string          `json:"model,omitempty"`
		CreatedAt time.Time       `json:"created_at"`
		UpdatedAt time.Time       `json:"updated_at"`
		Messages  []exportMessage `json:"messages"`
	}

	out := exportConversation{
		ID:        conv.ID,
		ChatName:  conv.ChatName,
		Title:     conv.Title,
		Model:     conv.Model,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
		Messages:  make([]exportMessage, len(conv.Messages)),
	}
	for i, msg := range conv.Messages {
		out.Messages[i] = exportMessage{
			Sequence:  msg.Sequence,
			Role:      string(msg.Role),
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
		}
	}

	return json.MarshalIndent(out, "", "  ")
}

// SearchResult represents a search match in conversations
type SearchResult struct {
	Conversation *Conversation
	MatchSnippet string // Snippet where the term was found
	MatchField   string // "title" or "content"
	MatchIndex   int    // Message index if MatchField is "content", -1 for title
}

// Search looks for query in conversation titles and optionally content
func Search(store Backend, query string, searchContent bool) ([]*SearchResult, error) {
	conversations, err := store.List()
	if err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(query)
	var results []*SearchResult

	for _, conv := range conversations {
		if strings.Contains(strings.ToLower(conv.Title), queryLower) {
			results = append(results, &SearchResult{
				Conversation: conv,
				MatchSnippet: conv.Title,
				MatchField:   "title",
				MatchIndex:   -1,
			})
			continue
		}

		if !searchContent {
			continue
		}
		for i, msg := range conv.Messages {
			if strings.Contains(strings.ToLower(msg.Content), queryLower) {
				results = append(results, &SearchResult{
					Conversation: conv,
					MatchSnippet: extractSnippet(msg.Content, query, 100),
					MatchField:   "content",
					MatchIndex:   i,
				})
				break // one match per conversation
			}
		}
	}

	return results, nil
}

// extractSnippet extracts a snippet around the first occurrence of query
func extractSnippet(content, query string, maxLen int) string {
	idx := strings.Index(strings.ToLower(content), strings.ToLower(query))
	if idx == -1 {
		if len(content) > maxLen {
			return content[:maxLen] + "..."
		}
		return content
	}

	half := maxLen / 2
	start := idx - half
	end := idx + len(query) + half

	if start < 0 {
		start = 0
		end = maxLen
	}
	if end > len(content) {
		end = len(content)
		start = max(end-maxLen, 0)
	}

	snippet := content[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(content) {
		snippet += "..."
	}

	return snippet
}

// FormatRelativeTime formats a time as "5 min ago", "yesterday" and so on
func FormatRelativeTime(t time.Time) string {
	diff := time.Since(t)

	plural := func(n int, unit string) string {
		if n == 1 {
			return fmt.Sprintf("1 %s ago", unit)
		}
		return fmt.Sprintf("%d %ss ago", n, unit)
	}

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "min")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 48*time.Hour:
		return "yesterday"
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	case diff < 30*24*time.Hour:
		return plural(int(diff.Hours()/24/7), "week")
	default:
		months := int(diff.Hours() / 24 / 30)
		if months < 12 {
			return plural(months, "month")
		}
		return t.Format(time.DateOnly)
	}
}

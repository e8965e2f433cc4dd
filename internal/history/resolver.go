package history

import (
	"fmt"
	"strconv"
	"strings"
)

// Resolver resolves user-friendly references to chat names
type Resolver struct {
	store Backend
}

// NewResolver creates a new alias resolver
func NewResolver(store Backend) *Resolver {
	return &Resolver{store: store}
}

// Resolve converts a user-friendly reference to a chat name
//
// Supported references:
//   - "@last" - most recently updated conversation
//   - "@first" - least recently updated conversation
//   - "1", "2", "3" - by index (1-based, from most recent)
//   - "name" - exact chat name
//   - "substring" - match on title (error if multiple matches)
func (r *Resolver) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)

	if ref == "" {
		return "", fmt.Errorf("empty reference")
	}

	conversations, err := r.store.List()
	if err != nil {
		return "", fmt.Errorf("failed to list conversations: %w", err)
	}

	if len(conversations) == 0 {
		return "", fmt.Errorf("%w: history is empty", ErrNotFound)
	}

	switch strings.ToLower(ref) {
	case "@last":
		// List is sorted by UpdatedAt descending
		return conversations[0].ChatName, nil
	case "@first":
		return conversations[len(conversations)-1].ChatName, nil
	}

	if index, err := strconv.Atoi(ref); err == nil {
		if index < 1 || index > len(conversations) {
			return "", fmt.Errorf("index %d out of range (1-%d)", index, len(conversations))
		}
		return conversations[index-1].ChatName, nil
	}

	for _, conv := range conversations {
		if conv.ChatName == ref {
			return conv.ChatName, nil
		}
	}

	refLower := strings.ToLower(ref)
	var matches []*Conversation
	for _, conv := range conversations {
		if strings.Contains(strings.ToLower(conv.Title), refLower) {
			matches = append(matches, conv)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: nothing matches '%s'", ErrNotFound, ref)
	case 1:
		return matches[0].ChatName, nil
	default:
		var names []string
		for _, m := range matches {
			names = append(names, fmt.Sprintf("%s ('%s')", m.ChatName, m.Title))
		}
		return "", fmt.Errorf("multiple conversations match '%s': %s. Use the chat name or be more specific",
			ref, strings.Join(names, ", "))
	}
}

// ResolveWithInfo resolves a reference and returns the conversation
func (r *Resolver) ResolveWithInfo(ref string) (*Conversation, error) {
	name, err := r.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return r.store.Get(name)
}

// ListAliases returns information about supported aliases
func ListAliases() string {
	return `Supported references:
  @last          Most recently updated conversation
  @first         Least recently updated conversation
  1, 2, 3        By index (1-based, from most recent)
  name           Chat name
  "text"         Search by title substring`
}

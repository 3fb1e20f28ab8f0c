package domain

import (
	"fmt"
	"strings"
	"time"
)

// Category groups related requests and defines who must approve them.
// Keywords is a comma-separated list used by the classifier; Approvers is
// the encoded approval chain spec.
type Category struct {
	ID          string
	Name        string
	Description string
	Keywords    string
	Approvers   string
	CreatedAt   time.Time
}

// KeywordList splits the comma-separated keywords, trimmed and lowercased.
// Empty entries are dropped.
func (c *Category) KeywordList() []string {
	parts := strings.Split(c.Keywords, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		keyword := strings.ToLower(strings.TrimSpace(part))
		if keyword != "" {
			result = append(result, keyword)
		}
	}
	return result
}

// Approver is one decoded entry of a category's approval chain.
type Approver struct {
	Email       string
	Role        string
	DisplayName string
}

// DecodeApproverChain parses an encoded approver chain:
//
//	entry := email[':'role[':'name]]
//	chain := entry ('|' entry)*
//
// Entry order defines the 1-indexed approval levels. Whitespace around
// fields is ignored; an entry with an empty email is an error. An empty
// spec yields an empty chain (the category needs no approval).
func DecodeApproverChain(spec string) ([]Approver, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	entries := strings.Split(spec, "|")
	chain := make([]Approver, 0, len(entries))
	for i, entry := range entries {
		fields := strings.SplitN(entry, ":", 3)
		approver := Approver{Email: strings.TrimSpace(fields[0])}
		if approver.Email == "" {
			return nil, fmt.Errorf("approver chain entry %d: email is required", i+1)
		}
		if len(fields) > 1 {
			approver.Role = strings.TrimSpace(fields[1])
		}
		if len(fields) > 2 {
			approver.DisplayName = strings.TrimSpace(fields[2])
		}
		chain = append(chain, approver)
	}
	return chain, nil
}

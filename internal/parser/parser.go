// Package parser recognizes structured work messages of the form
//
//	CODE +380XXXXXXXXX | free-form comment
//
// The set of recognized codes is not fixed: the pattern is rebuilt from the
// department's live category list on every parse, so taxonomy changes take
// effect immediately.
package parser

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Houeta/crm-dispatch-bot/internal/models"
	"github.com/Houeta/crm-dispatch-bot/internal/phone"
)

var (
	// ErrNoCategories is returned when the department has no categories
	// defined, which makes every message unrecognizable.
	ErrNoCategories = errors.New("no categories defined for this department")
	// ErrNoMatch is returned when the text does not match the work-message
	// grammar. There are no partial results.
	ErrNoMatch = errors.New("message does not match the work-message format")
)

// CategoryLister provides the live category vocabulary for a department.
// Satisfied by registry.Registry.
type CategoryLister interface {
	List(ctx context.Context, dep models.Department, useCache bool) ([]models.Category, error)
}

// Message is a successfully parsed work message.
type Message struct {
	Code    string // upper-cased category code
	Phone   string // canonical +380... form
	Comment string // trimmed free-form comment, may span multiple lines
}

// Parser turns raw chat text into work messages using the department's
// current category vocabulary.
type Parser struct {
	categories CategoryLister
}

// NewParser creates a Parser over the given category source.
func NewParser(categories CategoryLister) *Parser {
	return &Parser{categories: categories}
}

// Parse matches the whitespace-trimmed text against the department's
// grammar: a known code (case-insensitive), whitespace, a phone token,
// a "|" separator and the remainder of the input as comment. The comment
// capture is greedy to end-of-input and may contain newlines.
func (p *Parser) Parse(ctx context.Context, dep models.Department, text string) (Message, error) {
	categories, err := p.categories.List(ctx, dep, true)
	if err != nil {
		return Message{}, fmt.Errorf("failed to list categories: %w", err)
	}
	if len(categories) == 0 {
		return Message{}, ErrNoCategories
	}

	codes := make([]string, 0, len(categories))
	for _, cat := range categories {
		codes = append(codes, regexp.QuoteMeta(cat.Code))
	}

	pattern, err := regexp.Compile(`(?is)^(` + strings.Join(codes, "|") + `)\s+(\+?[0-9]+)\s*\|\s*(.+)`)
	if err != nil {
		return Message{}, fmt.Errorf("failed to build grammar pattern: %w", err)
	}

	match := pattern.FindStringSubmatch(strings.TrimSpace(text))
	if match == nil {
		return Message{}, ErrNoMatch
	}

	return Message{
		Code:    strings.ToUpper(match[1]),
		Phone:   phone.Normalize(match[2]),
		Comment: strings.TrimSpace(match[3]),
	}, nil
}

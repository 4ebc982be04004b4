package services

import (
	"unicode/utf8"

	"github.com/reserca-labs/reserca-cli/internal/core/domain"
	"github.com/reserca-labs/reserca-cli/internal/logger"
)

// DefaultContextBudget is the assembled-context size budget used when
// callers pass 0 or less.
const DefaultContextBudget domain.SizeBudget = 8192

// AssembleContext walks ranked evidence in order, accumulating items while
// total size stays within budget. Items are never split: the first item
// that would exceed the budget, and everything after it, is dropped.
//
// If not even the top-ranked item fits, its body is truncated to fit with
// provenance preserved. When even an empty body cannot fit (title longer
// than the whole budget), the context is returned empty rather than over
// budget.
func AssembleContext(items []domain.EvidenceItem, budget domain.SizeBudget) domain.AssembledContext {
	if budget <= 0 {
		budget = DefaultContextBudget
	}

	assembled := domain.AssembledContext{Budget: budget}

	for _, item := range items {
		if assembled.Size+item.Size() > int(budget) {
			break
		}
		assembled.Items = append(assembled.Items, domain.ContextItem{Evidence: item})
		assembled.Size += item.Size()
	}

	// Single-oversized-item case: include a truncated copy of the best item
	// rather than returning nothing.
	if len(assembled.Items) == 0 && len(items) > 0 {
		top := items[0]
		allowed := int(budget) - len(top.Title)
		if allowed > 0 {
			top.Body = truncateUTF8(top.Body, allowed)
			assembled.Items = append(assembled.Items, domain.ContextItem{
				Evidence:  top,
				Truncated: true,
			})
			assembled.Size = top.Size()
			logger.Warn("Assemble: truncated oversized top item to %d bytes", assembled.Size)
		}
	}

	assembled.Dropped = len(items) - len(assembled.Items)
	logger.Debug("Assemble: %d items (%d/%d bytes), %d dropped",
		len(assembled.Items), assembled.Size, budget, assembled.Dropped)
	return assembled
}

// truncateUTF8 cuts s to at most max bytes without splitting a rune.
func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}

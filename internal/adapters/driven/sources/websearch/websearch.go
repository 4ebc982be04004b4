// Package websearch provides the fallback source adapter, backed by
// the DuckDuckGo Instant Answer API. It is only consulted when the
// primary sources return too few results.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/reserca-labs/reserca-cli/internal/core/domain"
	"github.com/reserca-labs/reserca-cli/internal/core/ports/driven"
)

var _ driven.SourceAdapter = (*Adapter)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.duckduckgo.com"
	DefaultTimeout = 10 * time.Second

	// DefaultRequestsPerSecond keeps the keyless API happy.
	DefaultRequestsPerSecond = 1
)

// Config holds configuration for the web search adapter.
type Config struct {
	// BaseURL is the instant answer API URL.
	BaseURL string

	// Timeout is the per-request timeout (default: 10s).
	Timeout time.Duration

	// RequestsPerSecond throttles outgoing requests (default: 1).
	RequestsPerSecond float64
}

// Adapter queries the instant answer API and normalises abstract and
// related topics into evidence.
type Adapter struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

type instantAnswer struct {
	Heading       string         `json:"Heading"`
	AbstractText  string         `json:"AbstractText"`
	AbstractURL   string         `json:"AbstractURL"`
	RelatedTopics []relatedTopic `json:"RelatedTopics"`
}

type relatedTopic struct {
	Text     string `json:"Text"`
	FirstURL string `json:"FirstURL"`
	// Category groups nest their topics one level deeper.
	Topics []relatedTopic `json:"Topics"`
}

// NewAdapter creates a web search source adapter.
func NewAdapter(cfg Config) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}

	return &Adapter{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

// Kind identifies this adapter as the web search fallback.
func (a *Adapter) Kind() domain.SourceKind {
	return domain.SourceWebSearch
}

// Name returns the adapter name for reports and logs.
func (a *Adapter) Name() string {
	return "duckduckgo"
}

// Search queries the instant answer API with the raw query text when
// present, falling back to the joined keyword terms.
func (a *Adapter) Search(ctx context.Context, keywords domain.KeywordSet, limit int) ([]domain.EvidenceItem, domain.AdapterStatus) {
	if keywords.IsEmpty() {
		return nil, domain.StatusOkResult()
	}
	if limit <= 0 {
		limit = 10
	}

	query := strings.TrimSpace(keywords.Raw)
	if query == "" {
		query = keywords.Joined()
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")

	var answer instantAnswer
	if err := a.getJSON(ctx, a.baseURL+"/?"+params.Encode(), &answer); err != nil {
		return nil, domain.StatusUnavailableFor(err.Error())
	}

	now := time.Now()
	var evidence []domain.EvidenceItem

	if answer.AbstractText != "" {
		title := answer.Heading
		if title == "" {
			title = query
		}
		evidence = append(evidence, domain.EvidenceItem{
			Identity:    domain.ContentIdentity(title, answer.AbstractText),
			Source:      domain.SourceWebSearch,
			SourceName:  a.Name(),
			Title:       title,
			Body:        answer.AbstractText,
			Reference:   answer.AbstractURL,
			NativeScore: 1.0,
			RetrievedAt: now,
		})
	}

	for _, topic := range flatten(answer.RelatedTopics) {
		if len(evidence) >= limit {
			break
		}
		title, body := splitTopicText(topic.Text)
		if title == "" {
			continue
		}

		// Related topics rank below the abstract and decay in order.
		native := 0.8 - float64(len(evidence))*0.05
		if native < 0.1 {
			native = 0.1
		}

		evidence = append(evidence, domain.EvidenceItem{
			Identity:    domain.ContentIdentity(title, body),
			Source:      domain.SourceWebSearch,
			SourceName:  a.Name(),
			Title:       title,
			Body:        body,
			Reference:   topic.FirstURL,
			NativeScore: native,
			RetrievedAt: now,
		})
	}

	return evidence, domain.StatusOkResult()
}

// getJSON fetches a URL with throttling and a single retry on
// transient failure.
func (a *Adapter) getJSON(ctx context.Context, rawURL string, out any) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := a.limiter.Wait(ctx); err != nil {
			return err
		}

		body, retryable, err := a.doGet(ctx, rawURL)
		if err == nil {
			return json.Unmarshal(body, out)
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return lastErr
}

func (a *Adapter) doGet(ctx context.Context, rawURL string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("websearch returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("websearch returned status %d", resp.StatusCode)
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}
	return body, false, nil
}

// flatten expands category groups into a flat topic list, preserving
// API order.
func flatten(topics []relatedTopic) []relatedTopic {
	var flat []relatedTopic
	for _, t := range topics {
		if len(t.Topics) > 0 {
			flat = append(flat, flatten(t.Topics)...)
			continue
		}
		if t.Text != "" {
			flat = append(flat, t)
		}
	}
	return flat
}

// splitTopicText divides a topic's text into a title and body. The API
// formats topics as "Title - description"; topics without a separator
// use the whole text as the title.
func splitTopicText(text string) (title, body string) {
	if idx := strings.Index(text, " - "); idx > 0 {
		return strings.TrimSpace(text[:idx]), strings.TrimSpace(text[idx+3:])
	}
	return strings.TrimSpace(text), ""
}

// Package crossref provides a source adapter for the Crossref works
// API, returning scholarly literature evidence. The API is public and
// keyless; supplying a mailto address joins the polite pool.
package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/reserca-labs/reserca-cli/internal/core/domain"
	"github.com/reserca-labs/reserca-cli/internal/core/ports/driven"
)

var _ driven.SourceAdapter = (*Adapter)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.crossref.org"
	DefaultTimeout = 15 * time.Second

	// DefaultRequestsPerSecond stays well under Crossref's polite
	// pool guidance.
	DefaultRequestsPerSecond = 2
)

// Config holds configuration for the Crossref adapter.
type Config struct {
	// BaseURL is the API base URL (default: https://api.crossref.org).
	BaseURL string

	// Mailto is included in requests for the Crossref polite pool.
	Mailto string

	// Timeout is the per-request timeout (default: 15s).
	Timeout time.Duration

	// RequestsPerSecond throttles outgoing requests (default: 2).
	RequestsPerSecond float64
}

// Adapter searches Crossref works and normalises them into evidence.
type Adapter struct {
	client  *http.Client
	baseURL string
	mailto  string
	limiter *rate.Limiter
}

type worksResponse struct {
	Message struct {
		Items []workItem `json:"items"`
	} `json:"message"`
}

type workItem struct {
	DOI            string     `json:"DOI"`
	URL            string     `json:"URL"`
	Title          []string   `json:"title"`
	Abstract       string     `json:"abstract"`
	ContainerTitle []string   `json:"container-title"`
	Score          float64    `json:"score"`
	Author         []struct {
		Given  string `json:"given"`
		Family string `json:"family"`
	} `json:"author"`
}

// NewAdapter creates a Crossref source adapter.
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
		mailto:  cfg.Mailto,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

// Kind identifies this adapter as a literature source.
func (a *Adapter) Kind() domain.SourceKind {
	return domain.SourceLiterature
}

// Name returns the adapter name for reports and logs.
func (a *Adapter) Name() string {
	return "crossref"
}

// Search queries the works endpoint with the keyword set. Zero hits is
// a successful empty result, not a failure.
func (a *Adapter) Search(ctx context.Context, keywords domain.KeywordSet, limit int) ([]domain.EvidenceItem, domain.AdapterStatus) {
	if keywords.IsEmpty() {
		return nil, domain.StatusOkResult()
	}
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{}
	params.Set("query", keywords.Joined())
	params.Set("rows", strconv.Itoa(limit))
	params.Set("select", "DOI,URL,title,abstract,container-title,score,author")
	if a.mailto != "" {
		params.Set("mailto", a.mailto)
	}

	var resp worksResponse
	if err := a.getJSON(ctx, a.baseURL+"/works?"+params.Encode(), &resp); err != nil {
		return nil, domain.StatusUnavailableFor(err.Error())
	}

	items := resp.Message.Items
	if len(items) == 0 {
		return nil, domain.StatusOkResult()
	}

	// Crossref relevance scores are unbounded, so normalise against
	// the best hit in this result set.
	topScore := items[0].Score
	for _, it := range items {
		if it.Score > topScore {
			topScore = it.Score
		}
	}

	now := time.Now()
	evidence := make([]domain.EvidenceItem, 0, len(items))
	for _, it := range items {
		title := ""
		if len(it.Title) > 0 {
			title = it.Title[0]
		}
		if title == "" {
			continue
		}

		native := 1.0
		if topScore > 0 {
			native = it.Score / topScore
		}

		evidence = append(evidence, domain.EvidenceItem{
			Identity:    domain.ContentIdentity(title, a.body(it)),
			Source:      domain.SourceLiterature,
			SourceName:  a.Name(),
			Title:       title,
			Body:        a.body(it),
			Reference:   a.reference(it),
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
	req.Header.Set("User-Agent", userAgent(a.mailto))

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("crossref returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("crossref returned status %d", resp.StatusCode)
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}
	return body, false, nil
}

var jatsTag = regexp.MustCompile(`<[^>]+>`)

// body builds a snippet from the abstract, stripping the JATS XML
// markup Crossref embeds. Falls back to venue and authors when no
// abstract is deposited.
func (a *Adapter) body(it workItem) string {
	if it.Abstract != "" {
		text := jatsTag.ReplaceAllString(it.Abstract, " ")
		return strings.Join(strings.Fields(text), " ")
	}

	var parts []string
	if len(it.ContainerTitle) > 0 && it.ContainerTitle[0] != "" {
		parts = append(parts, it.ContainerTitle[0])
	}
	var authors []string
	for _, au := range it.Author {
		name := strings.TrimSpace(au.Given + " " + au.Family)
		if name != "" {
			authors = append(authors, name)
		}
	}
	if len(authors) > 0 {
		parts = append(parts, strings.Join(authors, ", "))
	}
	return strings.Join(parts, ". ")
}

func (a *Adapter) reference(it workItem) string {
	if it.DOI != "" {
		return "https://doi.org/" + it.DOI
	}
	return it.URL
}

func userAgent(mailto string) string {
	if mailto != "" {
		return "reserca-cli (mailto:" + mailto + ")"
	}
	return "reserca-cli"
}

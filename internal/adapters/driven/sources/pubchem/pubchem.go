// Package pubchem provides a source adapter for the PubChem PUG REST
// API, returning compound property evidence for chemical terms. The
// API is public and keyless but limits clients to 5 requests per
// second.
package pubchem

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
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
	DefaultBaseURL = "https://pubchem.ncbi.nlm.nih.gov/rest/pug"
	DefaultTimeout = 15 * time.Second

	// DefaultRequestsPerSecond matches PubChem's published limit.
	DefaultRequestsPerSecond = 5

	// maxTermLookups caps how many keyword terms are tried per
	// search. Each term costs one API call.
	maxTermLookups = 4
)

// Config holds configuration for the PubChem adapter.
type Config struct {
	// BaseURL is the PUG REST base URL.
	BaseURL string

	// Timeout is the per-request timeout (default: 15s).
	Timeout time.Duration

	// RequestsPerSecond throttles outgoing requests (default: 5).
	RequestsPerSecond float64
}

// Adapter looks up keyword terms as compound names and normalises the
// matched compounds into evidence.
type Adapter struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

type propertyResponse struct {
	PropertyTable struct {
		Properties []compoundProperty `json:"Properties"`
	} `json:"PropertyTable"`
}

type compoundProperty struct {
	CID              int    `json:"CID"`
	Title            string `json:"Title"`
	MolecularFormula string `json:"MolecularFormula"`
	MolecularWeight  string `json:"MolecularWeight"`
	CanonicalSMILES  string `json:"CanonicalSMILES"`
	IUPACName        string `json:"IUPACName"`
}

// NewAdapter creates a PubChem source adapter.
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

// Kind identifies this adapter as a chemical data source.
func (a *Adapter) Kind() domain.SourceKind {
	return domain.SourceChemical
}

// Name returns the adapter name for reports and logs.
func (a *Adapter) Name() string {
	return "pubchem"
}

// Search tries each keyword term as a compound name lookup until the
// limit is reached. Terms that match nothing are skipped; a search
// where no term resolves is still a successful empty result. The
// adapter only reports unavailable when the API itself fails.
func (a *Adapter) Search(ctx context.Context, keywords domain.KeywordSet, limit int) ([]domain.EvidenceItem, domain.AdapterStatus) {
	if keywords.IsEmpty() {
		return nil, domain.StatusOkResult()
	}
	if limit <= 0 {
		limit = 10
	}

	terms := keywords.Terms()
	if len(terms) > maxTermLookups {
		terms = terms[:maxTermLookups]
	}

	now := time.Now()
	seen := make(map[int]bool)
	var evidence []domain.EvidenceItem
	var lastErr error
	failures := 0

	for _, term := range terms {
		if len(evidence) >= limit {
			break
		}

		props, err := a.lookupByName(ctx, term)
		if err != nil {
			if ctx.Err() != nil {
				return nil, domain.StatusUnavailableFor(ctx.Err().Error())
			}
			failures++
			lastErr = err
			continue
		}

		for _, p := range props {
			if len(evidence) >= limit {
				break
			}
			if p.Title == "" || seen[p.CID] {
				continue
			}
			seen[p.CID] = true

			// Rank decay within the result set; PubChem itself
			// reports no relevance score.
			native := 1.0 - float64(len(evidence))*0.05
			if native < 0.1 {
				native = 0.1
			}

			body := a.body(p)
			evidence = append(evidence, domain.EvidenceItem{
				Identity:    domain.ContentIdentity(p.Title, body),
				Source:      domain.SourceChemical,
				SourceName:  a.Name(),
				Title:       p.Title,
				Body:        body,
				Reference:   fmt.Sprintf("https://pubchem.ncbi.nlm.nih.gov/compound/%d", p.CID),
				NativeScore: native,
				RetrievedAt: now,
			})
		}
	}

	if failures == len(terms) && lastErr != nil {
		return nil, domain.StatusUnavailableFor(lastErr.Error())
	}
	if failures > 0 {
		return evidence, domain.StatusPartial(fmt.Sprintf("%d of %d term lookups failed", failures, len(terms)))
	}
	return evidence, domain.StatusOkResult()
}

// lookupByName resolves a compound name to its properties. A 404 means
// the name matched nothing and returns an empty slice, not an error.
// Transient failures are retried once.
func (a *Adapter) lookupByName(ctx context.Context, name string) ([]compoundProperty, error) {
	path := fmt.Sprintf("%s/compound/name/%s/property/Title,MolecularFormula,MolecularWeight,CanonicalSMILES,IUPACName/JSON",
		a.baseURL, url.PathEscape(name))

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		props, retryable, err := a.doLookup(ctx, path)
		if err == nil {
			return props, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, lastErr
}

func (a *Adapter) doLookup(ctx context.Context, rawURL string) (props []compoundProperty, retryable bool, err error) {
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

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("pubchem returned status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("pubchem returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}

	var propResp propertyResponse
	if err := json.Unmarshal(body, &propResp); err != nil {
		return nil, false, fmt.Errorf("decode response: %w", err)
	}
	return propResp.PropertyTable.Properties, false, nil
}

func (a *Adapter) body(p compoundProperty) string {
	var parts []string
	if p.IUPACName != "" {
		parts = append(parts, "IUPAC name: "+p.IUPACName)
	}
	if p.MolecularFormula != "" {
		parts = append(parts, "Molecular formula: "+p.MolecularFormula)
	}
	if p.MolecularWeight != "" {
		parts = append(parts, "Molecular weight: "+p.MolecularWeight)
	}
	if p.CanonicalSMILES != "" {
		parts = append(parts, "SMILES: "+p.CanonicalSMILES)
	}
	if len(parts) == 0 {
		return "PubChem CID " + strconv.Itoa(p.CID)
	}
	return strings.Join(parts, ". ")
}

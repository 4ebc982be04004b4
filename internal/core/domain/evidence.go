package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"
)

// SourceKind identifies the class of source an EvidenceItem came from.
// It drives priority weighting during deduplication and ranking.
type SourceKind string

// Available source kinds.
const (
	// SourceLocal is the local corpus index over ingested documents.
	SourceLocal SourceKind = "local"

	// SourceLiterature is the scientific literature database adapter.
	SourceLiterature SourceKind = "literature"

	// SourceChemical is the chemical compound database adapter.
	SourceChemical SourceKind = "chemical"

	// SourceWebSearch is the generic web-search fallback adapter.
	SourceWebSearch SourceKind = "websearch"
)

// IsValid returns true if the source kind is recognised.
func (k SourceKind) IsValid() bool {
	switch k {
	case SourceLocal, SourceLiterature, SourceChemical, SourceWebSearch:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k SourceKind) String() string {
	return string(k)
}

// EvidenceItem is one normalised retrieved unit with provenance.
// Adapters and the local corpus index produce items; the aggregator
// owns them until they are assembled into context.
type EvidenceItem struct {
	// Identity is the content-derived stable identifier.
	// The same fact surfaced by two sources collapses to one identity.
	Identity string

	// Source is the kind of source that produced the item.
	Source SourceKind

	// SourceName is a display name for attribution
	// (e.g., "Crossref", "PubChem", "local: notes.txt").
	SourceName string

	// Title is the human-readable title of the item.
	Title string

	// Body is the snippet or full text of the evidence.
	Body string

	// Reference is a URL or local file reference for attribution.
	Reference string

	// Score is the effective relevance in [0,1] after source-priority
	// weighting. Higher is better.
	Score float64

	// NativeScore is the source's own relevance normalised to [0,1],
	// before priority weighting.
	NativeScore float64

	// Seen is true if the metadata registry had already recorded this
	// identity before the current aggregation.
	Seen bool

	// RetrievedAt is when the item was fetched.
	RetrievedAt time.Time
}

// Size returns the size of the item in budget units (bytes of title + body).
func (e EvidenceItem) Size() int {
	return len(e.Title) + len(e.Body)
}

// ContentIdentity derives a stable identity from item content.
// Title and body are case-folded and whitespace-collapsed before hashing,
// so trivially reformatted copies of the same fact share an identity.
func ContentIdentity(title, body string) string {
	normalised := normaliseForIdentity(title) + "\x00" + normaliseForIdentity(body)
	sum := sha256.Sum256([]byte(normalised))
	return hex.EncodeToString(sum[:16])
}

// NormaliseTitle lowercases a title and collapses runs of whitespace and
// punctuation to single spaces. Used for near-duplicate title matching.
func NormaliseTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	space := true
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

func normaliseForIdentity(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

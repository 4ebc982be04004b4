package domain

// StatusCode classifies the outcome of one source within an aggregation.
type StatusCode string

// Available status codes.
const (
	// StatusOk means the source responded fully. Zero results is still Ok.
	StatusOk StatusCode = "ok"

	// StatusPartialOk means the source responded but some results were
	// lost or degraded (e.g., a page of results failed to fetch).
	StatusPartialOk StatusCode = "partial_ok"

	// StatusUnavailable means the source produced nothing usable
	// (network failure, auth failure, or deadline exceeded).
	StatusUnavailable StatusCode = "unavailable"
)

// AdapterStatus is the uniform status every source adapter returns.
// Adapters never surface errors to the aggregator; failures are folded
// into an Unavailable or PartialOk status with a reason.
type AdapterStatus struct {
	// Code is the outcome classification.
	Code StatusCode

	// Reason explains PartialOk or Unavailable. Empty for Ok.
	Reason string
}

// StatusOkResult is the canonical fully-successful status.
func StatusOkResult() AdapterStatus {
	return AdapterStatus{Code: StatusOk}
}

// StatusPartial builds a PartialOk status with a reason.
func StatusPartial(reason string) AdapterStatus {
	return AdapterStatus{Code: StatusPartialOk, Reason: reason}
}

// StatusUnavailableFor builds an Unavailable status with a reason.
func StatusUnavailableFor(reason string) AdapterStatus {
	return AdapterStatus{Code: StatusUnavailable, Reason: reason}
}

// SourceReport records one source's outcome within an aggregation.
type SourceReport struct {
	// Source is the source kind reported on.
	Source SourceKind

	// Status is the adapter's final status.
	Status AdapterStatus

	// Returned is the number of items the source contributed before
	// deduplication.
	Returned int
}

// AggregationReport records per-source outcomes for one aggregation call.
// It is always surfaced to the caller, never swallowed.
type AggregationReport struct {
	// Sources holds one report per consulted source.
	Sources []SourceReport

	// FallbackTriggered is true if the web-search fallback phase ran.
	FallbackTriggered bool

	// TotalItems is the deduplicated item count handed to assembly.
	TotalItems int
}

// TotalFailure returns true if every consulted source was unavailable
// or returned nothing.
func (r AggregationReport) TotalFailure() bool {
	for _, src := range r.Sources {
		if src.Status.Code != StatusUnavailable && src.Returned > 0 {
			return false
		}
	}
	return true
}

// PartialFailure returns true if at least one source failed and at least
// one succeeded.
func (r AggregationReport) PartialFailure() bool {
	var failed, succeeded bool
	for _, src := range r.Sources {
		if src.Status.Code == StatusUnavailable {
			failed = true
		} else {
			succeeded = true
		}
	}
	return failed && succeeded
}

// ReportFor returns the report for a source kind, if present.
func (r AggregationReport) ReportFor(kind SourceKind) (SourceReport, bool) {
	for _, src := range r.Sources {
		if src.Source == kind {
			return src, true
		}
	}
	return SourceReport{}, false
}

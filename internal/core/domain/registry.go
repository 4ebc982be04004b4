package domain

import "time"

// RegistryEntry maps a stable content identity to when and where it was
// first seen. Entries exist purely for deduplication and seen/new tagging;
// they never own content and are never deleted within a process lifetime.
type RegistryEntry struct {
	// Identity is the content-derived identifier.
	Identity string

	// Source is the kind of source that first surfaced the identity.
	Source SourceKind

	// FirstSeen is when the identity was first recorded.
	FirstSeen time.Time
}

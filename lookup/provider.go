package lookup

import "github.com/JonMunkholm/reshape/schema"

// ReferenceProvider supplies reference dataset rows by id. The engine does
// not know or care how reference data was produced (upload, prior import,
// static seed). A nil or empty result means "no reference data available";
// every lookup against that field then fails with a data-unavailable error
// rather than a no-match error.
type ReferenceProvider interface {
	ReferenceRows(referenceFileID string) ([]schema.TableRow, error)
}

// StaticProvider is an in-memory ReferenceProvider keyed by dataset id.
// Suitable for tests and for callers that load reference data themselves.
type StaticProvider map[string][]schema.TableRow

// ReferenceRows returns the rows registered under the id, or nil when the
// dataset is unknown.
func (p StaticProvider) ReferenceRows(referenceFileID string) ([]schema.TableRow, error) {
	return p[referenceFileID], nil
}

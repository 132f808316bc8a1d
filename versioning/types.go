package versioning

import "github.com/google/uuid"

// Constants for versioning operations
const (
	// ModifiedBySystem indicates that a change was recorded by an export
	ModifiedBySystem = "ntdsinspect"
)

// domainNamespace seeds the name based domain ids, so exporting copies of
// the same domain lands on the same domain row.
var domainNamespace = uuid.MustParse("3c0e6f4a-7d1b-5e2a-9b8c-1f4d6a2e8c90")

// Summary counts what one batch did.
type Summary struct {
	Created   int
	Updated   int
	Unchanged int
}

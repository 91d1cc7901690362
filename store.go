package attrschema

import (
	"context"
)

// AttributeSetStore provides attribute set lookup operations.
// Implementations can load sets from files, databases, object storage or
// other sources. A missing set is reported with an error matching
// ErrAttributeSetNotFound.
type AttributeSetStore interface {
	// GetAttributeSet retrieves one attribute set with its ordered definitions.
	GetAttributeSet(ctx context.Context, id int64) (*AttributeSet, error)
	// ListAttributeSets returns every attribute set ordered by name.
	ListAttributeSets(ctx context.Context) ([]*AttributeSet, error)
}

// AttributeSetPublisher stores attribute sets for later lookup.
type AttributeSetPublisher interface {
	PutAttributeSet(ctx context.Context, set *AttributeSet) error
}

// HealthChecker is implemented by stores that can probe their backend.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

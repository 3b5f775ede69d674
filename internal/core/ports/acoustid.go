package ports

import (
	"context"

	"github.com/shoutzor/backend/internal/domain"
)

type Fingerprinter interface {
	Fingerprint(ctx context.Context, filePath string) (domain.Fingerprint, error)
}

// AcoustIDLookup resolves fingerprints to recordings. Lookup returns nil
// without error when nothing matches.
type AcoustIDLookup interface {
	Enabled() bool
	Lookup(ctx context.Context, fp domain.Fingerprint) (*domain.AcoustIDMatch, error)
}

//go:build !windows

package source

import (
	"context"
	"fmt"
)

// LiveRegistry has nothing to enumerate off Windows; the reader reports
// the source as unavailable and the run continues without it.
type LiveRegistry struct{}

func (LiveRegistry) Values(ctx context.Context) ([]RegistryValue, error) {
	return nil, fmt.Errorf("%w: UserAssist registry requires Windows", ErrUnavailable)
}

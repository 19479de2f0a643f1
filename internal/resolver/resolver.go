// Package resolver looks up the display name and reachable push addresses
// for the subject of an event.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lyraio/lyra/internal/store"
	"github.com/lyraio/lyra/internal/types"
	"github.com/lyraio/lyra/internal/util"
)

// DefaultDisplayName is used when the profile is missing or has no name.
const DefaultDisplayName = "User"

// Resolver resolves recipients from a store.Directory.
type Resolver struct {
	dir    store.Directory
	logger *zap.Logger
}

// New creates a Resolver.
func New(dir store.Directory, logger *zap.Logger) *Resolver {
	return &Resolver{
		dir:    dir,
		logger: logger.Named("resolver"),
	}
}

// Resolve runs the profile, guardian and authority lookups concurrently.
// Any lookup failure fails the whole call; partial results are never returned.
// Addresses are filtered to non-empty, de-duplicated values.
func (r *Resolver) Resolve(ctx context.Context, subjectUserID string) (types.Recipients, error) {
	var (
		name        string
		guardians   []string
		authorities []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		profile, err := r.dir.UserProfile(gctx, subjectUserID)
		if errors.Is(err, store.ErrNotFound) {
			name = DefaultDisplayName
			return nil
		}
		if err != nil {
			return fmt.Errorf("lookup user profile: %w", err)
		}
		name = profile.Name
		if name == "" {
			name = DefaultDisplayName
		}
		return nil
	})
	g.Go(func() error {
		addrs, err := r.dir.GuardianAddresses(gctx, subjectUserID)
		if err != nil {
			return fmt.Errorf("lookup guardians: %w", err)
		}
		guardians = util.UniqueNonEmpty(addrs)
		return nil
	})
	g.Go(func() error {
		addrs, err := r.dir.ActiveAuthorityAddresses(gctx)
		if err != nil {
			return fmt.Errorf("lookup authorities: %w", err)
		}
		authorities = util.UniqueNonEmpty(addrs)
		return nil
	})
	if err := g.Wait(); err != nil {
		return types.Recipients{}, err
	}

	r.logger.Debug("Resolved recipients",
		zap.String("user_id", subjectUserID),
		zap.Int("guardians", len(guardians)),
		zap.Int("authorities", len(authorities)),
	)

	return types.Recipients{
		DisplayName: name,
		Guardians:   guardians,
		Authorities: authorities,
	}, nil
}

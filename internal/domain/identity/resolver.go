package identity

import (
	"context"
	"fmt"
)

// Resolver computes access decisions. It is a pure query over the owner set
// and the stored authorization tables; it never mutates state.
type Resolver struct {
	owners map[string]struct{}
	access AccessRepository
	links  LinkRepository
}

// NewResolver creates a resolver with the configured owner identifiers.
func NewResolver(owners []string, access AccessRepository, links LinkRepository) *Resolver {
	set := make(map[string]struct{}, len(owners))
	for _, o := range owners {
		if o != "" {
			set[o] = struct{}{}
		}
	}
	return &Resolver{owners: set, access: access, links: links}
}

// IsOwner reports whether the sender, or any identifier one-hop-linked to it,
// is a configured owner.
func (r *Resolver) IsOwner(ctx context.Context, senderID string) (bool, error) {
	if _, ok := r.owners[senderID]; ok {
		return true, nil
	}
	linked, err := r.links.LinkedIdentifiers(ctx, senderID)
	if err != nil {
		return false, fmt.Errorf("expand linked identifiers: %w", err)
	}
	for _, id := range linked {
		if _, ok := r.owners[id]; ok {
			return true, nil
		}
	}
	return false, nil
}

// IsAuthorized decides access for a sender in a conversation. Owners bypass
// every table. Group authorization is additive: an authorized group waives
// the per-user check for that conversation, and an unauthorized group still
// falls through to it.
func (r *Resolver) IsAuthorized(ctx context.Context, senderID, conversationID string, isGroup bool) (bool, error) {
	owner, err := r.IsOwner(ctx, senderID)
	if err != nil {
		return false, err
	}
	if owner {
		return true, nil
	}

	if isGroup {
		ok, err := r.access.IsGroupAuthorized(ctx, conversationID)
		if err != nil {
			return false, fmt.Errorf("check group authorization: %w", err)
		}
		if ok {
			return true, nil
		}
	}

	ok, err := r.access.IsUserAuthorized(ctx, senderID)
	if err != nil {
		return false, fmt.Errorf("check user authorization: %w", err)
	}
	return ok, nil
}

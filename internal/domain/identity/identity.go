// Package identity resolves sender identifiers to authorization decisions.
// Identifiers are opaque strings supplied by the transport; the linked
// identity relation declares two identifiers to be the same principal.
package identity

import "context"

// AccessRepository stores the standing authorization sets. Membership is
// binary and keyed by the literal identifier; linking two identifiers does
// not copy their table memberships.
type AccessRepository interface {
	IsUserAuthorized(ctx context.Context, identifier string) (bool, error)
	AuthorizeUser(ctx context.Context, identifier string) error
	DeauthorizeUser(ctx context.Context, identifier string) error
	ListUsers(ctx context.Context) ([]string, error)

	IsGroupAuthorized(ctx context.Context, identifier string) (bool, error)
	AuthorizeGroup(ctx context.Context, identifier string) error
	DeauthorizeGroup(ctx context.Context, identifier string) error
	ListGroups(ctx context.Context) ([]string, error)
}

// LinkRepository stores the symmetric linked-identity relation.
type LinkRepository interface {
	Link(ctx context.Context, primary, linked string) error
	Unlink(ctx context.Context, primary, linked string) error
	// LinkedIdentifiers returns the identifier itself plus every
	// identifier directly paired with it. The expansion is one hop, not a
	// transitive closure.
	LinkedIdentifiers(ctx context.Context, identifier string) ([]string, error)
}

// BindingRepository stores the bot's own identifier as observed per
// conversation, used for mention detection. One binding per conversation;
// updates overwrite.
type BindingRepository interface {
	BotIdentifier(ctx context.Context, conversationID string) (string, error)
	SetBotIdentifier(ctx context.Context, conversationID, identifier string) error
}

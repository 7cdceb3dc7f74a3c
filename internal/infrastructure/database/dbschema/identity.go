package dbschema

import "time"

// AuthorizedUser mirrors the authorized_users table. Membership is keyed by
// the literal identifier.
type AuthorizedUser struct {
	Identifier string `gorm:"primaryKey"`
	AddedAt    time.Time
}

func (AuthorizedUser) TableName() string { return "authorized_users" }

// AuthorizedGroup mirrors the authorized_groups table.
type AuthorizedGroup struct {
	Identifier string `gorm:"primaryKey"`
	AddedAt    time.Time
}

func (AuthorizedGroup) TableName() string { return "authorized_groups" }

// LinkedIdentity mirrors the linked_identities table. The pair is stored
// once in the order it was declared; lookups match either column.
type LinkedIdentity struct {
	PrimaryID string `gorm:"column:primary_id;primaryKey"`
	LinkedID  string `gorm:"column:linked_id;primaryKey"`
	AddedAt   time.Time
}

func (LinkedIdentity) TableName() string { return "linked_identities" }

// BotBinding mirrors the bot_bindings table. One row per conversation.
type BotBinding struct {
	ConversationID string `gorm:"column:conversation_id;primaryKey"`
	BotIdentifier  string `gorm:"column:bot_identifier;not null"`
	UpdatedAt      time.Time
}

func (BotBinding) TableName() string { return "bot_bindings" }

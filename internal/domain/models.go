// Package domain defines the persistence models for users, chat rooms,
// messages, and acceptation records. These types are mapped with GORM and
// form the core data layer of the messenger backend.
package domain

import (
	"sort"
	"time"
)

// RoomKeySeparator joins the two participant ids of a room key. Identifiers
// are validated to never contain it, so keys parse unambiguously.
const RoomKeySeparator = "_"

// RoomKey derives the canonical room identifier for an unordered pair of
// user ids. The two ids are sorted lexicographically and joined, so
// RoomKey(a, b) == RoomKey(b, a) for every pair.
//
// Callers must validate the ids first (non-empty, distinct, no separator);
// RoomKey itself is a pure function with no failure mode.
func RoomKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + RoomKeySeparator + pair[1]
}

// User is a minimal directory entry. The messenger only needs existence
// checks before accepting a message, but the row also carries a display
// name for clients.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Username: unique handle, used by clients for display and lookup.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type User struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Username  string    `json:"username"   gorm:"type:varchar(64);not null;uniqueIndex:ux_users_username"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// ChatRoom is the conversation between exactly two users. Its primary key
// is the deterministic RoomKey of the pair, which makes creation naturally
// idempotent: concurrent first-senders converge on the same row and the
// repository resolves the race with an upsert.
//
// A room owns its message ordering implicitly: messages reference the room
// and are listed by (created_at, id). Rooms are created lazily on the first
// message between a pair and never deleted.
type ChatRoom struct {
	ID        string    `json:"id"      gorm:"type:varchar(128);primaryKey"`
	UserA     string    `json:"user_a"  gorm:"type:char(36);not null;index"`
	UserB     string    `json:"user_b"  gorm:"type:char(36);not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for ChatRoom.
func (ChatRoom) TableName() string { return "chat_rooms" }

// ImageKind tags the image payload variant of a message. Exactly one
// variant is authoritative at any time, replacing the ambiguous trio of
// nullable url/base64 columns the wire format historically exposed.
type ImageKind string

const (
	// ImageNone means the message carries no image.
	ImageNone ImageKind = "none"
	// ImageURL means ImageRef is an external image URL.
	ImageURL ImageKind = "url"
	// ImageBlob means ImageRef is an id in the local blob store.
	ImageBlob ImageKind = "blob"
)

// RedactedBody is the sentinel stored in place of a message body when the
// message is edited away. The row stays in the room history as a tombstone.
const RedactedBody = "deleted"

// Message is a single direct message between two users. At least one of
// Body and the image variant is present; the service layer enforces this
// before persistence.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - RoomID: foreign key to the owning chat room, indexed together with
//     CreatedAt so chronological listing is a covered scan.
//   - SenderID / ReceiverID: the participant pair for this message.
//   - Body: optional text content. Redaction replaces it with RedactedBody.
//   - ImageKind / ImageRef: tagged image variant, see ImageKind.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Message struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	RoomID     string    `json:"room_id"     gorm:"type:varchar(128);not null;index:idx_room_msgs,priority:1"`
	SenderID   string    `json:"sender_id"   gorm:"type:char(36);not null;index"`
	ReceiverID string    `json:"receiver_id" gorm:"type:char(36);not null"`
	Body       string    `json:"body"        gorm:"type:text"`
	ImageKind  ImageKind `json:"image_kind"  gorm:"type:varchar(8);not null;default:'none';check:image_kind IN ('none','url','blob')"`
	ImageRef   string    `json:"image_ref,omitempty" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"  gorm:"index:idx_room_msgs,priority:2"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Room is the parent conversation. Messages are cascade-deleted if
	// their room is removed.
	Room ChatRoom `json:"-" gorm:"foreignKey:RoomID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// HasImage reports whether the message carries an image variant.
func (m *Message) HasImage() bool { return m.ImageKind != "" && m.ImageKind != ImageNone }

// Redact tombstones the message in place: the body becomes RedactedBody and
// the image variant is cleared.
func (m *Message) Redact() {
	m.Body = RedactedBody
	m.ImageKind = ImageNone
	m.ImageRef = ""
}

// Acceptation is a lightweight ack record: a target count plus the set of
// users that have accepted it. The count is last-writer-wins; the accepted
// set is monotonic (a vote row is never unset by this workflow).
type Acceptation struct {
	ID        string    `json:"id"    gorm:"type:varchar(128);primaryKey"`
	Count     int       `json:"count" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Acceptation.
func (Acceptation) TableName() string { return "acceptations" }

// AcceptationVote marks one user as having accepted one record. The unique
// index over (acceptation_id, user_id) makes re-accepting a no-op, which is
// what keeps the accepted set monotonic under concurrent updates.
type AcceptationVote struct {
	ID            string    `json:"id"             gorm:"type:char(36);primaryKey"`
	AcceptationID string    `json:"acceptation_id" gorm:"type:varchar(128);not null;index;uniqueIndex:ux_acceptation_user,priority:1"`
	UserID        string    `json:"user_id"        gorm:"type:varchar(64);not null;uniqueIndex:ux_acceptation_user,priority:2"`
	CreatedAt     time.Time `json:"created_at"`

	// Acceptation is the parent record. Votes are cascade-deleted with it.
	Acceptation Acceptation `json:"-" gorm:"foreignKey:AcceptationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for AcceptationVote.
func (AcceptationVote) TableName() string { return "acceptation_votes" }

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FetchLimit caps every list read (owned surveys, other surveys, responses).
// Documents beyond it are silently omitted.
const FetchLimit = 100

// User is a registered account. PassHash never leaves the server.
type User struct {
	Username  string    `json:"username" bson:"username"`
	PassHash  []byte    `json:"-" bson:"password"`
	CreatedAt time.Time `json:"-" bson:"created_at"`
}

// Question is one entry of a survey. Type is an open set (multiple-choice,
// short-text, long-text, yes/no, checkbox, rating, ...) and is not checked
// against Options.
type Question struct {
	Text     string   `json:"text" bson:"text"`
	Type     string   `json:"type" bson:"type"`
	Options  []string `json:"options" bson:"options"`
	Required bool     `json:"required" bson:"required"`
}

// Survey is owned by the username in CreatedBy, which is set once at creation.
type Survey struct {
	ID          string     `json:"_id" bson:"-"`
	Title       string     `json:"title" bson:"title"`
	Description string     `json:"description" bson:"description"`
	Questions   []Question `json:"questions" bson:"questions"`
	CreatedBy   string     `json:"createdBy" bson:"createdBy"`
	CreatedAt   time.Time  `json:"created_at,omitempty" bson:"created_at"`
}

// Response is an append-only answer submission. SurveyID is not a foreign key:
// it may reference a survey that never existed or was deleted.
type Response struct {
	ID          string         `json:"_id" bson:"-"`
	SurveyID    string         `json:"survey_id" bson:"survey_id"`
	Answers     map[string]any `json:"answers" bson:"answers"`
	RespondedBy string         `json:"respondedBy" bson:"respondedBy"`
	SubmittedAt time.Time      `json:"submitted_at,omitempty" bson:"submitted_at"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is one message of a user's support conversation.
type ChatTurn struct {
	Role    string `json:"role" bson:"role"`
	Content string `json:"content" bson:"content"`
}

// NewID returns a fresh document id in the store's native ObjectID hex form.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// ParseID converts a wire id to an ObjectID. Callers treat ok == false exactly
// like a lookup miss.
func ParseID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

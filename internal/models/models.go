package models

import "time"

// Roles permitted in a conversation message.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single conversational message. Ordering within a
// conversation is chronological and significant.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ValidRole reports whether role is one of the fixed conversation roles.
func ValidRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Subscriber status values.
const (
	StatusActive       = "active"
	StatusUnsubscribed = "unsubscribed"
)

// Subscriber is one newsletter subscription record, keyed by email.
type Subscriber struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	Status       string    `json:"status"`
	IPAddress    string    `json:"-"`
	SubscribedAt time.Time `json:"subscribed_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ContactMessage is one contact form submission.
type ContactMessage struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	IPAddress string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Post is a blog post loaded from a markdown file.
type Post struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Author      string    `json:"author"`
	Date        time.Time `json:"date"`
	Tags        []string  `json:"tags"`
	CoverImage  string    `json:"cover_image,omitempty"`
	ReadTime    string    `json:"read_time"`
	Published   bool      `json:"-"`
	HTML        string    `json:"html,omitempty"`
	Views       int64     `json:"views"`
}

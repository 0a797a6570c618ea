package model

import "time"

// BlogPost is a CMS article.
type BlogPost struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Excerpt       string     `json:"excerpt,omitempty"`
	Content       string     `json:"content"`
	Status        string     `json:"status"`
	Author        string     `json:"author,omitempty"`
	PublishedDate *time.Time `json:"published_date,omitempty"`
}

// Document review states.
const (
	DocumentPending  = "pending"
	DocumentApproved = "approved"
	DocumentRejected = "rejected"
)

// Document is an uploaded verification document (licence, insurance...).
type Document struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"owner_id"`
	OwnerType    string     `json:"owner_type"`
	Type         string     `json:"type"`
	URL          string     `json:"url"`
	Status       string     `json:"status"`
	ReviewerNote string     `json:"reviewer_note,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreatedDate  time.Time  `json:"created_date"`
}

// ApplicationKind names an onboarding form.
type ApplicationKind string

const (
	ApplicationDriver     ApplicationKind = "driver"
	ApplicationDispatcher ApplicationKind = "dispatcher"
	ApplicationHotel      ApplicationKind = "hotel"
	ApplicationCorporate  ApplicationKind = "corporate"
)

// Valid reports whether k is a known onboarding form.
func (k ApplicationKind) Valid() bool {
	switch k {
	case ApplicationDriver, ApplicationDispatcher, ApplicationHotel, ApplicationCorporate:
		return true
	}
	return false
}

// Application is a submitted onboarding form.
type Application struct {
	ID             string                 `json:"id"`
	Kind           ApplicationKind        `json:"kind"`
	Status         string                 `json:"status"`
	ApplicantEmail string                 `json:"applicant_email"`
	Fields         map[string]interface{} `json:"fields"`
	CreatedDate    time.Time              `json:"created_date"`
}

// Entity is a schemaless record from the generic entities API.
type Entity map[string]interface{}

// AssistantRequest is a message to the support assistant.
type AssistantRequest struct {
	Message        string            `json:"message"`
	ConversationID string            `json:"conversation_id,omitempty"`
	Context        map[string]string `json:"context,omitempty"`
}

// AssistantReply is the assistant's answer.
type AssistantReply struct {
	Reply          string   `json:"reply"`
	ConversationID string   `json:"conversation_id"`
	Suggestions    []string `json:"suggestions,omitempty"`
}

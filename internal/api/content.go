package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/joltcab/console/internal/model"
)

// Entities returns a facade over the generic entity collection name,
// e.g. "vehicles" or "promo-codes". Records are schemaless.
func (a *API) Entities(name string) *Resource[model.Entity] {
	return NewResource[model.Entity](a.client, "/entities/"+url.PathEscape(name), "entities", "entity")
}

// BlogService manages CMS articles.
type BlogService struct {
	*Resource[model.BlogPost]
}

// NewBlogService creates the blog facade.
func NewBlogService(c *Client) *BlogService {
	return &BlogService{Resource: NewResource[model.BlogPost](c, "/blog", "posts", "post")}
}

// BySlug returns the published article with the given slug.
func (s *BlogService) BySlug(ctx context.Context, slug string) (*model.BlogPost, error) {
	return fetchOne[model.BlogPost](ctx, s.client, http.MethodGet,
		s.path+"/slug/"+url.PathEscape(slug), nil, "post")
}

// DocumentService lists uploaded documents and drives admin review.
type DocumentService struct {
	*Resource[model.Document]
}

// NewDocumentService creates the documents facade.
func NewDocumentService(c *Client) *DocumentService {
	return &DocumentService{Resource: NewResource[model.Document](c, "/documents", "documents", "document")}
}

// Approve accepts document id.
func (s *DocumentService) Approve(ctx context.Context, id string) (*model.Document, error) {
	return fetchOne[model.Document](ctx, s.client, http.MethodPost,
		s.itemPath(id)+"/approve", nil, "document")
}

// Reject declines document id; reason is shown to the uploader.
func (s *DocumentService) Reject(ctx context.Context, id, reason string) (*model.Document, error) {
	return fetchOne[model.Document](ctx, s.client, http.MethodPost,
		s.itemPath(id)+"/reject", map[string]string{"reason": reason}, "document")
}

// OnboardingService submits and tracks partner applications.
type OnboardingService struct {
	client *Client
}

// NewOnboardingService creates the onboarding facade.
func NewOnboardingService(c *Client) *OnboardingService {
	return &OnboardingService{client: c}
}

// Submit sends an application of the given kind.
func (s *OnboardingService) Submit(
	ctx context.Context,
	kind model.ApplicationKind,
	fields map[string]interface{},
) (*model.Application, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown application kind %q", kind)
	}
	return fetchOne[model.Application](ctx, s.client, http.MethodPost,
		"/onboarding/"+string(kind), fields, "application")
}

// Status returns a previously submitted application.
func (s *OnboardingService) Status(
	ctx context.Context,
	kind model.ApplicationKind,
	id string,
) (*model.Application, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown application kind %q", kind)
	}
	return fetchOne[model.Application](ctx, s.client, http.MethodGet,
		"/onboarding/"+string(kind)+"/"+url.PathEscape(id), nil, "application")
}

// AssistantService talks to the support assistant.
type AssistantService struct {
	client *Client
}

// NewAssistantService creates the assistant facade.
func NewAssistantService(c *Client) *AssistantService {
	return &AssistantService{client: c}
}

// Ask sends one message and returns the reply. Pass the returned
// ConversationID back to continue the conversation.
func (s *AssistantService) Ask(ctx context.Context, req model.AssistantRequest) (*model.AssistantReply, error) {
	env, err := call(ctx, s.client, http.MethodPost, "/emergent-ia/chat", req)
	if err != nil {
		return nil, err
	}
	var reply model.AssistantReply
	if err := env.DecodeData(&reply); err != nil {
		return nil, fmt.Errorf("POST /emergent-ia/chat: %w", err)
	}
	return &reply, nil
}

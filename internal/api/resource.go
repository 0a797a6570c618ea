package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// call issues a request and turns a success=false envelope into a
// *RejectedError, so every facade applies the same error policy: failures
// always propagate, nothing is swallowed into empty defaults.
func call(
	ctx context.Context,
	c *Client,
	method string,
	path string,
	body interface{},
	opts ...RequestOption,
) (*Envelope, error) {
	env, err := c.Do(ctx, method, path, body, opts...)
	if err != nil {
		return nil, err
	}
	if env.Rejected() {
		return nil, &RejectedError{
			Method:  method,
			Path:    path,
			Message: env.failureMessage(),
		}
	}
	return env, nil
}

// fetchList GETs path and unwraps data[key] as a list.
func fetchList[T any](
	ctx context.Context,
	c *Client,
	path string,
	key string,
	params Params,
) ([]T, error) {
	env, err := call(ctx, c, http.MethodGet, path, nil, WithQuery(params))
	if err != nil {
		return nil, err
	}
	return unwrapList[T](env, key)
}

// fetchOne issues method on path and unwraps data[key] as one record.
func fetchOne[T any](
	ctx context.Context,
	c *Client,
	method string,
	path string,
	body interface{},
	key string,
) (*T, error) {
	env, err := call(ctx, c, method, path, body)
	if err != nil {
		return nil, err
	}
	item, err := unwrapOne[T](env, key)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return item, nil
}

// Resource is a CRUD facade over one backend collection. Lists unwrap
// data.<collectionKey>, single records unwrap data.<singularKey>.
type Resource[T any] struct {
	client        *Client
	path          string
	collectionKey string
	singularKey   string
}

// NewResource creates a facade for the collection rooted at path.
func NewResource[T any](
	c *Client,
	path string,
	collectionKey string,
	singularKey string,
) *Resource[T] {
	return &Resource[T]{
		client:        c,
		path:          path,
		collectionKey: collectionKey,
		singularKey:   singularKey,
	}
}

// Path returns the collection root, e.g. "/trips".
func (r *Resource[T]) Path() string {
	return r.path
}

func (r *Resource[T]) itemPath(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

// List returns the collection filtered by params. A response without the
// collection key yields an empty slice.
func (r *Resource[T]) List(ctx context.Context, params Params) ([]T, error) {
	return fetchList[T](ctx, r.client, r.path, r.collectionKey, params)
}

// Get returns one record by id.
func (r *Resource[T]) Get(ctx context.Context, id string) (*T, error) {
	return fetchOne[T](ctx, r.client, http.MethodGet, r.itemPath(id), nil, r.singularKey)
}

// Create posts data and returns the created record.
func (r *Resource[T]) Create(ctx context.Context, data interface{}) (*T, error) {
	return fetchOne[T](ctx, r.client, http.MethodPost, r.path, data, r.singularKey)
}

// Update replaces the record id with data and returns the stored record.
func (r *Resource[T]) Update(ctx context.Context, id string, data interface{}) (*T, error) {
	return fetchOne[T](ctx, r.client, http.MethodPut, r.itemPath(id), data, r.singularKey)
}

// Delete removes the record id.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	_, err := call(ctx, r.client, http.MethodDelete, r.itemPath(id), nil)
	return err
}

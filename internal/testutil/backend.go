package testutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/joltcab/console/internal/model"
)

// Claims are the claims carried by tokens the fake backend issues.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// RecordedRequest is a request as seen by the fake backend.
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

type account struct {
	user     model.User
	password string
}

// Backend is an httptest server that speaks the JoltCab envelope. It
// implements login, me and logout against a set of accounts, and lets a
// test register any other route with Handle.
type Backend struct {
	Server *httptest.Server
	Secret []byte

	mu       sync.Mutex
	accounts map[string]account
	routes   map[string]http.HandlerFunc
	requests []RecordedRequest
}

// NewBackend starts a fake backend that is shut down with the test.
func NewBackend(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{
		Secret:   []byte("joltcab-test-secret"),
		accounts: make(map[string]account),
		routes:   make(map[string]http.HandlerFunc),
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Server.Close)

	return b
}

// URL is the API base URL, including the /api prefix.
func (b *Backend) URL() string {
	return b.Server.URL + "/api"
}

// AddUser registers an account that can log in with password.
func (b *Backend) AddUser(u model.User, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[u.Email] = account{user: u, password: password}
}

// Handle overrides the route "METHOD /path"; path excludes the /api
// prefix.
func (b *Backend) Handle(method, path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[method+" "+path] = h
}

// Respond registers a route that always answers with status and body.
func (b *Backend) Respond(method, path string, status int, body interface{}) {
	b.Handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, status, body)
	})
}

// Requests returns every request received so far.
func (b *Backend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]RecordedRequest, len(b.requests))
	copy(out, b.requests)
	return out
}

// LastRequest returns the most recent request matching method and path.
func (b *Backend) LastRequest(method, path string) (RecordedRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.requests) - 1; i >= 0; i-- {
		r := b.requests[i]
		if r.Method == method && r.Path == path {
			return r, true
		}
	}
	return RecordedRequest{}, false
}

// IssueToken signs an HS256 token for u.
func (b *Backend) IssueToken(u model.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email: u.Email,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.Secret)
}

// ValidateToken checks a token issued by IssueToken.
func (b *Backend) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return b.Secret, nil
		},
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	path := strings.TrimPrefix(r.URL.Path, "/api")

	b.mu.Lock()
	b.requests = append(b.requests, RecordedRequest{
		Method: r.Method,
		Path:   path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Body:   body,
	})
	h, ok := b.routes[r.Method+" "+path]
	b.mu.Unlock()

	r.Body = io.NopCloser(strings.NewReader(string(body)))

	if ok {
		h(w, r)
		return
	}

	switch r.Method + " " + path {
	case "POST /auth/login":
		b.login(w, body)
	case "GET /auth/me":
		b.me(w, r)
	case "POST /auth/logout":
		WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	default:
		WriteJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"error":   "Not found",
		})
	}
}

func (b *Backend) login(w http.ResponseWriter, body []byte) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(body, &creds); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "Invalid request body"})
		return
	}

	b.mu.Lock()
	acct, ok := b.accounts[creds.Email]
	b.mu.Unlock()

	if !ok || acct.password != creds.Password {
		WriteJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"error":   "Invalid credentials",
		})
		return
	}

	token, err := b.IssueToken(acct.user)
	if err != nil {
		WriteJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"token": token,
			"user":  acct.user,
		},
	})
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	claims, err := b.ValidateToken(token)
	if err != nil {
		WriteJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Unauthorized",
		})
		return
	}

	b.mu.Lock()
	acct, ok := b.accounts[claims.Email]
	b.mu.Unlock()
	if !ok {
		WriteJSON(w, http.StatusNotFound, map[string]interface{}{"error": "User not found"})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    map[string]interface{}{"user": acct.user},
	})
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK wraps data in a successful envelope.
func OK(data interface{}) map[string]interface{} {
	return map[string]interface{}{"success": true, "data": data}
}

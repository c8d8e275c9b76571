package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultTimeout = 30 * time.Second

	// userBlueprint is the built-in blueprint holding catalog users
	userBlueprint = "_user"
)

// ErrNotFound is returned when a queried entity or user legitimately does not
// exist in the catalog. Callers treat it as "no match", not as a failure.
var ErrNotFound = errors.New("catalog: not found")

// APIError is a non-2xx answer from the catalog
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("catalog: api returned %d: %s", e.StatusCode, e.Body)
}

// Options configures a catalog Client
type Options struct {
	BaseURL      string
	ClientID     string
	ClientSecret string

	// UserTeamProperty is the key on the user entity holding team identifiers
	UserTeamProperty string

	// HTTPClient overrides the transport, mainly for tests
	HTTPClient *http.Client
}

// Client talks to the catalog API. The access token from the credential
// exchange is fetched lazily and cached for the client's lifetime.
type Client struct {
	baseURL          string
	clientID         string
	clientSecret     string
	userTeamProperty string
	hc               *http.Client

	tokenMu     sync.Mutex
	accessToken string
}

// New create a catalog api client
func New(opt Options) *Client {
	hc := opt.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		baseURL:          strings.TrimSuffix(opt.BaseURL, "/"),
		clientID:         opt.ClientID,
		clientSecret:     opt.ClientSecret,
		userTeamProperty: opt.UserTeamProperty,
		hc:               hc,
	}
}

// token returns the cached access token, exchanging credentials on first use
func (c *Client) token(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.accessToken != "" {
		return c.accessToken, nil
	}

	log.Debug().Msg("requesting new catalog access token")

	body, err := json.Marshal(map[string]string{
		"clientId":     c.clientID,
		"clientSecret": c.clientSecret,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth/access_token", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", errors.New("catalog: credential exchange returned no token")
	}

	c.accessToken = out.AccessToken
	return c.accessToken, nil
}

// do issues one authenticated request. A 404 maps to ErrNotFound, any other
// non-2xx status to *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// FindUserByEmail looks up a catalog user by email. Two steps: search the
// user blueprint for the identifier, then fetch the full entity to read its
// team identifiers. ErrNotFound when the email matches nobody.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	searchPayload := map[string]interface{}{
		"combinator": "and",
		"rules": []map[string]string{
			{"property": "$blueprint", "operator": "=", "value": userBlueprint},
			{"property": "$identifier", "operator": "=", "value": email},
		},
	}

	var searchOut struct {
		Entities []struct {
			Identifier string `json:"identifier"`
		} `json:"entities"`
	}
	if err := c.do(ctx, http.MethodPost, "/entities/search", nil, searchPayload, &searchOut); err != nil {
		return nil, err
	}
	if len(searchOut.Entities) == 0 {
		return nil, ErrNotFound
	}

	identifier := searchOut.Entities[0].Identifier

	var entityOut struct {
		// team identifiers live on a top-level key of the user entity, not
		// under properties or relations
		Entity map[string]interface{} `json:"entity"`
	}
	path := "/blueprints/" + userBlueprint + "/entities/" + url.PathEscape(identifier)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &entityOut); err != nil {
		return nil, err
	}

	return &User{
		Identifier: identifier,
		Teams:      Strings(entityOut.Entity[c.userTeamProperty]),
	}, nil
}

// GetEntity fetches one entity of a blueprint, ErrNotFound when absent
func (c *Client) GetEntity(ctx context.Context, blueprint, identifier string) (*Entity, error) {
	var out struct {
		Entity Entity `json:"entity"`
	}
	path := "/blueprints/" + url.PathEscape(blueprint) + "/entities/" + url.PathEscape(identifier)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Entity, nil
}

// UpsertEntity creates or merges an entity. The catalog's own upsert+merge
// semantics make repeated calls with the same payload converge to the same
// state.
func (c *Client) UpsertEntity(ctx context.Context, blueprint string, entity Entity) error {
	query := url.Values{}
	query.Set("upsert", "true")
	query.Set("merge", "true")

	path := "/blueprints/" + url.PathEscape(blueprint) + "/entities"
	return c.do(ctx, http.MethodPost, path, query, entity, nil)
}

// ListEntities fetches all entities of a blueprint
func (c *Client) ListEntities(ctx context.Context, blueprint string) ([]Entity, error) {
	var out struct {
		Entities []Entity `json:"entities"`
	}
	path := "/blueprints/" + url.PathEscape(blueprint) + "/entities"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Entities, nil
}

// UpdateEntity applies a partial update to an entity
func (c *Client) UpdateEntity(ctx context.Context, blueprint, identifier string, patch Patch) error {
	path := "/blueprints/" + url.PathEscape(blueprint) + "/entities/" + url.PathEscape(identifier)
	return c.do(ctx, http.MethodPatch, path, nil, patch, nil)
}

// Strings coerces a decoded json value into a list of strings. Team keys and
// relations can hold a single identifier or a list of them.
func Strings(v interface{}) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []string:
		return val
	case []interface{}:
		var out []string
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

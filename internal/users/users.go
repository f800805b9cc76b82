package users

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"dotmac/internal/querycache"
	"dotmac/pkg/api"
)

const (
	Domain    = "users"
	StaleTime = 5 * time.Minute
)

var (
	ErrorClientUndefined = errors.New("client_undefined")
	ErrorCacheUndefined  = errors.New("cache_undefined")
)

type UserStatus string

const (
	StatusActive    UserStatus = "Active"
	StatusInvited   UserStatus = "Invited"
	StatusSuspended UserStatus = "Suspended"
)

type User struct {
	Id         string     `json:"id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	FullName   string     `json:"full_name,omitempty"`
	IsActive   bool       `json:"is_active"`
	IsVerified bool       `json:"is_verified"`
	Roles      []string   `json:"roles,omitempty"`
	TenantId   string     `json:"tenant_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
}

// Status derives the display status, suspension wins over verification
func Status(user User) UserStatus {
	switch {
	case !user.IsActive:
		return StatusSuspended
	case !user.IsVerified:
		return StatusInvited
	default:
		return StatusActive
	}
}

type Filters struct {
	Search   string `json:"search,omitempty"`
	Role     string `json:"role,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

func (f Filters) query() url.Values {
	output := url.Values{}
	if f.Search != "" {
		output.Set("search", f.Search)
	}
	if f.Role != "" {
		output.Set("role", f.Role)
	}
	if f.IsActive != nil {
		output.Set("is_active", strconv.FormatBool(*f.IsActive))
	}
	if f.Limit > 0 {
		output.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		output.Set("offset", strconv.Itoa(f.Offset))
	}
	return output
}

type CreateInput struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name,omitempty"`
	Password string   `json:"password,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

type UpdateInput struct {
	FullName *string  `json:"full_name,omitempty"`
	Email    *string  `json:"email,omitempty"`
	IsActive *bool    `json:"is_active,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

type keyFactory struct{}

var Keys keyFactory

func (keyFactory) All() querycache.Key {
	return querycache.Key{Domain}
}

func (k keyFactory) List(filters Filters) querycache.Key {
	return append(k.All(), "list", filters)
}

func (k keyFactory) Detail(id string) querycache.Key {
	return append(k.All(), "detail", id)
}

type NewClientOpts struct {
	Api   *api.Client
	Cache *querycache.Client
}

func NewClient(opts NewClientOpts) (*Client, error) {
	errs := []error{}
	if opts.Api == nil {
		errs = append(errs, ErrorClientUndefined)
	}
	if opts.Cache == nil {
		errs = append(errs, ErrorCacheUndefined)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &Client{api: opts.Api, cache: opts.Cache}, nil
}

type Client struct {
	api   *api.Client
	cache *querycache.Client
}

func (c *Client) List(ctx context.Context, filters Filters) ([]User, error) {
	return querycache.Fetch(ctx, c.cache, Keys.List(filters), StaleTime, func(ctx context.Context) ([]User, error) {
		output, err := api.Get[[]User](ctx, c.api, "/users", filters.query())
		if err != nil {
			return nil, err
		}
		return *output, nil
	})
}

func (c *Client) Get(ctx context.Context, id string) (*User, error) {
	return querycache.Fetch(ctx, c.cache, Keys.Detail(id), StaleTime, func(ctx context.Context) (*User, error) {
		return api.Get[User](ctx, c.api, "/users/"+url.PathEscape(id), nil)
	})
}

func (c *Client) Create(ctx context.Context, input CreateInput) (*User, error) {
	var output *User
	err := c.cache.Mutate(ctx, func(ctx context.Context) (err error) {
		output, err = api.Post[User](ctx, c.api, "/users", input)
		return err
	}, Keys.All())
	if err != nil {
		return nil, fmt.Errorf("failed to create user[%s]: %w", input.Email, err)
	}
	return output, nil
}

func (c *Client) Update(ctx context.Context, id string, input UpdateInput) (*User, error) {
	var output *User
	err := c.cache.Mutate(ctx, func(ctx context.Context) (err error) {
		output, err = api.Patch[User](ctx, c.api, "/users/"+url.PathEscape(id), input)
		return err
	}, Keys.All())
	if err != nil {
		return nil, fmt.Errorf("failed to update user[%s]: %w", id, err)
	}
	return output, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	err := c.cache.Mutate(ctx, func(ctx context.Context) error {
		return api.Delete(ctx, c.api, "/users/"+url.PathEscape(id))
	}, Keys.All())
	if err != nil {
		return fmt.Errorf("failed to delete user[%s]: %w", id, err)
	}
	return nil
}

// Refetch waits for every invalidated users query to reload
func (c *Client) Refetch(ctx context.Context) error {
	return c.cache.Refetch(ctx, Keys.All())
}

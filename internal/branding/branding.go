package branding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"dotmac/internal/querycache"
	"dotmac/pkg/api"
)

const (
	Domain         = "branding"
	StaleTime      = 10 * time.Minute
	TenantIdHeader = "X-Tenant-ID"
)

var (
	ErrorClientUndefined = errors.New("client_undefined")
	ErrorCacheUndefined  = errors.New("cache_undefined")
)

type Config struct {
	ProductName      string `json:"product_name,omitempty"`
	ProductTagline   string `json:"product_tagline,omitempty"`
	CompanyName      string `json:"company_name,omitempty"`
	SupportEmail     string `json:"support_email,omitempty"`
	SuccessEmail     string `json:"success_email,omitempty"`
	PrimaryColor     string `json:"primary_color,omitempty"`
	SecondaryColor   string `json:"secondary_color,omitempty"`
	AccentColor      string `json:"accent_color,omitempty"`
	LogoLightUrl     string `json:"logo_light_url,omitempty"`
	LogoDarkUrl      string `json:"logo_dark_url,omitempty"`
	FaviconUrl       string `json:"favicon_url,omitempty"`
	DocsUrl          string `json:"docs_url,omitempty"`
	SupportPortalUrl string `json:"support_portal_url,omitempty"`
}

func Defaults() Config {
	return Config{
		ProductName:    "DotMac Platform",
		ProductTagline: "Ready to Deploy",
		CompanyName:    "DotMac",
		SupportEmail:   "support@dotmac.com",
		PrimaryColor:   "#0ea5e9",
		SecondaryColor: "#8b5cf6",
		AccentColor:    "#22c55e",
		FaviconUrl:     "/favicon.ico",
		DocsUrl:        "https://docs.dotmac.com",
	}
}

// Merge overlays every non-empty tenant field on defaults
func Merge(defaults, tenant Config) Config {
	output := defaults
	pick := func(target *string, value string) {
		if value != "" {
			*target = value
		}
	}
	pick(&output.ProductName, tenant.ProductName)
	pick(&output.ProductTagline, tenant.ProductTagline)
	pick(&output.CompanyName, tenant.CompanyName)
	pick(&output.SupportEmail, tenant.SupportEmail)
	pick(&output.SuccessEmail, tenant.SuccessEmail)
	pick(&output.PrimaryColor, tenant.PrimaryColor)
	pick(&output.SecondaryColor, tenant.SecondaryColor)
	pick(&output.AccentColor, tenant.AccentColor)
	pick(&output.LogoLightUrl, tenant.LogoLightUrl)
	pick(&output.LogoDarkUrl, tenant.LogoDarkUrl)
	pick(&output.FaviconUrl, tenant.FaviconUrl)
	pick(&output.DocsUrl, tenant.DocsUrl)
	pick(&output.SupportPortalUrl, tenant.SupportPortalUrl)
	return output
}

func Key(tenantId string) querycache.Key {
	return querycache.Key{Domain, tenantId}
}

type tenantBranding struct {
	TenantId string `json:"tenant_id"`
	Branding Config `json:"branding"`
}

type NewClientOpts struct {
	Api      *api.Client
	Cache    *querycache.Client
	Defaults *Config
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
	output := &Client{api: opts.Api, cache: opts.Cache, defaults: Defaults()}
	if opts.Defaults != nil {
		output.defaults = *opts.Defaults
	}
	return output, nil
}

type Client struct {
	api      *api.Client
	cache    *querycache.Client
	defaults Config
}

// Get returns the tenant's branding merged over the defaults. A tenant
// without stored branding gets the defaults
func (c *Client) Get(ctx context.Context, tenantId string) (*Config, error) {
	tenant, err := querycache.Fetch(ctx, c.cache, Key(tenantId), StaleTime, func(ctx context.Context) (Config, error) {
		var output tenantBranding
		err := c.api.Do(ctx, api.Request{
			Method: http.MethodGet,
			Path:   "/branding",
			Header: http.Header{TenantIdHeader: []string{tenantId}},
		}, &output)
		if err != nil {
			if api.IsNotFound(err) {
				return Config{}, nil
			}
			return Config{}, err
		}
		return output.Branding, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get branding of tenant[%s]: %w", tenantId, err)
	}
	merged := Merge(c.defaults, tenant)
	return &merged, nil
}

// Update stores the tenant overrides, empty fields fall back to the
// defaults on the next Get
func (c *Client) Update(ctx context.Context, tenantId string, config Config) (*Config, error) {
	err := c.cache.Mutate(ctx, func(ctx context.Context) error {
		return c.api.Do(ctx, api.Request{
			Method: http.MethodPut,
			Path:   "/branding",
			Body:   tenantBranding{TenantId: tenantId, Branding: config},
			Header: http.Header{TenantIdHeader: []string{tenantId}},
		}, nil)
	}, Key(tenantId))
	if err != nil {
		return nil, fmt.Errorf("failed to update branding of tenant[%s]: %w", tenantId, err)
	}
	if err := c.cache.Refetch(ctx, Key(tenantId)); err != nil {
		return nil, err
	}
	return c.Get(ctx, tenantId)
}

package licensing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"dotmac/internal/common"
	"dotmac/internal/querycache"
	"dotmac/pkg/api"
)

var (
	ErrorClientUndefined = errors.New("client_undefined")
	ErrorCacheUndefined  = errors.New("cache_undefined")
)

type NewClientOpts struct {
	Api         *api.Client
	Cache       *querycache.Client
	ServiceLogs chan<- common.ServiceLog
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
	output := &Client{api: opts.Api, cache: opts.Cache, serviceLogs: opts.ServiceLogs}
	if output.serviceLogs == nil {
		output.serviceLogs = common.GetNoopServiceLog()
	}
	return output, nil
}

// Client reads licensing records through the query cache and invalidates
// the affected keys after each successful mutation
type Client struct {
	api         *api.Client
	cache       *querycache.Client
	serviceLogs chan<- common.ServiceLog
}

func (c *Client) ListModules(ctx context.Context, filters ModuleFilters) ([]Module, error) {
	return querycache.Fetch(ctx, c.cache, Keys.ModuleList(filters), ListStaleTime, func(ctx context.Context) ([]Module, error) {
		return list[Module](ctx, c.api, "/licensing/modules", filters.query())
	})
}

func (c *Client) GetModule(ctx context.Context, id string) (*Module, error) {
	return querycache.Fetch(ctx, c.cache, Keys.Module(id), ListStaleTime, func(ctx context.Context) (*Module, error) {
		return api.Get[Module](ctx, c.api, "/licensing/modules/"+url.PathEscape(id), nil)
	})
}

func (c *Client) ListQuotas(ctx context.Context, filters QuotaFilters) ([]Quota, error) {
	return querycache.Fetch(ctx, c.cache, Keys.QuotaList(filters), ListStaleTime, func(ctx context.Context) ([]Quota, error) {
		return list[Quota](ctx, c.api, "/licensing/quotas", filters.query())
	})
}

func (c *Client) ListPlans(ctx context.Context, filters PlanFilters) ([]Plan, error) {
	return querycache.Fetch(ctx, c.cache, Keys.PlanList(filters), ListStaleTime, func(ctx context.Context) ([]Plan, error) {
		return list[Plan](ctx, c.api, "/licensing/plans", filters.query())
	})
}

// CurrentSubscription returns nil without an error when the tenant has
// no subscription
func (c *Client) CurrentSubscription(ctx context.Context) (*Subscription, error) {
	return querycache.Fetch(ctx, c.cache, Keys.CurrentSubscription(), SubscriptionStaleTime, func(ctx context.Context) (*Subscription, error) {
		subscription, err := api.Get[Subscription](ctx, c.api, "/licensing/subscriptions/current", nil)
		if err != nil {
			if api.IsNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		return subscription, nil
	})
}

func (c *Client) CreateSubscription(ctx context.Context, input CreateSubscriptionInput) (*Subscription, error) {
	var output *Subscription
	err := c.cache.Mutate(ctx, func(ctx context.Context) error {
		subscription, err := api.Post[Subscription](ctx, c.api, "/licensing/subscriptions", input)
		output = subscription
		return err
	}, Keys.Subscriptions(), Keys.Entitlements())
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription for plan[%s]: %w", input.PlanId, err)
	}
	return output, nil
}

func (c *Client) CancelSubscription(ctx context.Context, id string, immediate bool) error {
	err := c.cache.Mutate(ctx, func(ctx context.Context) error {
		return c.api.Do(ctx, api.Request{
			Method: http.MethodPost,
			Path:   "/licensing/subscriptions/" + url.PathEscape(id) + "/cancel",
			Body:   map[string]bool{"immediate": immediate},
		}, nil)
	}, Keys.Subscriptions(), Keys.Entitlements())
	if err != nil {
		return fmt.Errorf("failed to cancel subscription[%s]: %w", id, err)
	}
	return nil
}

// CheckEntitlement fails closed, any error reads as not entitled. An
// empty module code is never sent to the backend
func (c *Client) CheckEntitlement(ctx context.Context, moduleCode, capability string) bool {
	if moduleCode == "" {
		return false
	}
	check, err := querycache.Fetch(ctx, c.cache, Keys.Entitlement(moduleCode, capability), SubscriptionStaleTime, func(ctx context.Context) (*EntitlementCheck, error) {
		return api.Post[EntitlementCheck](ctx, c.api, "/licensing/entitlements/check", map[string]string{
			"module_code": moduleCode,
			"capability":  capability,
		})
	})
	if err != nil {
		c.serviceLogs <- common.ServiceLogf(common.LogLevelWarn, "entitlement check for module[%s] capability[%s] failed, denying: %s", moduleCode, capability, err)
		return false
	}
	return check != nil && check.Entitled
}

// CheckQuota is never cached and fails closed
func (c *Client) CheckQuota(ctx context.Context, quotaCode string, quantity int64) *QuotaCheck {
	unavailable := &QuotaCheck{QuotaCode: quotaCode, Requested: quantity}
	if quotaCode == "" {
		return unavailable
	}
	check, err := api.Post[QuotaCheck](ctx, c.api, "/licensing/quotas/check", quotaInput(quotaCode, quantity))
	if err != nil {
		c.serviceLogs <- common.ServiceLogf(common.LogLevelWarn, "quota check for quota[%s] failed, denying: %s", quotaCode, err)
		return unavailable
	}
	return check
}

func (c *Client) ConsumeQuota(ctx context.Context, quotaCode string, quantity int64) error {
	return c.cache.Mutate(ctx, func(ctx context.Context) error {
		return c.api.Do(ctx, api.Request{Method: http.MethodPost, Path: "/licensing/quotas/consume", Body: quotaInput(quotaCode, quantity)}, nil)
	}, Keys.Quotas())
}

func (c *Client) ReleaseQuota(ctx context.Context, quotaCode string, quantity int64) error {
	return c.cache.Mutate(ctx, func(ctx context.Context) error {
		return c.api.Do(ctx, api.Request{Method: http.MethodPost, Path: "/licensing/quotas/release", Body: quotaInput(quotaCode, quantity)}, nil)
	}, Keys.Quotas())
}

// Refetch waits for every invalidated licensing query to reload
func (c *Client) Refetch(ctx context.Context) error {
	return c.cache.Refetch(ctx, Keys.All())
}

func quotaInput(quotaCode string, quantity int64) map[string]any {
	return map[string]any{"quota_code": quotaCode, "quantity": quantity}
}

func list[T any](ctx context.Context, client *api.Client, path string, query url.Values) ([]T, error) {
	output, err := api.Get[[]T](ctx, client, path, query)
	if err != nil {
		return nil, err
	}
	return *output, nil
}

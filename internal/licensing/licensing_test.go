package licensing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"dotmac/internal/querycache"
	"dotmac/pkg/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	subscription *Subscription
	failChecks   bool
	requests     atomic.Int32
	paths        []string
	mutex        sync.Mutex
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.paths = append(f.paths, r.Method+" "+r.URL.Path)
	switch r.Method + " " + r.URL.Path {
	case "GET /licensing/modules":
		modules := []Module{{Id: "m1", ModuleCode: "crm", IsActive: true}}
		if r.URL.Query().Get("category") == "network" {
			modules = []Module{{Id: "m2", ModuleCode: "olt", IsActive: true}}
		}
		json.NewEncoder(w).Encode(modules)
	case "GET /licensing/subscriptions/current":
		if f.subscription == nil {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail":"No active subscription"}`))
			return
		}
		json.NewEncoder(w).Encode(f.subscription)
	case "POST /licensing/subscriptions":
		var input CreateSubscriptionInput
		json.NewDecoder(r.Body).Decode(&input)
		f.subscription = &Subscription{Id: "sub-1", PlanId: input.PlanId, Status: SubscriptionStatusActive}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(f.subscription)
	case "POST /licensing/entitlements/check":
		if f.failChecks {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var input map[string]string
		json.NewDecoder(r.Body).Decode(&input)
		json.NewEncoder(w).Encode(EntitlementCheck{Entitled: input["module_code"] == "crm"})
	case "POST /licensing/quotas/check":
		if f.failChecks {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(QuotaCheck{Allowed: true, QuotaCode: "users", Requested: 2, Remaining: 8})
	case "POST /licensing/quotas/consume":
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{}
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)
	apiClient, err := api.NewClient(api.NewClientOpts{BaseUrl: server.URL, Id: "test"})
	require.NoError(t, err)
	client, err := NewClient(NewClientOpts{Api: apiClient, Cache: querycache.New(querycache.Opts{Namespace: t.Name()})})
	require.NoError(t, err)
	return client, backend
}

func TestKeys(t *testing.T) {
	active := true
	a := Keys.ModuleList(ModuleFilters{Category: "network", IsActive: &active})
	b := Keys.ModuleList(ModuleFilters{Category: "network", IsActive: &active})
	c := Keys.ModuleList(ModuleFilters{Category: "billing"})
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.True(t, Keys.Module("m1").HasPrefix(Keys.Modules()))
	assert.True(t, a.HasPrefix(Keys.All()))
	assert.False(t, Keys.QuotaList(QuotaFilters{}).HasPrefix(Keys.Modules()))
	assert.True(t, Keys.CurrentSubscription().HasPrefix(Keys.Subscriptions()))
	assert.False(t, Keys.PlanList(PlanFilters{}).Equal(Keys.QuotaList(QuotaFilters{})))
	assert.True(t, Keys.Entitlement("crm", "export").HasPrefix(Keys.All()))
}

func TestNewClientValidates(t *testing.T) {
	_, err := NewClient(NewClientOpts{})
	assert.ErrorIs(t, err, ErrorClientUndefined)
	assert.ErrorIs(t, err, ErrorCacheUndefined)
}

func TestListModulesCachesPerFilter(t *testing.T) {
	client, backend := newTestClient(t)
	ctx := context.Background()

	modules, err := client.ListModules(ctx, ModuleFilters{})
	require.NoError(t, err)
	require.Len(t, modules, 1)
	assert.Equal(t, "crm", modules[0].ModuleCode)

	_, err = client.ListModules(ctx, ModuleFilters{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), backend.requests.Load())

	modules, err = client.ListModules(ctx, ModuleFilters{Category: "network"})
	require.NoError(t, err)
	assert.Equal(t, "olt", modules[0].ModuleCode)
	assert.Equal(t, int32(2), backend.requests.Load())
}

func TestCurrentSubscriptionNotFoundIsEmptyState(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	subscription, err := client.CurrentSubscription(ctx)
	require.NoError(t, err)
	assert.Nil(t, subscription)

	created, err := client.CreateSubscription(ctx, CreateSubscriptionInput{PlanId: "plan-1", BillingCycle: BillingCycleMonthly})
	require.NoError(t, err)
	assert.Equal(t, "sub-1", created.Id)

	require.NoError(t, client.Refetch(ctx))
	subscription, err = client.CurrentSubscription(ctx)
	require.NoError(t, err)
	require.NotNil(t, subscription)
	assert.Equal(t, "plan-1", subscription.PlanId)
}

func TestCurrentSubscriptionErrorIsNotEmptyState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()
	apiClient, err := api.NewClient(api.NewClientOpts{BaseUrl: server.URL})
	require.NoError(t, err)
	client, err := NewClient(NewClientOpts{Api: apiClient, Cache: querycache.New(querycache.Opts{})})
	require.NoError(t, err)

	subscription, err := client.CurrentSubscription(context.Background())
	require.Error(t, err)
	assert.Nil(t, subscription)
	assert.True(t, api.HasStatus(err, http.StatusInternalServerError))
}

func TestCheckEntitlementFailsClosed(t *testing.T) {
	client, backend := newTestClient(t)
	ctx := context.Background()

	assert.False(t, client.CheckEntitlement(ctx, "", "export"))
	assert.Equal(t, int32(0), backend.requests.Load(), "empty code makes no request")

	assert.True(t, client.CheckEntitlement(ctx, "crm", "export"))
	assert.False(t, client.CheckEntitlement(ctx, "olt", "export"))

	backend.mutex.Lock()
	backend.failChecks = true
	backend.mutex.Unlock()
	assert.False(t, client.CheckEntitlement(ctx, "billing", "refund"))
}

func TestCheckQuotaFailsClosed(t *testing.T) {
	client, backend := newTestClient(t)
	ctx := context.Background()

	check := client.CheckQuota(ctx, "users", 2)
	assert.True(t, check.Allowed)
	assert.Equal(t, int64(8), check.Remaining)

	backend.mutex.Lock()
	backend.failChecks = true
	backend.mutex.Unlock()
	check = client.CheckQuota(ctx, "users", 2)
	assert.False(t, check.Allowed)
	assert.Equal(t, "users", check.QuotaCode)

	require.NoError(t, client.ConsumeQuota(ctx, "users", 1))
}

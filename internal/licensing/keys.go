package licensing

import "dotmac/internal/querycache"

const Domain = "licensing"

type keyFactory struct{}

// Keys builds every licensing query key, each one a child of All()
var Keys keyFactory

func (keyFactory) All() querycache.Key {
	return querycache.Key{Domain}
}

func (k keyFactory) Modules() querycache.Key {
	return append(k.All(), "modules")
}

func (k keyFactory) ModuleList(filters ModuleFilters) querycache.Key {
	return append(k.Modules(), "list", filters)
}

func (k keyFactory) Module(id string) querycache.Key {
	return append(k.Modules(), "detail", id)
}

func (k keyFactory) Quotas() querycache.Key {
	return append(k.All(), "quotas")
}

func (k keyFactory) QuotaList(filters QuotaFilters) querycache.Key {
	return append(k.Quotas(), "list", filters)
}

func (k keyFactory) Plans() querycache.Key {
	return append(k.All(), "plans")
}

func (k keyFactory) PlanList(filters PlanFilters) querycache.Key {
	return append(k.Plans(), "list", filters)
}

func (k keyFactory) Subscriptions() querycache.Key {
	return append(k.All(), "subscriptions")
}

func (k keyFactory) CurrentSubscription() querycache.Key {
	return append(k.Subscriptions(), "current")
}

func (k keyFactory) Entitlements() querycache.Key {
	return append(k.All(), "entitlements")
}

func (k keyFactory) Entitlement(moduleCode, capability string) querycache.Key {
	return append(k.Entitlements(), moduleCode, capability)
}

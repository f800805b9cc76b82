package licensing

import (
	"net/url"
	"strconv"
	"time"
)

const (
	ListStaleTime         = 5 * time.Minute
	SubscriptionStaleTime = time.Minute
)

type SubscriptionStatus string

const (
	SubscriptionStatusTrial     SubscriptionStatus = "TRIAL"
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusPastDue   SubscriptionStatus = "PAST_DUE"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
	SubscriptionStatusExpired   SubscriptionStatus = "EXPIRED"
)

type BillingCycle string

const (
	BillingCycleMonthly   BillingCycle = "MONTHLY"
	BillingCycleQuarterly BillingCycle = "QUARTERLY"
	BillingCycleAnnually  BillingCycle = "ANNUALLY"
)

type Module struct {
	Id           string   `json:"id"`
	ModuleCode   string   `json:"module_code"`
	ModuleName   string   `json:"module_name"`
	Category     string   `json:"category"`
	Description  string   `json:"description"`
	IsActive     bool     `json:"is_active"`
	IsCore       bool     `json:"is_core"`
	PricingModel string   `json:"pricing_model"`
	BasePrice    float64  `json:"base_price"`
	Capabilities []string `json:"capabilities,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
}

type Quota struct {
	Id           string  `json:"id"`
	QuotaCode    string  `json:"quota_code"`
	QuotaName    string  `json:"quota_name"`
	Description  string  `json:"description"`
	UnitName     string  `json:"unit_name"`
	IsMetered    bool    `json:"is_metered"`
	OverageRate  float64 `json:"overage_rate"`
	IsActive     bool    `json:"is_active"`
	ResetPeriod  string  `json:"reset_period,omitempty"`
	AllowOverage bool    `json:"allow_overage"`
}

type PlanModule struct {
	ModuleId   string `json:"module_id"`
	IsIncluded bool   `json:"included_by_default"`
}

type PlanQuota struct {
	QuotaId          string `json:"quota_id"`
	IncludedQuantity int64  `json:"included_quantity"`
	SoftLimit        bool   `json:"soft_limit"`
}

type Plan struct {
	Id                string       `json:"id"`
	PlanName          string       `json:"plan_name"`
	PlanCode          string       `json:"plan_code"`
	Description       string       `json:"description"`
	BasePriceMonthly  float64      `json:"base_price_monthly"`
	AnnualDiscountPct float64      `json:"annual_discount_percent"`
	TrialDays         int          `json:"trial_days"`
	IsPublic          bool         `json:"is_public"`
	IsActive          bool         `json:"is_active"`
	Modules           []PlanModule `json:"modules,omitempty"`
	Quotas            []PlanQuota  `json:"quotas,omitempty"`
}

type Subscription struct {
	Id                 string             `json:"id"`
	TenantId           string             `json:"tenant_id"`
	PlanId             string             `json:"plan_id"`
	Status             SubscriptionStatus `json:"status"`
	BillingCycle       BillingCycle       `json:"billing_cycle"`
	MonthlyPrice       float64            `json:"monthly_price"`
	TrialEnd           *time.Time         `json:"trial_end,omitempty"`
	CurrentPeriodStart time.Time          `json:"current_period_start"`
	CurrentPeriodEnd   time.Time          `json:"current_period_end"`
	CancelledAt        *time.Time         `json:"cancelled_at,omitempty"`
}

type CreateSubscriptionInput struct {
	TenantId     string       `json:"tenant_id,omitempty"`
	PlanId       string       `json:"plan_id"`
	BillingCycle BillingCycle `json:"billing_cycle"`
	StartTrial   bool         `json:"start_trial"`
	AddonModules []string     `json:"addon_module_ids,omitempty"`
}

type EntitlementCheck struct {
	Entitled   bool   `json:"entitled"`
	ModuleCode string `json:"module_code,omitempty"`
	Capability string `json:"capability,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

type QuotaCheck struct {
	Allowed         bool   `json:"allowed"`
	QuotaCode       string `json:"quota_code"`
	Requested       int64  `json:"requested_quantity"`
	Remaining       int64  `json:"remaining"`
	OverageRequired bool   `json:"overage_required,omitempty"`
}

type ModuleFilters struct {
	Category string `json:"category,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

func (f ModuleFilters) query() url.Values {
	output := url.Values{}
	if f.Category != "" {
		output.Set("category", f.Category)
	}
	setPaging(output, f.IsActive, f.Limit, f.Offset)
	return output
}

type QuotaFilters struct {
	IsActive *bool `json:"is_active,omitempty"`
	Limit    int   `json:"limit,omitempty"`
	Offset   int   `json:"offset,omitempty"`
}

func (f QuotaFilters) query() url.Values {
	output := url.Values{}
	setPaging(output, f.IsActive, f.Limit, f.Offset)
	return output
}

type PlanFilters struct {
	IsPublic *bool `json:"is_public,omitempty"`
	IsActive *bool `json:"is_active,omitempty"`
	Limit    int   `json:"limit,omitempty"`
	Offset   int   `json:"offset,omitempty"`
}

func (f PlanFilters) query() url.Values {
	output := url.Values{}
	if f.IsPublic != nil {
		output.Set("is_public", strconv.FormatBool(*f.IsPublic))
	}
	setPaging(output, f.IsActive, f.Limit, f.Offset)
	return output
}

func setPaging(values url.Values, isActive *bool, limit, offset int) {
	if isActive != nil {
		values.Set("is_active", strconv.FormatBool(*isActive))
	}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		values.Set("offset", strconv.Itoa(offset))
	}
}

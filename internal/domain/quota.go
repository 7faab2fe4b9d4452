package domain

// QuotaType identifies a metered feature.
type QuotaType string

const (
	QuotaTypeMonitor      QuotaType = "monitor"
	QuotaTypeAutoDownload QuotaType = "auto_download"
)

// TierQuota defines usage limits for a subscription tier.
type TierQuota struct {
	MaxMonitoredCases     int  // Dockets a user may watch concurrently
	AutoDownloadsPerMonth int  // Free filings fetched automatically per month
	AutoDownloadEnabled   bool // Whether new filings are fetched without asking
	UnlimitedMonitoring   bool // Professional perk; MaxMonitoredCases ignored
}

// TierQuotas maps each subscription tier to its limits.
var TierQuotas = map[SubscriptionTier]TierQuota{
	SubscriptionTierFree: {
		MaxMonitoredCases:     3,
		AutoDownloadsPerMonth: 0,
		AutoDownloadEnabled:   false,
	},
	SubscriptionTierStarter: {
		MaxMonitoredCases:     25,
		AutoDownloadsPerMonth: 100,
		AutoDownloadEnabled:   true,
	},
	SubscriptionTierProfessional: {
		AutoDownloadsPerMonth: 1000,
		AutoDownloadEnabled:   true,
		UnlimitedMonitoring:   true,
	},
}

// QuotaUsage represents current usage for display and enforcement.
type QuotaUsage struct {
	MonitoredCases     int // Dockets currently watched
	AutoDownloadsMonth int // Automatic fetches so far this month
}

// GetTierQuota returns the quota for a tier, defaulting to free-tier
// limits for unknown values.
func GetTierQuota(tier SubscriptionTier) TierQuota {
	if q, ok := TierQuotas[tier]; ok {
		return q
	}
	return TierQuotas[SubscriptionTierFree]
}

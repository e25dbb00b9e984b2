package enums

import "fmt"

// SubscriptionStatus tracks a host's premium subscription record.
type SubscriptionStatus string

const (
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusCancelling SubscriptionStatus = "cancelling"
	SubscriptionStatusInactive   SubscriptionStatus = "inactive"
)

var validSubscriptionStatuses = []SubscriptionStatus{
	SubscriptionStatusActive,
	SubscriptionStatusCancelling,
	SubscriptionStatusInactive,
}

// String implements fmt.Stringer.
func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s SubscriptionStatus) IsValid() bool {
	for _, candidate := range validSubscriptionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSubscriptionStatus converts raw input into a SubscriptionStatus.
func ParseSubscriptionStatus(value string) (SubscriptionStatus, error) {
	for _, candidate := range validSubscriptionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription status %q", value)
}

// PlanInterval is the billing cadence for a subscription plan.
type PlanInterval string

const (
	PlanIntervalMonth PlanInterval = "month"
	PlanIntervalYear  PlanInterval = "year"
)

var validPlanIntervals = []PlanInterval{
	PlanIntervalMonth,
	PlanIntervalYear,
}

// IsValid reports whether the value is known.
func (i PlanInterval) IsValid() bool {
	for _, candidate := range validPlanIntervals {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParsePlanInterval converts raw input into a PlanInterval.
func ParsePlanInterval(value string) (PlanInterval, error) {
	for _, candidate := range validPlanIntervals {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan interval %q", value)
}

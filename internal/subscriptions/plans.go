package subscriptions

import "time"

// Plan describes a purchasable subscription term. Prices live in the app
// stores; the backend only cares how far a purchase extends the entitlement.
type Plan struct {
	ID     string
	Name   string
	Extend func(from time.Time) time.Time
}

const (
	PlanMonthly = "monthly"
	PlanWeekly  = "weekly"
)

var plans = map[string]Plan{
	PlanMonthly: {
		ID:   PlanMonthly,
		Name: "Monthly",
		// Calendar month, not 30 days: Jan 31 renews to the last day of February.
		Extend: func(from time.Time) time.Time { return from.AddDate(0, 1, 0) },
	},
	PlanWeekly: {
		ID:   PlanWeekly,
		Name: "Weekly",
		Extend: func(from time.Time) time.Time { return from.AddDate(0, 0, 7) },
	},
}

// PlanByID looks up a plan in the catalog.
func PlanByID(id string) (Plan, bool) {
	plan, ok := plans[id]
	return plan, ok
}

package model

import "strings"

const (
	// DefaultCredits is the balance an identity starts with.
	DefaultCredits = 5
	// DefaultPlan is the plan tier of a fresh balance.
	DefaultPlan = "BASIC"
)

// CreditBalance is the per-identity credit allowance.
type CreditBalance struct {
	ClerkID string
	Credits int
	Plan    string
}

func NewDefaultBalance(clerkID string) *CreditBalance {
	return &CreditBalance{ClerkID: clerkID, Credits: DefaultCredits, Plan: DefaultPlan}
}

// PlanGrant is what a purchased plan adds to a balance.
type PlanGrant struct {
	Credits int
	Plan    string
}

// planGrants is fixed; gateway plan ids are compared case-sensitively.
var planGrants = map[string]PlanGrant{
	"premium":  {Credits: 500, Plan: "PREMIUM"},
	"ultimate": {Credits: 5000, Plan: "ULTIMATE"},
}

// GrantForPlan maps a plan id to its credit grant. ok is false for unknown plans.
func GrantForPlan(planID string) (PlanGrant, bool) {
	g, ok := planGrants[strings.TrimSpace(planID)]
	return g, ok
}

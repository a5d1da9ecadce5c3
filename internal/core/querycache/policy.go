package querycache

import "time"

// Policy controls how long a cached entry is considered fresh and what
// happens when a stale entry is read.
type Policy struct {
	// StaleTime is how long after a fetch the entry is served without
	// contacting the backend. Zero means every read refetches.
	StaleTime time.Duration
	// Background serves a stale entry immediately and refreshes it in the
	// background. When false a stale read waits for the refetch.
	Background bool
}

// Default policies per resource. The cart is always read fresh because
// quantities must match stock at checkout time; chat feeds are polled.
var policies = map[string]Policy{
	ResProducts:      {StaleTime: time.Minute, Background: true},
	ResProduct:       {StaleTime: time.Minute, Background: true},
	ResCategories:    {StaleTime: 5 * time.Minute, Background: true},
	ResCategory:      {StaleTime: 5 * time.Minute, Background: true},
	ResCart:          {StaleTime: 0},
	ResInvoices:      {StaleTime: 30 * time.Second},
	ResInvoice:       {StaleTime: 30 * time.Second},
	ResUsers:         {StaleTime: 30 * time.Second},
	ResUser:          {StaleTime: 30 * time.Second},
	ResConversations: {StaleTime: 0},
	ResMessages:      {StaleTime: 0},
}

// PolicyFor returns the default policy for a resource.
func PolicyFor(resource string) Policy {
	return policies[resource]
}

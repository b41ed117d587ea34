package abpipeline

import (
	"strings"
	"time"
)

// EventType is a canonical event name. The vocabulary is fixed; raw spellings
// are folded onto it by the alias table below.
type EventType string

// Canonical event vocabulary.
const (
	EventSessionStart  EventType = "session_start"
	EventViewHome      EventType = "view_home"
	EventSearch        EventType = "search"
	EventViewProduct   EventType = "view_product"
	EventAddToCart     EventType = "add_to_cart"
	EventBeginCheckout EventType = "begin_checkout"
	EventPurchase      EventType = "purchase"
	EventLogout        EventType = "logout"
)

// eventAliases maps normalized raw spellings to the canonical vocabulary.
// Every canonical name maps to itself so the table is the single source of
// truth for what counts as a recognized event type.
var eventAliases = map[string]EventType{
	"session_start":     EventSessionStart,
	"view_home":         EventViewHome,
	"home":              EventViewHome,
	"homepage_view":     EventViewHome,
	"search":            EventSearch,
	"view_product":      EventViewProduct,
	"pdp_view":          EventViewProduct,
	"product_view":      EventViewProduct,
	"add_to_cart":       EventAddToCart,
	"cart_add":          EventAddToCart,
	"begin_checkout":    EventBeginCheckout,
	"checkout_start":    EventBeginCheckout,
	"purchase":          EventPurchase,
	"buy_now":           EventPurchase,
	"checkout_complete": EventPurchase,
	"logout":            EventLogout,
	"signout":           EventLogout,
}

// ParseEventType folds a raw event-type spelling onto the canonical
// vocabulary. Matching is case-insensitive and tolerant of surrounding
// whitespace and embedded spaces ("PDP View " resolves to view_product).
// Returns false if the value has no canonical counterpart.
func ParseEventType(raw string) (EventType, bool) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "_")
	et, ok := eventAliases[key]
	return et, ok
}

// Variant identifies which arm of the experiment a user was assigned to.
type Variant string

// Experiment arms. Assignment is user-level: at most one variant per
// (experiment, user).
const (
	VariantControl   Variant = "control"
	VariantTreatment Variant = "treatment"
)

// Valid reports whether v is one of the two recognized arms.
func (v Variant) Valid() bool {
	return v == VariantControl || v == VariantTreatment
}

// RawEvent is a single record from the raw extract, keyed by source column
// name. Values are unparsed strings; absent columns are absent keys.
type RawEvent map[string]string

// Event is a normalized clickstream event on the canonical schema.
// NetRevenue and IsPurchase are derived during normalization and are never
// negative.
type Event struct {
	EventID   string
	Timestamp time.Time
	UserID    int64
	SessionID int64
	ProductID string // empty when the event has no product context
	Type      EventType

	// Purchase fields. Zero unless Type == EventPurchase.
	PricePaid      float64
	Quantity       int
	DiscountAmount float64

	IsPurchase bool
	NetRevenue float64

	// Properties carries free-form attributes that survive normalization
	// but take no part in the mart computation.
	Properties map[string]string
}

// Assignment is one row of the experiment assignment table: which arm a user
// was randomized into, and when.
type Assignment struct {
	Experiment string
	UserID     int64
	Variant    Variant
	AssignedAt time.Time
}

// Package datagen produces a synthetic clickstream extract for the
// experiment pipeline: reference users, products and sessions, user-level
// experiment assignments, and funnel events
// (session_start → view_product → add_to_cart → begin_checkout → purchase)
// with a configurable relative treatment uplift on purchase probability.
//
// Generation is fully deterministic under a fixed seed so pipeline runs over
// generated data are reproducible end to end. Raw event records are emitted
// with extract spellings (product views as "pdp_view") so generated data
// exercises the normalizer's alias table the way a real extract does.
package datagen

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/saumya-sinha01/ecommerce-product-analytics-poc/pkg/abpipeline"
)

// Funnel base probabilities for the control group.
const (
	pViewProduct          = 0.70
	pAddToCartGivenView   = 0.12
	pCheckoutGivenCart    = 0.55
	pPurchaseGivenCheckout = 0.60
)

// Config controls the synthetic dataset shape.
type Config struct {
	Seed               int64
	Users              int
	Products           int
	MaxSessionsPerUser int

	// Experiment is the experiment name stamped on assignment rows.
	Experiment string
	// TreatmentProb is the probability a user lands in treatment (0.5 = 50/50).
	TreatmentProb float64
	// PurchaseLift is the relative uplift applied to the treatment group's
	// purchase probability only (0.06 = +6%).
	PurchaseLift float64

	// Start anchors the simulated traffic window; sessions begin within
	// [Start, Start+Days).
	Start time.Time
	Days  int
}

// DefaultConfig returns a dataset shape comparable to the reference extract.
func DefaultConfig() Config {
	return Config{
		Seed:               42,
		Users:              2000,
		Products:           100,
		MaxSessionsPerUser: 4,
		Experiment:         "pdp_redesign_experiment",
		TreatmentProb:      0.5,
		PurchaseLift:       0.06,
		Start:              time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Days:               21,
	}
}

// User is an immutable reference entity.
type User struct {
	UserID     int64
	SignupTS   time.Time
	Country    string
	DeviceType string
	IsNewUser  bool
}

// Product is an immutable reference entity.
type Product struct {
	ProductID string
	Category  string
	BasePrice float64
}

// Session is one browsing session; created once, never mutated.
type Session struct {
	SessionID  int64
	UserID     int64
	StartTS    time.Time
	EndTS      time.Time
	DeviceType string
}

// Dataset bundles one generated extract.
type Dataset struct {
	Users       []User
	Products    []Product
	Sessions    []Session
	Assignments []abpipeline.Assignment
	Events      []abpipeline.RawEvent
}

var countries = []string{"US", "GB", "DE", "IN", "BR", "CA"}
var categories = []string{"electronics", "home", "apparel", "sports", "beauty"}
var devices = []string{"mobile", "desktop"}

// Generate builds a full synthetic extract from the given shape.
func Generate(cfg Config) *Dataset {
	rng := rand.New(rand.NewSource(cfg.Seed))
	ds := &Dataset{}

	for i := 0; i < cfg.Users; i++ {
		signup := cfg.Start.Add(-time.Duration(rng.Intn(90*24)) * time.Hour)
		ds.Users = append(ds.Users, User{
			UserID:     int64(i + 1),
			SignupTS:   signup,
			Country:    countries[rng.Intn(len(countries))],
			DeviceType: devices[rng.Intn(len(devices))],
			IsNewUser:  cfg.Start.Sub(signup) < 30*24*time.Hour,
		})
	}

	for i := 0; i < cfg.Products; i++ {
		ds.Products = append(ds.Products, Product{
			ProductID: fmt.Sprintf("P%04d", i+1),
			Category:  categories[rng.Intn(len(categories))],
			BasePrice: 5 + rng.Float64()*195,
		})
	}

	for _, u := range ds.Users {
		variant := abpipeline.VariantControl
		if rng.Float64() < cfg.TreatmentProb {
			variant = abpipeline.VariantTreatment
		}
		ds.Assignments = append(ds.Assignments, abpipeline.Assignment{
			Experiment: cfg.Experiment,
			UserID:     u.UserID,
			Variant:    variant,
			AssignedAt: cfg.Start,
		})
	}
	variantOf := make(map[int64]abpipeline.Variant, len(ds.Assignments))
	for _, a := range ds.Assignments {
		variantOf[a.UserID] = a.Variant
	}

	var sessionID int64
	var eventSeq int
	for _, u := range ds.Users {
		nSessions := 1 + rng.Intn(cfg.MaxSessionsPerUser)
		for s := 0; s < nSessions; s++ {
			sessionID++
			start := cfg.Start.Add(time.Duration(rng.Intn(cfg.Days*24*60)) * time.Minute)
			end := start.Add(time.Duration(5+rng.Intn(35)) * time.Minute)
			sess := Session{
				SessionID:  sessionID,
				UserID:     u.UserID,
				StartTS:    start,
				EndTS:      end,
				DeviceType: u.DeviceType,
			}
			ds.Sessions = append(ds.Sessions, sess)
			ds.Events = append(ds.Events, sessionEvents(rng, cfg, sess, variantOf[u.UserID], ds.Products, &eventSeq)...)
		}
	}
	return ds
}

// sessionEvents simulates one session's walk down the purchase funnel.
func sessionEvents(rng *rand.Rand, cfg Config, sess Session, variant abpipeline.Variant, products []Product, seq *int) []abpipeline.RawEvent {
	var events []abpipeline.RawEvent
	clock := sess.StartTS

	advance := func() time.Time {
		clock = clock.Add(time.Duration(10+rng.Intn(170)) * time.Second)
		if clock.After(sess.EndTS) {
			clock = sess.EndTS
		}
		return clock
	}
	emit := func(name string, ts time.Time, extra map[string]string) {
		*seq++
		raw := abpipeline.RawEvent{
			"event_id":   fmt.Sprintf("ev-%09d", *seq),
			"event_ts":   ts.Format("2006-01-02 15:04:05"),
			"user_id":    strconv.FormatInt(sess.UserID, 10),
			"session_id": strconv.FormatInt(sess.SessionID, 10),
			"event_name": name,
		}
		for k, v := range extra {
			raw[k] = v
		}
		events = append(events, raw)
	}

	emit("session_start", sess.StartTS, nil)
	if rng.Float64() < 0.8 {
		emit("view_home", advance(), nil)
	}
	if rng.Float64() < 0.35 {
		emit("search", advance(), map[string]string{"query": categories[rng.Intn(len(categories))]})
	}

	if rng.Float64() < pViewProduct {
		product := products[rng.Intn(len(products))]
		nViews := 1 + rng.Intn(3)
		for v := 0; v < nViews; v++ {
			// Extract spelling: product detail page views arrive as pdp_view.
			emit("pdp_view", advance(), map[string]string{"product_id": product.ProductID})
		}

		if rng.Float64() < pAddToCartGivenView {
			emit("add_to_cart", advance(), map[string]string{"product_id": product.ProductID})

			if rng.Float64() < pCheckoutGivenCart {
				emit("begin_checkout", advance(), map[string]string{"product_id": product.ProductID})

				pPurchase := pPurchaseGivenCheckout
				if variant == abpipeline.VariantTreatment {
					pPurchase = clampProb(pPurchase * (1 + cfg.PurchaseLift))
				}
				if rng.Float64() < pPurchase {
					quantity := 1 + rng.Intn(3)
					price := product.BasePrice * float64(quantity)
					discount := 0.0
					if rng.Float64() < 0.15 {
						discount = price * 0.1
					}
					emit("purchase", advance(), map[string]string{
						"product_id":      product.ProductID,
						"price_paid":      strconv.FormatFloat(price, 'f', 2, 64),
						"quantity":        strconv.Itoa(quantity),
						"discount_amount": strconv.FormatFloat(discount, 'f', 2, 64),
					})
				}
			}
		}
	}

	if rng.Float64() < 0.5 {
		emit("logout", sess.EndTS, nil)
	}
	return events
}

func clampProb(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

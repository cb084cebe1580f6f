package service

import (
	"time"

	"github.com/rs/zerolog"

	"podtracker/internal/fuzzy"
	"podtracker/internal/model"
)

// Options carries the settings shared by the ledger services.
type Options struct {
	// FuzzyThreshold is the minimum match score for product and retailer names.
	FuzzyThreshold int
	// Location defines the calendar day "today" falls on.
	Location *time.Location
	// Now overrides the clock in tests.
	Now     func() time.Time
	Logger  zerolog.Logger
	Metrics *Metrics
}

func (o Options) withDefaults() Options {
	if o.FuzzyThreshold <= 0 {
		o.FuzzyThreshold = fuzzy.DefaultThreshold
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func (o Options) now() time.Time {
	return o.Now().In(o.Location)
}

func (o Options) today() model.Date {
	return model.DateOf(o.now())
}

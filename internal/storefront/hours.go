// Package storefront holds shop-wide facts shown on every page: opening
// hours and the delivery estimate.
package storefront

import (
	"time"
	_ "time/tzdata" // zone database for minimal images

	"github.com/go-faster/errors"
)

// DefaultTimezone is where the shop operates.
const DefaultTimezone = "Asia/Kolkata"

// DeliveryLeadTime is added to the order time for the delivery estimate.
const DeliveryLeadTime = 24 * time.Hour

// Window is an opening interval in whole hours, [Open, Close).
type Window struct {
	Open, Close int
}

// Contains reports whether hour falls inside the window.
func (w Window) Contains(hour int) bool {
	return hour >= w.Open && hour < w.Close
}

// Status is what the contact page shows about the shop right now.
type Status struct {
	Open              bool
	Label             string
	EstimatedDelivery time.Time
	DeliveryDate      string
}

// Hours evaluates the weekly schedule in the shop's timezone.
type Hours struct {
	loc     *time.Location
	weekday Window
	sunday  Window
}

// NewHours returns the schedule Monday to Saturday 06:00-20:00 and Sunday
// 06:00-18:00 in loc.
func NewHours(loc *time.Location) *Hours {
	if loc == nil {
		loc = time.UTC
	}
	return &Hours{
		loc:     loc,
		weekday: Window{Open: 6, Close: 20},
		sunday:  Window{Open: 6, Close: 18},
	}
}

// LoadHours resolves a timezone name and returns its schedule.
func LoadHours(tz string) (*Hours, error) {
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, errors.Wrapf(err, "load timezone %q", tz)
	}
	return NewHours(loc), nil
}

// IsOpen reports whether the shop is open at t.
func (h *Hours) IsOpen(t time.Time) bool {
	local := t.In(h.loc)
	if local.Weekday() == time.Sunday {
		return h.sunday.Contains(local.Hour())
	}
	return h.weekday.Contains(local.Hour())
}

// Status describes the shop at now.
func (h *Hours) Status(now time.Time) Status {
	open := h.IsOpen(now)
	label := "Currently Closed"
	if open {
		label = "Currently Open"
	}
	eta := now.Add(DeliveryLeadTime).In(h.loc)
	return Status{
		Open:              open,
		Label:             label,
		EstimatedDelivery: eta,
		DeliveryDate:      eta.Format("Monday, 2 January 2006"),
	}
}

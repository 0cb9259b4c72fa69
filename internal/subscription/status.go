// Package subscription derives a member's subscription standing from their
// end date and a reference time, and aggregates those standings into the
// dashboard buckets.
package subscription

import (
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/gymdash/internal/model"
)

// UpcomingWindowDays is how far ahead a subscription counts as expiring soon.
const UpcomingWindowDays = 7

var ErrInvalidDate = errors.New("subscription: invalid date")

type Status string

const (
	StatusActive       Status = "active"
	StatusExpiringSoon Status = "expiring_soon"
	StatusExpiresToday Status = "expires_today"
	StatusExpired      Status = "expired"
)

// Result is the classification of one subscription end date.
type Result struct {
	Status Status `json:"status"`
	// Days is the signed number of calendar days from today to the end date.
	Days int    `json:"days"`
	Text string `json:"text"`
}

// Classify returns the status of a subscription ending on end, as seen at now.
// Days are counted in now's location.
func Classify(end model.Date, now time.Time) (Result, error) {
	if !end.Valid() || now.IsZero() {
		return Result{}, ErrInvalidDate
	}

	days := DaysUntil(end, now)
	switch {
	case days < 0:
		return Result{Status: StatusExpired, Days: days, Text: fmt.Sprintf("Expired %d days ago", -days)}, nil
	case days == 0:
		return Result{Status: StatusExpiresToday, Days: 0, Text: "Expires today"}, nil
	case days <= UpcomingWindowDays:
		return Result{Status: StatusExpiringSoon, Days: days, Text: fmt.Sprintf("Expires in %d days", days)}, nil
	default:
		return Result{Status: StatusActive, Days: days, Text: "Active"}, nil
	}
}

// ClassifyMember classifies m's subscription end date.
func ClassifyMember(m model.Member, now time.Time) (Result, error) {
	r, err := Classify(m.SubscriptionEndDate, now)
	if err != nil {
		return Result{}, fmt.Errorf("member %s: %w", m.ID, err)
	}
	return r, nil
}

// DaysUntil returns the calendar days between now's day and end.
func DaysUntil(end model.Date, now time.Time) int {
	return model.DateOf(now).DaysUntil(end)
}

// Badge is the short label shown next to a member in dashboard lists.
func (r Result) Badge() string {
	switch r.Status {
	case StatusExpiresToday:
		return "Today"
	case StatusExpiringSoon:
		return pluralDays(r.Days)
	case StatusExpired:
		return pluralDays(-r.Days) + " ago"
	default:
		return "Active"
	}
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

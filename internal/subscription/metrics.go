package subscription

import (
	"fmt"
	"math"
	"time"

	"github.com/dukerupert/gymdash/internal/model"
)

// Mode selects how "expired" and "active" compare an end date against now.
type Mode string

const (
	// ModeExact compares the end date's midnight against the exact instant
	// now. A member ending today is both in RenewalsToday and, once now is
	// past midnight, in Expired. ExpiredBadge counts elapsed days the same
	// way, so such a member reads "1 day ago" in the expired lists.
	ModeExact Mode = "exact"
	// ModeCalendarDay compares calendar days only, so the buckets never
	// disagree with Classify.
	ModeCalendarDay Mode = "calendar_day"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeExact:
		return ModeExact, nil
	case ModeCalendarDay:
		return ModeCalendarDay, nil
	}
	return "", fmt.Errorf("unknown expiry mode %q", s)
}

// Metrics holds the dashboard buckets. Every bucket preserves input order.
type Metrics struct {
	Total             int
	RenewalsToday     []model.Member
	UpcomingRenewals  []model.Member
	Expired           []model.Member
	ExpiredThisWeek   []model.Member
	ActiveMembers     []model.Member
	RenewedThisMonth  []model.Member
	RenewalPercentage int
	// Invalid lists ids of members with an unusable start or end date. They
	// count toward Total but are left out of the buckets that need that date.
	Invalid []string
}

// Aggregate partitions members into the dashboard buckets as of now.
func Aggregate(members []model.Member, now time.Time, mode Mode) Metrics {
	m := Metrics{
		Total:            len(members),
		RenewalsToday:    []model.Member{},
		UpcomingRenewals: []model.Member{},
		Expired:          []model.Member{},
		ExpiredThisWeek:  []model.Member{},
		ActiveMembers:    []model.Member{},
		RenewedThisMonth: []model.Member{},
		Invalid:          []string{},
	}

	today := model.DateOf(now)
	monthStart := model.NewDate(today.Year, today.Month, 1)
	weekAgo := now.Add(-UpcomingWindowDays * 24 * time.Hour)

	for _, member := range members {
		start := member.SubscriptionStartDate
		end := member.SubscriptionEndDate
		if !start.Valid() || !end.Valid() {
			m.Invalid = append(m.Invalid, member.ID)
		}

		if start.Valid() && !start.Before(monthStart) {
			m.RenewedThisMonth = append(m.RenewedThisMonth, member)
		}

		if !end.Valid() {
			continue
		}

		days := today.DaysUntil(end)
		if days == 0 {
			m.RenewalsToday = append(m.RenewalsToday, member)
		}
		if days > 0 && days <= UpcomingWindowDays {
			m.UpcomingRenewals = append(m.UpcomingRenewals, member)
		}

		var expired, expiredThisWeek bool
		switch mode {
		case ModeCalendarDay:
			expired = days < 0
			expiredThisWeek = expired && days >= -UpcomingWindowDays
		default:
			endAt := end.In(now.Location())
			expired = endAt.Before(now)
			expiredThisWeek = expired && !endAt.Before(weekAgo)
		}

		if expired {
			m.Expired = append(m.Expired, member)
		} else {
			m.ActiveMembers = append(m.ActiveMembers, member)
		}
		if expiredThisWeek {
			m.ExpiredThisWeek = append(m.ExpiredThisWeek, member)
		}
	}

	m.RenewalPercentage = Percentage(len(m.RenewedThisMonth), m.Total)
	return m
}

// ExpiredBadge is the "N days ago" label for a member listed in Expired or
// ExpiredThisWeek. In ModeExact it rounds the time elapsed since the end
// date's midnight up to whole days, matching how that mode decides expiry.
func ExpiredBadge(end model.Date, now time.Time, mode Mode) (string, error) {
	if mode == ModeCalendarDay {
		r, err := Classify(end, now)
		if err != nil {
			return "", err
		}
		return r.Badge(), nil
	}
	if !end.Valid() || now.IsZero() {
		return "", ErrInvalidDate
	}
	elapsed := now.Unix() - end.In(now.Location()).Unix()
	days := int((elapsed + secondsPerDay - 1) / secondsPerDay)
	if elapsed <= 0 {
		days = 0
	}
	return pluralDays(days) + " ago", nil
}

const secondsPerDay = 24 * 60 * 60

// Percentage returns part/total as a rounded whole percentage, or 0 when
// total is 0.
func Percentage(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

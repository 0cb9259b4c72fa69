package subscription

import (
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/gymdash/internal/model"
)

type Filter string

const (
	FilterAll     Filter = "all"
	FilterActive  Filter = "active"
	FilterExpired Filter = "expired"
)

func ParseFilter(s string) (Filter, error) {
	switch Filter(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterActive:
		return FilterActive, nil
	case FilterExpired:
		return FilterExpired, nil
	}
	return "", fmt.Errorf("unknown status filter %q", s)
}

// FilterMembers keeps members whose name or email contains query
// (case-insensitive) and whose status passes f. Active includes members that
// expire today or soon. Members with an invalid end date only pass FilterAll.
func FilterMembers(members []model.Member, query string, f Filter, now time.Time) []model.Member {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Member, 0, len(members))
	for _, m := range members {
		if query != "" && !matchesQuery(m, query) {
			continue
		}
		if f == FilterAll || f == "" {
			out = append(out, m)
			continue
		}
		r, err := Classify(m.SubscriptionEndDate, now)
		if err != nil {
			continue
		}
		expired := r.Status == StatusExpired
		if (f == FilterExpired) == expired {
			out = append(out, m)
		}
	}
	return out
}

func matchesQuery(m model.Member, query string) bool {
	return strings.Contains(strings.ToLower(m.FirstName), query) ||
		strings.Contains(strings.ToLower(m.LastName), query) ||
		strings.Contains(strings.ToLower(m.Email), query)
}

package subscription

import (
	"testing"
	"time"

	"github.com/dukerupert/gymdash/internal/model"
)

func TestFilterMembers(t *testing.T) {
	now := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
	start := model.NewDate(2024, 1, 1)

	ada := member("ada", start, model.NewDate(2024, 6, 15))
	ada.FirstName, ada.LastName, ada.Email = "Ada", "Lovelace", "ada@engine.org"
	alan := member("alan", start, model.NewDate(2024, 5, 1))
	alan.FirstName, alan.LastName, alan.Email = "Alan", "Turing", "alan@bletchley.uk"
	grace := member("grace", start, model.NewDate(2024, 9, 1))
	grace.FirstName, grace.LastName, grace.Email = "Grace", "Hopper", "grace@navy.mil"
	broken := member("broken", start, model.Date{})
	broken.FirstName = "Broken"

	members := []model.Member{ada, alan, grace, broken}

	tests := []struct {
		name   string
		query  string
		filter Filter
		want   []string
	}{
		{"all", "", FilterAll, []string{"ada", "alan", "grace", "broken"}},
		{"active includes today", "", FilterActive, []string{"ada", "grace"}},
		{"expired", "", FilterExpired, []string{"alan"}},
		{"search first name", "ALA", FilterAll, []string{"alan"}},
		{"search last name", "hop", FilterAll, []string{"grace"}},
		{"search email", "engine.org", FilterAll, []string{"ada"}},
		{"search and filter", "a", FilterExpired, []string{"alan"}},
		{"no match", "zzz", FilterAll, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterMembers(members, tt.query, tt.filter, now)
			sameIDs(t, "filtered", got, tt.want...)
		})
	}
}

func TestParseFilter(t *testing.T) {
	for in, want := range map[string]Filter{"": FilterAll, "all": FilterAll, "Active": FilterActive, " expired ": FilterExpired} {
		got, err := ParseFilter(in)
		if err != nil || got != want {
			t.Errorf("ParseFilter(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFilter("lapsed"); err == nil {
		t.Error("expected error for unknown filter")
	}
}

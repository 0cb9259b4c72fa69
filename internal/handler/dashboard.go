package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/gymdash/internal/model"
	"github.com/dukerupert/gymdash/internal/store"
	"github.com/dukerupert/gymdash/internal/subscription"
)

const defaultExpiredLimit = 5

type DashboardHandler struct {
	store  *store.MemberStore
	now    func() time.Time
	mode   subscription.Mode
	logger *slog.Logger
}

func NewDashboardHandler(s *store.MemberStore, now func() time.Time, mode subscription.Mode, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{store: s, now: now, mode: mode, logger: logger}
}

// memberSummary is the compact row shown in dashboard lists.
type memberSummary struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	PictureURL          *string    `json:"picture_url,omitempty"`
	SubscriptionEndDate model.Date `json:"subscription_end_date"`
	Badge               string     `json:"badge,omitempty"`
}

type dashboardCounts struct {
	Total            int `json:"total"`
	RenewalsToday    int `json:"renewals_today"`
	UpcomingRenewals int `json:"upcoming_renewals"`
	Expired          int `json:"expired"`
	ExpiredThisWeek  int `json:"expired_this_week"`
	ActiveMembers    int `json:"active_members"`
	RenewedThisMonth int `json:"renewed_this_month"`
}

type dashboardResponse struct {
	GeneratedAt       time.Time         `json:"generated_at"`
	Mode              subscription.Mode `json:"mode"`
	Counts            dashboardCounts   `json:"counts"`
	RenewalPercentage int               `json:"renewal_percentage"`
	RenewalsToday     []memberSummary   `json:"renewals_today"`
	UpcomingRenewals  []memberSummary   `json:"upcoming_renewals"`
	Expired           []memberSummary   `json:"expired"`
	ExpiredMore       int               `json:"expired_more"`
	ExpiredThisWeek   []memberSummary   `json:"expired_this_week"`
	RenewedThisMonth  []memberSummary   `json:"renewed_this_month"`
	Invalid           []string          `json:"invalid"`
}

func summarize(members []model.Member, now time.Time) []memberSummary {
	return summarizeWith(members, func(m model.Member) string {
		r, err := subscription.ClassifyMember(m, now)
		if err != nil {
			return ""
		}
		return r.Badge()
	})
}

func summarizeExpired(members []model.Member, now time.Time, mode subscription.Mode) []memberSummary {
	return summarizeWith(members, func(m model.Member) string {
		badge, err := subscription.ExpiredBadge(m.SubscriptionEndDate, now, mode)
		if err != nil {
			return ""
		}
		return badge
	})
}

func summarizeWith(members []model.Member, badge func(model.Member) string) []memberSummary {
	out := make([]memberSummary, 0, len(members))
	for _, m := range members {
		s := memberSummary{
			ID:                  m.ID,
			Name:                m.FullName(),
			Email:               m.Email,
			PictureURL:          m.PictureURL,
			SubscriptionEndDate: m.SubscriptionEndDate,
			Badge:               badge(m),
		}
		out = append(out, s)
	}
	return out
}

// Get returns the dashboard metrics. The expired list is cut to
// ?expired_limit= entries (default 5) and the rest is reported as expired_more.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	limit := defaultExpiredLimit
	if v := r.URL.Query().Get("expired_limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "expired_limit must be a non-negative integer")
			return
		}
		limit = n
	}

	members, err := h.store.List()
	if err != nil {
		h.logger.Error("list members for dashboard", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	now := h.now()
	m := subscription.Aggregate(members, now, h.mode)
	if len(m.Invalid) > 0 {
		h.logger.Warn("members with invalid subscription dates", "count", len(m.Invalid), "ids", m.Invalid)
	}

	expired := m.Expired
	more := 0
	if len(expired) > limit {
		more = len(expired) - limit
		expired = expired[:limit]
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		GeneratedAt: now,
		Mode:        h.mode,
		Counts: dashboardCounts{
			Total:            m.Total,
			RenewalsToday:    len(m.RenewalsToday),
			UpcomingRenewals: len(m.UpcomingRenewals),
			Expired:          len(m.Expired),
			ExpiredThisWeek:  len(m.ExpiredThisWeek),
			ActiveMembers:    len(m.ActiveMembers),
			RenewedThisMonth: len(m.RenewedThisMonth),
		},
		RenewalPercentage: m.RenewalPercentage,
		RenewalsToday:     summarize(m.RenewalsToday, now),
		UpcomingRenewals:  summarize(m.UpcomingRenewals, now),
		Expired:           summarizeExpired(expired, now, h.mode),
		ExpiredMore:       more,
		ExpiredThisWeek:   summarizeExpired(m.ExpiredThisWeek, now, h.mode),
		RenewedThisMonth:  summarize(m.RenewedThisMonth, now),
		Invalid:           m.Invalid,
	})
}

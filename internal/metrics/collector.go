// Package metrics exposes the dashboard numbers as Prometheus gauges. Values
// are computed from the member store at scrape time.
package metrics

import (
	"time"

	"github.com/dukerupert/gymdash/internal/model"
	"github.com/dukerupert/gymdash/internal/subscription"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gymdash"

type MemberLister interface {
	List() ([]model.Member, error)
}

type Collector struct {
	members MemberLister
	now     func() time.Time
	mode    subscription.Mode

	total      *prometheus.Desc
	bucket     *prometheus.Desc
	percentage *prometheus.Desc
	invalid    *prometheus.Desc
}

func NewCollector(members MemberLister, now func() time.Time, mode subscription.Mode) *Collector {
	return &Collector{
		members: members,
		now:     now,
		mode:    mode,
		total: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "members_total"),
			"Number of members on the roster.",
			nil, nil,
		),
		bucket: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "members"),
			"Number of members in each dashboard bucket.",
			[]string{"bucket"}, nil,
		),
		percentage: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "renewal_percentage"),
			"Share of members whose subscription started this month, 0-100.",
			nil, nil,
		),
		invalid: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "members_invalid"),
			"Number of members with an unusable subscription date.",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.bucket
	ch <- c.percentage
	ch <- c.invalid
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	members, err := c.members.List()
	if err != nil {
		ch <- prometheus.NewInvalidMetric(c.total, err)
		return
	}

	m := subscription.Aggregate(members, c.now(), c.mode)

	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(m.Total))
	for name, bucket := range map[string][]model.Member{
		"renewals_today":     m.RenewalsToday,
		"upcoming_renewals":  m.UpcomingRenewals,
		"expired":            m.Expired,
		"expired_this_week":  m.ExpiredThisWeek,
		"active":             m.ActiveMembers,
		"renewed_this_month": m.RenewedThisMonth,
	} {
		ch <- prometheus.MustNewConstMetric(c.bucket, prometheus.GaugeValue, float64(len(bucket)), name)
	}
	ch <- prometheus.MustNewConstMetric(c.percentage, prometheus.GaugeValue, float64(m.RenewalPercentage))
	ch <- prometheus.MustNewConstMetric(c.invalid, prometheus.GaugeValue, float64(len(m.Invalid)))
}

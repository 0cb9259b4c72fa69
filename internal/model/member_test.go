package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-06-15")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d != (Date{Year: 2024, Month: time.June, Day: 15}) {
		t.Errorf("date = %+v", d)
	}
	if d.String() != "2024-06-15" {
		t.Errorf("string = %q", d.String())
	}

	for _, bad := range []string{"", "2024-13-01", "15/06/2024", "2024-06-31", "tomorrow"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("ParseDate(%q) err = %v, want ErrInvalidDate", bad, err)
		}
	}
}

func TestDaysUntil(t *testing.T) {
	tests := []struct {
		from, to string
		want     int
	}{
		{"2024-06-15", "2024-06-15", 0},
		{"2024-06-15", "2024-06-20", 5},
		{"2024-06-15", "2024-06-10", -5},
		{"2024-02-28", "2024-03-01", 2},
		{"2023-12-31", "2024-01-01", 1},
		{"2024-03-09", "2024-03-11", 2},
		{"2024-06-15", "1500-01-01", -191553},
		{"2024-06-15", "0001-01-01", -739051},
		{"2024-06-15", "9999-12-31", 2913007},
		{"0001-01-01", "9999-12-31", 3652058},
	}
	for _, tt := range tests {
		from, _ := ParseDate(tt.from)
		to, _ := ParseDate(tt.to)
		if got := from.DaysUntil(to); got != tt.want {
			t.Errorf("%s -> %s = %d, want %d", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestDateOfUsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	instant := time.Date(2024, 6, 15, 20, 0, 0, 0, time.UTC)

	if got := DateOf(instant.In(tokyo)); got != NewDate(2024, 6, 16) {
		t.Errorf("tokyo date = %v, want 2024-06-16", got)
	}
	if got := DateOf(instant); got != NewDate(2024, 6, 15) {
		t.Errorf("utc date = %v, want 2024-06-15", got)
	}
}

func TestDateJSON(t *testing.T) {
	var v struct {
		D Date `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"d":"2024-07-01"}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.D != NewDate(2024, 7, 1) {
		t.Errorf("date = %v", v.D)
	}

	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"d":"2024-07-01"}` {
		t.Errorf("json = %s", out)
	}

	if err := json.Unmarshal([]byte(`{"d":"07/01/2024"}`), &v); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("err = %v, want ErrInvalidDate", err)
	}

	var zero struct {
		D Date `json:"d"`
	}
	out, _ = json.Marshal(zero)
	if string(out) != `{"d":null}` {
		t.Errorf("zero json = %s", out)
	}
}

func TestDateScan(t *testing.T) {
	var d Date
	if err := d.Scan("2024-06-15"); err != nil || d != NewDate(2024, 6, 15) {
		t.Errorf("scan string: %v %v", d, err)
	}
	if err := d.Scan([]byte("2024-01-02")); err != nil || d != NewDate(2024, 1, 2) {
		t.Errorf("scan bytes: %v %v", d, err)
	}
	if err := d.Scan(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)); err != nil || d != NewDate(2024, 3, 4) {
		t.Errorf("scan time: %v %v", d, err)
	}
	if err := d.Scan("garbage"); err != nil {
		t.Errorf("scan garbage: %v", err)
	}
	if d.Valid() {
		t.Errorf("garbage should scan to the invalid date, got %v", d)
	}
	if err := d.Scan(42); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestMemberPatchApply(t *testing.T) {
	phone := "555-0100"
	m := Member{
		ID:                    "abc",
		FirstName:             "Ada",
		LastName:              "Lovelace",
		Email:                 "ada@example.com",
		PhoneNumber:           &phone,
		SubscriptionStartDate: NewDate(2024, 1, 1),
		SubscriptionEndDate:   NewDate(2024, 12, 31),
	}

	first := "Augusta"
	empty := ""
	end := NewDate(2025, 6, 30)
	got := MemberPatch{FirstName: &first, PhoneNumber: &empty, SubscriptionEndDate: &end}.Apply(m)

	if got.FirstName != "Augusta" {
		t.Errorf("first name = %q", got.FirstName)
	}
	if got.LastName != "Lovelace" {
		t.Errorf("last name should be unchanged, got %q", got.LastName)
	}
	if got.PhoneNumber != nil {
		t.Errorf("phone = %v, want cleared", *got.PhoneNumber)
	}
	if got.SubscriptionEndDate != end {
		t.Errorf("end = %v", got.SubscriptionEndDate)
	}
	if m.FirstName != "Ada" || m.PhoneNumber == nil {
		t.Error("apply must not mutate the original member")
	}
}

func TestMemberInputTrimsOptionalFields(t *testing.T) {
	blank := "   "
	url := " https://example.com/a.png "
	m := MemberInput{FirstName: "A", PhoneNumber: &blank, PictureURL: &url}.Member()
	if m.PhoneNumber != nil {
		t.Error("blank phone should be nil")
	}
	if m.PictureURL == nil || *m.PictureURL != "https://example.com/a.png" {
		t.Errorf("picture url = %v", m.PictureURL)
	}
	if m.FullName() != "A" {
		t.Errorf("full name = %q", m.FullName())
	}
}

package model

import (
	"strings"
	"time"
)

type Member struct {
	ID                    string    `json:"id"`
	FirstName             string    `json:"first_name"`
	LastName              string    `json:"last_name"`
	Email                 string    `json:"email"`
	PhoneNumber           *string   `json:"phone_number,omitempty"`
	PictureURL            *string   `json:"picture_url,omitempty"`
	SubscriptionStartDate Date      `json:"subscription_start_date"`
	SubscriptionEndDate   Date      `json:"subscription_end_date"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func (m Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// MemberInput is a new member before the store assigns its id and timestamps.
type MemberInput struct {
	FirstName             string  `json:"first_name"`
	LastName              string  `json:"last_name"`
	Email                 string  `json:"email"`
	PhoneNumber           *string `json:"phone_number"`
	PictureURL            *string `json:"picture_url"`
	SubscriptionStartDate Date    `json:"subscription_start_date"`
	SubscriptionEndDate   Date    `json:"subscription_end_date"`
}

// Member returns the input as an unsaved Member.
func (in MemberInput) Member() Member {
	return Member{
		FirstName:             in.FirstName,
		LastName:              in.LastName,
		Email:                 in.Email,
		PhoneNumber:           emptyToNil(in.PhoneNumber),
		PictureURL:            emptyToNil(in.PictureURL),
		SubscriptionStartDate: in.SubscriptionStartDate,
		SubscriptionEndDate:   in.SubscriptionEndDate,
	}
}

// MemberPatch holds a partial update. Nil fields are left unchanged; an empty
// phone number or picture URL clears the stored value.
type MemberPatch struct {
	FirstName             *string `json:"first_name"`
	LastName              *string `json:"last_name"`
	Email                 *string `json:"email"`
	PhoneNumber           *string `json:"phone_number"`
	PictureURL            *string `json:"picture_url"`
	SubscriptionStartDate *Date   `json:"subscription_start_date"`
	SubscriptionEndDate   *Date   `json:"subscription_end_date"`
}

// Apply returns a copy of m with the patch applied.
func (p MemberPatch) Apply(m Member) Member {
	if p.FirstName != nil {
		m.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		m.LastName = *p.LastName
	}
	if p.Email != nil {
		m.Email = *p.Email
	}
	if p.PhoneNumber != nil {
		m.PhoneNumber = emptyToNil(p.PhoneNumber)
	}
	if p.PictureURL != nil {
		m.PictureURL = emptyToNil(p.PictureURL)
	}
	if p.SubscriptionStartDate != nil {
		m.SubscriptionStartDate = *p.SubscriptionStartDate
	}
	if p.SubscriptionEndDate != nil {
		m.SubscriptionEndDate = *p.SubscriptionEndDate
	}
	return m
}

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

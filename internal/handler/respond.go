package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"net/url"
	"strings"

	"github.com/dukerupert/gymdash/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeError turns a request body decode failure into a client message.
func decodeError(err error) string {
	if errors.Is(err, model.ErrInvalidDate) {
		return "dates must be in YYYY-MM-DD format"
	}
	return "invalid JSON"
}

// validateMember checks a member about to be saved and returns a message
// describing the first problem found.
func validateMember(m model.Member) error {
	switch {
	case m.FirstName == "":
		return errors.New("first_name is required")
	case m.LastName == "":
		return errors.New("last_name is required")
	case m.Email == "":
		return errors.New("email is required")
	}

	addr, err := mail.ParseAddress(m.Email)
	if err != nil || addr.Address != m.Email {
		return errors.New("email must be a valid address")
	}

	if !m.SubscriptionStartDate.Valid() {
		return errors.New("subscription_start_date is required")
	}
	if !m.SubscriptionEndDate.Valid() {
		return errors.New("subscription_end_date is required")
	}
	if m.SubscriptionEndDate.Before(m.SubscriptionStartDate) {
		return errors.New("subscription_end_date must not be before subscription_start_date")
	}

	if m.PictureURL != nil {
		u, err := url.Parse(*m.PictureURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.New("picture_url must be an absolute http(s) URL")
		}
	}
	return nil
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/gymdash/internal/model"
	"github.com/google/uuid"
)

type MemberStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db, now: time.Now}
}

func scanMember(scanner interface{ Scan(...any) error }) (*model.Member, error) {
	var m model.Member
	var phone, picture sql.NullString

	err := scanner.Scan(
		&m.ID, &m.FirstName, &m.LastName, &m.Email, &phone, &picture,
		&m.SubscriptionStartDate, &m.SubscriptionEndDate, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if phone.Valid {
		m.PhoneNumber = &phone.String
	}
	if picture.Valid {
		m.PictureURL = &picture.String
	}
	return &m, nil
}

const memberCols = `id, first_name, last_name, email, phone_number, picture_url,
	subscription_start_date, subscription_end_date, created_at, updated_at`

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func (s *MemberStore) Create(in model.MemberInput) (*model.Member, error) {
	m := in.Member()
	id := uuid.NewString()
	now := s.now().UTC()

	_, err := s.db.Exec(
		`INSERT INTO members (`+memberCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, m.FirstName, m.LastName, m.Email, nullString(m.PhoneNumber), nullString(m.PictureURL),
		m.SubscriptionStartDate, m.SubscriptionEndDate, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	return s.GetByID(id)
}

// List returns all members, newest first.
func (s *MemberStore) List() ([]model.Member, error) {
	rows, err := s.db.Query(`SELECT ` + memberCols + ` FROM members ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *MemberStore) GetByID(id string) (*model.Member, error) {
	row := s.db.QueryRow(`SELECT `+memberCols+` FROM members WHERE id = ?`, id)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

// Update overwrites the stored row for m.ID with m's fields. Callers pass the
// member they validated so the row written is exactly that one. It returns
// nil, nil when no member has that id.
func (s *MemberStore) Update(m model.Member) (*model.Member, error) {
	res, err := s.db.Exec(
		`UPDATE members SET first_name = ?, last_name = ?, email = ?, phone_number = ?, picture_url = ?,
			subscription_start_date = ?, subscription_end_date = ?, updated_at = ?
		WHERE id = ?`,
		m.FirstName, m.LastName, m.Email, nullString(m.PhoneNumber), nullString(m.PictureURL),
		m.SubscriptionStartDate, m.SubscriptionEndDate, s.now().UTC(), m.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetByID(m.ID)
}

func (s *MemberStore) Delete(id string) error {
	_, err := s.db.Exec("DELETE FROM members WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return nil
}

// EmailExists reports whether another member already uses email, ignoring
// case. excludeID skips the member being edited.
func (s *MemberStore) EmailExists(email, excludeID string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM members WHERE email = ? COLLATE NOCASE AND id != ?",
		email, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}
	return count > 0, nil
}

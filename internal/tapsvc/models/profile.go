package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type SocialLinks struct {
	LinkedIn  string `json:"linkedin"`
	Twitter   string `json:"twitter"`
	Website   string `json:"website"`
	Instagram string `json:"instagram"`
}

// Profile represents the profiles table. ID equals the auth user id.
type Profile struct {
	ID          uuid.UUID   `json:"id"`
	Username    string      `json:"username"`
	FullName    *string     `json:"full_name"`
	JobTitle    *string     `json:"job_title"`
	CompanyName *string     `json:"company_name"`
	Bio         *string     `json:"bio"`
	AvatarURL   *string     `json:"avatar_url"`
	SocialLinks SocialLinks `json:"social_links"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// DisplayName falls back to the username when no full name is set.
func (p *Profile) DisplayName() string {
	if s := Deref(p.FullName); s != "" {
		return s
	}
	return p.Username
}

// DecodeSocialLinks tolerates NULL and partial objects.
func DecodeSocialLinks(raw []byte) (SocialLinks, error) {
	var links SocialLinks
	if len(raw) == 0 || string(raw) == "null" {
		return links, nil
	}
	err := json.Unmarshal(raw, &links)
	return links, err
}

func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// NullIfEmpty maps "" to NULL for optional text columns.
func NullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

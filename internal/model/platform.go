// internal/model/platform.go
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

type PlatformType string

const (
	PlatformTwitter   PlatformType = "twitter"
	PlatformLinkedIn  PlatformType = "linkedin"
	PlatformFacebook  PlatformType = "facebook"
	PlatformInstagram PlatformType = "instagram"
)

type Platform struct {
	ID        int64            `db:"id" json:"id"`
	UserID    int64            `db:"user_id" json:"userId"`
	Name      string           `db:"name" json:"name"`
	Type      PlatformType     `db:"platform_type" json:"platformType"`
	Settings  PlatformSettings `db:"settings" json:"settings,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
}

// PlatformSettings is the per-platform configuration variant, keyed by PlatformType.
type PlatformSettings interface {
	PlatformType() PlatformType
}

type TwitterSettings struct {
	Handle string `json:"handle"`
}

type LinkedInSettings struct {
	OrganizationURN    string `json:"organizationUrn,omitempty"`
	PostAsOrganization bool   `json:"postAsOrganization"`
}

type FacebookSettings struct {
	PageID string `json:"pageId"`
}

type InstagramSettings struct {
	BusinessAccountID string `json:"businessAccountId"`
}

func (TwitterSettings) PlatformType() PlatformType   { return PlatformTwitter }
func (LinkedInSettings) PlatformType() PlatformType  { return PlatformLinkedIn }
func (FacebookSettings) PlatformType() PlatformType  { return PlatformFacebook }
func (InstagramSettings) PlatformType() PlatformType { return PlatformInstagram }

// DecodePlatformSettings decodes raw JSON settings for the given platform type.
// Empty or null input yields the zero settings value of that type.
func DecodePlatformSettings(t PlatformType, raw []byte) (PlatformSettings, error) {
	var settings PlatformSettings
	switch t {
	case PlatformTwitter:
		settings = &TwitterSettings{}
	case PlatformLinkedIn:
		settings = &LinkedInSettings{}
	case PlatformFacebook:
		settings = &FacebookSettings{}
	case PlatformInstagram:
		settings = &InstagramSettings{}
	default:
		return nil, fmt.Errorf("unknown platform type %q", t)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return settings, nil
	}
	if err := json.Unmarshal(raw, settings); err != nil {
		return nil, fmt.Errorf("decode %s settings: %w", t, err)
	}
	return settings, nil
}

// EncodePlatformSettings returns the JSON stored for s. A nil value encodes as "{}".
func EncodePlatformSettings(s PlatformSettings) ([]byte, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s)
}

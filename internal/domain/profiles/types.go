package profiles

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound          = errors.New("profile not found")
	ErrDuplicateEmail    = errors.New("a profile with that email already exists")
	QueryTimeoutDuration = time.Second * 5
)

// Tier gates how many reviews a sponsor may submit per quota window.
type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierTeam       Tier = "team"
	TierEnterprise Tier = "enterprise"
)

func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierPro, TierTeam, TierEnterprise:
		return true
	}
	return false
}

// Unlimited reports whether the tier is exempt from the monthly review quota.
func (t Tier) Unlimited() bool {
	return t.Valid() && t != TierFree
}

const (
	RoleSponsor   = "sponsor"
	RoleModerator = "moderator"
)

type Profile struct {
	ID                 int64     `json:"id"`
	Email              string    `json:"email"`
	FullName           string    `json:"full_name"`
	Role               string    `json:"role"`
	CompanyID          *int64    `json:"company_id,omitempty"`
	CompanyName        *string   `json:"company_name,omitempty"`
	CompanyDomain      *string   `json:"-"`
	LinkedInURL        *string   `json:"linkedin_url,omitempty"`
	Tier               Tier      `json:"subscription_tier"`
	SubscriptionStatus string    `json:"subscription_status"`
	IsActive           bool      `json:"is_active"`
	Password           password  `json:"-"`
	RefreshToken       string    `json:"-"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Password holder keeping plaintext (transient) and hash together.
type password struct {
	text *string
	hash []byte
}

func (p *password) Set(text string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(text), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	p.text = &text
	p.hash = hash

	return nil
}

func (p *password) Compare(text string) error {
	return bcrypt.CompareHashAndPassword(p.hash, []byte(text))
}

// Hash exposes the stored hash for persistence.
func (p *password) Hash() []byte { return p.hash }

// SetHash restores a hash loaded from the store.
func (p *password) SetHash(hash []byte) { p.hash = hash }

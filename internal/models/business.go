package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// BusinessProfile holds the public-facing contact details editable from the
// business portal.
type BusinessProfile struct {
	Name        string `bson:"name" json:"name"`
	Address     string `bson:"address" json:"address"`
	PhoneNumber string `bson:"phone_number" json:"phone_number"`
	WebsiteURL  string `bson:"website_url" json:"website_url"`
	Email       string `bson:"email" json:"email"`
}

// FormCustomization styles the guest feedback form for one business.
type FormCustomization struct {
	BusinessName     string `bson:"business_name" json:"business_name"`
	PrimaryColor     string `bson:"primary_color" json:"primary_color"`
	AccentColor      string `bson:"accent_color" json:"accent_color"`
	HeaderText       string `bson:"header_text" json:"header_text"`
	RatingPrompt     string `bson:"rating_prompt" json:"rating_prompt"`
	FeedbackPrompt   string `bson:"feedback_prompt" json:"feedback_prompt"`
	SubmitButtonText string `bson:"submit_button_text" json:"submit_button_text"`
}

// Reward types.
const (
	RewardTypePercentageDiscount = "percentage_discount"
	RewardTypeFreeItem           = "free_item"
)

// Reward is an offer a business hands out in exchange for feedback.
type Reward struct {
	ID           string `bson:"id" json:"id"`
	Title        string `bson:"title" json:"title"`
	Description  string `bson:"description" json:"description"`
	Type         string `bson:"type" json:"type"`
	Value        string `bson:"value" json:"value"`
	PromoCode    string `bson:"promo_code" json:"promo_code"`
	ValidityDays int    `bson:"validity_days" json:"validity_days"`
	Terms        string `bson:"terms" json:"terms"`
	Active       bool   `bson:"active" json:"active"`
}

// Business is the tenant document. All feedback and configuration are scoped
// to it; flagging_threshold and resolved_review_ids drive the triage engine.
type Business struct {
	ID              bson.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerEmail      string        `bson:"owner_email" json:"owner_email"`
	BusinessProfile `bson:",inline"`

	Customization FormCustomization `bson:"customization" json:"customization"`
	Rewards       []Reward          `bson:"rewards" json:"rewards"`

	FlaggingThreshold int      `bson:"flagging_threshold" json:"flagging_threshold"`
	ResolvedReviewIDs []string `bson:"resolved_review_ids" json:"resolved_review_ids"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ActiveReward returns the first active reward, or nil when none is
// configured. The submission flow attaches it to high-rating responses.
func (b *Business) ActiveReward() *Reward {
	for i := range b.Rewards {
		if b.Rewards[i].Active {
			return &b.Rewards[i]
		}
	}
	return nil
}

// Package triage derives the service-dashboard view from a business's raw
// feedback stream: time-range filtering, per-record tagging, aggregate
// statistics and the unresolved-flagged action-item queue. Everything here is
// recomputed in full from the latest snapshot; nothing derived is persisted.
package triage

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"qrfeedback-backend/internal/models"
)

// Tag classifies a review for display.
type Tag string

const (
	TagNew      Tag = "new"
	TagFlagged  Tag = "flagged"
	TagReviewed Tag = "reviewed"
	TagNone     Tag = "none"
)

const (
	// DefaultThreshold flags ratings of 2 stars or less out of the box.
	DefaultThreshold = 2
	// MinThreshold and MaxThreshold bound the configurable flagging
	// threshold. The upper bound is the full rating scale, so a business can
	// flag every review for follow-up if it wants to.
	MinThreshold = 1
	MaxThreshold = 5

	// staleAfter is how long an unflagged review keeps demanding attention.
	staleAfter = 7 * 24 * time.Hour

	// recentLimit caps the recent-reviews list delivered to the dashboard.
	recentLimit = 20

	// rewardMinRating is the rating at or above which a review earns a reward.
	rewardMinRating = 4

	// FlagReason annotates every action-queue item.
	FlagReason = "Low rating feedback"

	defaultReviewer    = "Customer"
	placeholderComment = "No comment provided"
)

// ErrInvalidThreshold is returned when a threshold outside
// [MinThreshold, MaxThreshold] is requested.
var ErrInvalidThreshold = fmt.Errorf("flagging threshold must be between %d and %d", MinThreshold, MaxThreshold)

// ErrUnavailable signals that the feedback store could not deliver a
// snapshot; callers must surface an explicit error state instead of showing a
// stale or empty list.
var ErrUnavailable = errors.New("feedback store unavailable")

// Config is the per-business triage configuration: the flagging threshold and
// the set of review IDs staff marked resolved.
type Config struct {
	Threshold int
	resolved  map[string]struct{}
}

// NewConfig builds a Config from the persisted business fields. Thresholds
// outside the allowed set fall back to DefaultThreshold.
func NewConfig(threshold int, resolvedIDs []string) Config {
	if threshold < MinThreshold || threshold > MaxThreshold {
		threshold = DefaultThreshold
	}
	resolved := make(map[string]struct{}, len(resolvedIDs))
	for _, id := range resolvedIDs {
		resolved[id] = struct{}{}
	}
	return Config{Threshold: threshold, resolved: resolved}
}

// Resolved reports whether id has been marked resolved.
func (c Config) Resolved(id string) bool {
	_, ok := c.resolved[id]
	return ok
}

// Resolve adds id to the resolved set. Resolving twice is a no-op.
func (c *Config) Resolve(id string) {
	if c.resolved == nil {
		c.resolved = make(map[string]struct{})
	}
	c.resolved[id] = struct{}{}
}

// Unresolve removes id from the resolved set, returning the review to the
// flagged state. The underlying record is untouched.
func (c *Config) Unresolve(id string) {
	delete(c.resolved, id)
}

// ResolvedIDs returns the resolved set in sorted order.
func (c Config) ResolvedIDs() []string {
	ids := make([]string, 0, len(c.resolved))
	for id := range c.resolved {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Classify computes the display tag for one record. Precedence, first match
// wins: resolved, flagged (rating <= threshold), stale (older than 7 days),
// new. The tag is a pure function of its inputs and is never stored.
func Classify(rec models.Feedback, cfg Config, now time.Time) Tag {
	switch {
	case cfg.Resolved(rec.ID.Hex()):
		return TagReviewed
	case rec.Rating <= cfg.Threshold:
		return TagFlagged
	case !rec.CreatedAt.IsZero() && now.Sub(rec.CreatedAt) > staleAfter:
		return TagNone
	default:
		return TagNew
	}
}

// Stats are the aggregate numbers for the currently selected time range.
// Resolution state never feeds into them.
type Stats struct {
	TotalReviews    int     `json:"total_reviews"`
	AvgRating       float64 `json:"avg_rating"`
	RewardsEligible int     `json:"rewards_eligible"`
}

// ComputeStats aggregates the range-filtered record set. AvgRating is the
// arithmetic mean rounded to one decimal, 0 when there are no records.
// RewardsEligible counts reviews rated highly enough to earn a reward.
func ComputeStats(records []models.Feedback) Stats {
	s := Stats{TotalReviews: len(records)}
	if len(records) == 0 {
		return s
	}
	total := 0
	for _, rec := range records {
		total += rec.Rating
		if rec.Rating >= rewardMinRating {
			s.RewardsEligible++
		}
	}
	s.AvgRating = math.Round(float64(total)/float64(len(records))*10) / 10
	return s
}

// DerivedReview is a feedback record plus its computed display annotations.
type DerivedReview struct {
	ID       string `json:"id"`
	Reviewer string `json:"reviewer"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment"`
	Tag      Tag    `json:"tag"`
	TimeAgo  string `json:"time_ago"`
	Reason   string `json:"reason,omitempty"`
}

// View is everything the presentation layer needs to render the dashboard.
type View struct {
	Stats             Stats           `json:"stats"`
	Reviews           []DerivedReview `json:"reviews"`
	UnresolvedFlagged []DerivedReview `json:"unresolved_flagged"`
	SelectedRange     Range           `json:"selected_range"`
	Threshold         int             `json:"threshold"`
}

// BuildView recomputes the full dashboard view from a snapshot: range filter,
// then aggregates over the filtered set, then per-record classification.
// Records are expected newest first, as the store delivers them; the reviews
// list is capped to the most recent entries while the action-item queue and
// the aggregates always cover the whole filtered set.
func BuildView(records []models.Feedback, cfg Config, rng Range, now time.Time) View {
	inRange := make([]models.Feedback, 0, len(records))
	for _, rec := range records {
		if rng.InRange(rec.CreatedAt, now) {
			inRange = append(inRange, rec)
		}
	}

	view := View{
		Stats:             ComputeStats(inRange),
		Reviews:           []DerivedReview{},
		UnresolvedFlagged: []DerivedReview{},
		SelectedRange:     rng,
		Threshold:         cfg.Threshold,
	}

	for _, rec := range inRange {
		derived := DerivedReview{
			ID:       rec.ID.Hex(),
			Reviewer: defaultReviewer,
			Rating:   rec.Rating,
			Comment:  rec.Comments,
			Tag:      Classify(rec, cfg, now),
			TimeAgo:  TimeAgo(rec.CreatedAt, now),
		}
		if derived.Comment == "" {
			derived.Comment = placeholderComment
		}
		if len(view.Reviews) < recentLimit {
			view.Reviews = append(view.Reviews, derived)
		}
		if derived.Tag == TagFlagged {
			flagged := derived
			flagged.Reason = FlagReason
			view.UnresolvedFlagged = append(view.UnresolvedFlagged, flagged)
		}
	}
	return view
}

// RewardEligible reports whether a rating qualifies for the business's
// configured reward.
func RewardEligible(rating int) bool {
	return rating >= rewardMinRating
}

// TimeAgo renders a human-readable relative age. A zero timestamp means the
// store has not assigned one yet, which reads as "Just now".
func TimeAgo(t, now time.Time) string {
	if t.IsZero() {
		return "Just now"
	}
	seconds := int(now.Sub(t).Seconds())
	if seconds < 60 {
		return "Just now"
	}
	minutes := seconds / 60
	if minutes < 60 {
		return plural(minutes, "minute")
	}
	hours := minutes / 60
	if hours < 24 {
		return plural(hours, "hour")
	}
	return plural(hours/24, "day")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

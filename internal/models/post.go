// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// PostType is the closed set of post kinds.
type PostType string

const (
	// PostTypePost is a regular top-level post.
	PostTypePost PostType = "post"
	// PostTypeReply is a reply to another post.
	PostTypeReply PostType = "reply"
)

// ValidPostType reports whether t is a member of the closed type enum.
func ValidPostType(t PostType) bool {
	return t == PostTypePost || t == PostTypeReply
}

// PostStatus is the lifecycle state of a post.
type PostStatus string

const (
	// PostStatusActive is the state of every post after creation.
	PostStatusActive PostStatus = "active"
	// PostStatusDeleted is the terminal state after a soft delete.
	PostStatusDeleted PostStatus = "deleted"
)

// Post represents a tweet or a reply.
//
// DeletedAt is intentionally a plain *time.Time rather than gorm.DeletedAt:
// soft-deleted posts must stay addressable by direct id lookup while being
// excluded from listings, and GORM's automatic soft-delete scope would hide
// them from both. Listing queries add the deleted filter explicitly.
type Post struct {
	ID           uint  `gorm:"primaryKey" json:"id"`
	UserID       uint  `gorm:"not null;index" json:"user_id"`
	User         *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ParentPostID *uint `gorm:"index" json:"parent_post_id,omitempty"`

	Content  string   `gorm:"type:text;not null" json:"content"`
	Type     PostType `gorm:"size:20;not null" json:"type"`
	Language string   `gorm:"size:10;not null;default:fr" json:"language"`

	LikesCount       int     `gorm:"not null;default:0" json:"likes_count"`
	RetweetsCount    int     `gorm:"not null;default:0" json:"retweets_count"`
	ViewsCount       int     `gorm:"not null;default:0" json:"views_count"`
	ImpressionsCount int     `gorm:"not null;default:0" json:"impressions_count"`
	ClicksCount      int     `gorm:"not null;default:0" json:"clicks_count"`
	EngagementScore  float64 `gorm:"not null;default:0" json:"engagement_score"`

	IsPinned bool       `gorm:"not null;default:false" json:"is_pinned"`
	Status   PostStatus `gorm:"size:20;not null" json:"status"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}

// Deleted reports whether the post has been soft-deleted.
func (p *Post) Deleted() bool {
	return p.DeletedAt != nil || p.Status == PostStatusDeleted
}

// EngagementCounters is the set of interaction counters a post carries.
type EngagementCounters struct {
	Likes       int
	Retweets    int
	Views       int
	Impressions int
	Clicks      int
}

// Counters returns the post's current counter values.
func (p *Post) Counters() EngagementCounters {
	return EngagementCounters{
		Likes:       p.LikesCount,
		Retweets:    p.RetweetsCount,
		Views:       p.ViewsCount,
		Impressions: p.ImpressionsCount,
		Clicks:      p.ClicksCount,
	}
}

// EngagementWeights are the policy parameters of the engagement score. The
// score is always a derived function of the counters; it is never accepted
// from API input.
type EngagementWeights struct {
	Likes       float64
	Retweets    float64
	Views       float64
	Impressions float64
	Clicks      float64
}

// DefaultEngagementWeights returns the weights used when none are configured.
func DefaultEngagementWeights() EngagementWeights {
	return EngagementWeights{
		Likes:       1.0,
		Retweets:    2.0,
		Views:       0.1,
		Impressions: 0.05,
		Clicks:      0.5,
	}
}

// EngagementScore computes the weighted score for the given counters.
// Counters are non-negative and so is every weight, so the result is >= 0;
// the floor guards against misconfigured negative weights.
func EngagementScore(c EngagementCounters, w EngagementWeights) float64 {
	score := w.Likes*float64(c.Likes) +
		w.Retweets*float64(c.Retweets) +
		w.Views*float64(c.Views) +
		w.Impressions*float64(c.Impressions) +
		w.Clicks*float64(c.Clicks)
	if score < 0 {
		return 0
	}
	return score
}

package domain

import "time"

// Category groups articles and is the unit users subscribe to.
type Category struct {
	ID           int64
	Name         string
	Slug         string
	Description  string
	ArticleCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Article is a published (or draft) piece of content. Premium articles are
// readable in full only after a purchase.
type Article struct {
	ID            int64
	Title         string
	Slug          string
	Excerpt       string
	Content       string
	CoverImageURL string
	CategoryID    int64
	CategoryName  string
	CategorySlug  string
	AuthorID      int64
	AuthorName    string
	IsPremium     bool
	PriceCents    int64
	Published     bool
	PublishedAt   *time.Time
	Views         int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ArticleFilter narrows article listings.
type ArticleFilter struct {
	CategorySlug  string
	Query         string
	PublishedOnly bool
	Limit         int
	Offset        int
}

type Comment struct {
	ID        int64
	ArticleID int64
	UserID    int64
	Username  string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Rating struct {
	ID        int64
	ArticleID int64
	UserID    int64
	Value     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RatingSummary aggregates the ratings of one article.
type RatingSummary struct {
	Average    float64
	Count      int
	UserRating int
}

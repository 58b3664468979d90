package domain

import "time"

type PageView struct {
	ID          int64
	Path        string
	ArticleID   *int64
	UserID      *int64
	Fingerprint string
	CreatedAt   time.Time
}

// DailyCount is one bucket of a per-day series, Day formatted YYYY-MM-DD.
type DailyCount struct {
	Day   string
	Count int64
}

type ArticleViews struct {
	ArticleID int64
	Title     string
	Slug      string
	Views     int64
}

// DashboardStats is the admin overview over a time window.
type DashboardStats struct {
	Users             int64
	Articles          int64
	PublishedArticles int64
	Comments          int64
	Payments          int64
	RevenueCents      int64
	ViewsPerDay       []DailyCount
	TopArticles       []ArticleViews
	Since             time.Time
}

package http

import (
	"time"

	"techanswers/internal/domain"
	"techanswers/internal/service"
)

type userResponse struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	Username         string    `json:"username"`
	IsAdmin          bool      `json:"isAdmin"`
	IsSuperAdmin     bool      `json:"isSuperAdmin"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	CreatedAt        time.Time `json:"createdAt"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:               u.ID,
		Email:            u.Email,
		Username:         u.Username,
		IsAdmin:          u.IsAdmin,
		IsSuperAdmin:     u.IsSuperAdmin,
		TwoFactorEnabled: u.TwoFactorEnabled,
		CreatedAt:        u.CreatedAt,
	}
}

type categoryResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Description  string `json:"description"`
	ArticleCount int    `json:"articleCount"`
}

func toCategoryResponse(c *domain.Category) categoryResponse {
	return categoryResponse{
		ID:           c.ID,
		Name:         c.Name,
		Slug:         c.Slug,
		Description:  c.Description,
		ArticleCount: c.ArticleCount,
	}
}

type articleResponse struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Excerpt       string     `json:"excerpt"`
	Content       string     `json:"content,omitempty"`
	CoverImageURL string     `json:"coverImageUrl,omitempty"`
	CategoryID    int64      `json:"categoryId"`
	CategoryName  string     `json:"categoryName"`
	CategorySlug  string     `json:"categorySlug"`
	AuthorName    string     `json:"authorName"`
	IsPremium     bool       `json:"isPremium"`
	PriceCents    int64      `json:"priceCents"`
	Published     bool       `json:"published"`
	PublishedAt   *time.Time `json:"publishedAt,omitempty"`
	Views         int64      `json:"views"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	Locked        bool       `json:"locked"`
	Purchased     bool       `json:"purchased"`
}

func toArticleResponse(a *domain.Article) articleResponse {
	return articleResponse{
		ID:            a.ID,
		Title:         a.Title,
		Slug:          a.Slug,
		Excerpt:       a.Excerpt,
		Content:       a.Content,
		CoverImageURL: a.CoverImageURL,
		CategoryID:    a.CategoryID,
		CategoryName:  a.CategoryName,
		CategorySlug:  a.CategorySlug,
		AuthorName:    a.AuthorName,
		IsPremium:     a.IsPremium,
		PriceCents:    a.PriceCents,
		Published:     a.Published,
		PublishedAt:   a.PublishedAt,
		Views:         a.Views,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func toArticleViewResponse(v *service.ArticleView) articleResponse {
	resp := toArticleResponse(&v.Article)
	resp.Locked = v.Locked
	resp.Purchased = v.Purchased
	return resp
}

type articlePageResponse struct {
	Articles   []articleResponse `json:"articles"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int64             `json:"totalPages"`
}

func toArticlePageResponse(p *service.ArticlePage) articlePageResponse {
	resp := articlePageResponse{
		Articles: make([]articleResponse, 0, len(p.Articles)),
		Total:    int64(p.Total),
		Page:     p.Page,
		Limit:    p.Limit,
	}
	for i := range p.Articles {
		resp.Articles = append(resp.Articles, toArticleResponse(&p.Articles[i]))
	}
	if p.Limit > 0 {
		resp.TotalPages = (resp.Total + int64(p.Limit) - 1) / int64(p.Limit)
	}
	return resp
}

type commentResponse struct {
	ID        int64     `json:"id"`
	ArticleID int64     `json:"articleId"`
	UserID    int64     `json:"userId"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func toCommentResponse(c *domain.Comment) commentResponse {
	return commentResponse{
		ID:        c.ID,
		ArticleID: c.ArticleID,
		UserID:    c.UserID,
		Username:  c.Username,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
}

type ratingResponse struct {
	Average    float64 `json:"average"`
	Count      int     `json:"count"`
	UserRating int     `json:"userRating"`
}

func toRatingResponse(r domain.RatingSummary) ratingResponse {
	return ratingResponse{Average: r.Average, Count: r.Count, UserRating: r.UserRating}
}

type notificationResponse struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

type notificationSettingsRequest struct {
	EmailNewArticles bool `json:"emailNewArticles"`
	EmailComments    bool `json:"emailComments"`
	EmailPayments    bool `json:"emailPayments"`
}

type subscriptionResponse struct {
	CategoryID   int64     `json:"categoryId"`
	CategoryName string    `json:"categoryName"`
	CategorySlug string    `json:"categorySlug"`
	CreatedAt    time.Time `json:"createdAt"`
}

type paymentResponse struct {
	ID           int64     `json:"id"`
	ArticleID    int64     `json:"articleId"`
	ArticleTitle string    `json:"articleTitle"`
	AmountCents  int64     `json:"amountCents"`
	Currency     string    `json:"currency"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

type invoiceResponse struct {
	ID          int64     `json:"id"`
	Number      string    `json:"number"`
	PaymentID   int64     `json:"paymentId"`
	AmountCents int64     `json:"amountCents"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"createdAt"`
}

type contactResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

type blockedResponse struct {
	ID           int64      `json:"id"`
	IP           string     `json:"ip"`
	Fingerprint  string     `json:"fingerprint"`
	Attempts     int        `json:"attempts"`
	BlockedUntil *time.Time `json:"blockedUntil"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type dailyCountResponse struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

type topArticleResponse struct {
	ArticleID int64  `json:"articleId"`
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Views     int64  `json:"views"`
}

type statsResponse struct {
	Users             int64                `json:"users"`
	Articles          int64                `json:"articles"`
	PublishedArticles int64                `json:"publishedArticles"`
	Comments          int64                `json:"comments"`
	Payments          int64                `json:"payments"`
	RevenueCents      int64                `json:"revenueCents"`
	ViewsPerDay       []dailyCountResponse `json:"viewsPerDay"`
	TopArticles       []topArticleResponse `json:"topArticles"`
	Since             time.Time            `json:"since"`
}

func toStatsResponse(s *domain.DashboardStats) statsResponse {
	resp := statsResponse{
		Users:             s.Users,
		Articles:          s.Articles,
		PublishedArticles: s.PublishedArticles,
		Comments:          s.Comments,
		Payments:          s.Payments,
		RevenueCents:      s.RevenueCents,
		ViewsPerDay:       make([]dailyCountResponse, 0, len(s.ViewsPerDay)),
		TopArticles:       make([]topArticleResponse, 0, len(s.TopArticles)),
		Since:             s.Since,
	}
	for _, d := range s.ViewsPerDay {
		resp.ViewsPerDay = append(resp.ViewsPerDay, dailyCountResponse{Day: d.Day, Count: d.Count})
	}
	for _, a := range s.TopArticles {
		resp.TopArticles = append(resp.TopArticles, topArticleResponse{ArticleID: a.ArticleID, Title: a.Title, Slug: a.Slug, Views: a.Views})
	}
	return resp
}

package http

import (
	"bufio"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"techanswers/internal/service"
)

type articleRequest struct {
	Title      string `json:"title" binding:"required,min=3,max=200"`
	Excerpt    string `json:"excerpt" binding:"max=500"`
	Content    string `json:"content" binding:"required"`
	CategoryID int64  `json:"categoryId" binding:"required,gt=0"`
	IsPremium  bool   `json:"isPremium"`
	PriceCents int64  `json:"priceCents" binding:"gte=0"`
	Published  bool   `json:"published"`
}

func (r articleRequest) input() service.ArticleInput {
	return service.ArticleInput{
		Title:      r.Title,
		Excerpt:    r.Excerpt,
		Content:    r.Content,
		CategoryID: r.CategoryID,
		IsPremium:  r.IsPremium,
		PriceCents: r.PriceCents,
		Published:  r.Published,
	}
}

type categoryRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=60"`
	Description string `json:"description" binding:"max=500"`
}

func (h *Handler) listArticles(c *gin.Context) {
	page, err := h.svc.Articles.List(c.Request.Context(), service.ArticleQuery{
		Category: c.Query("category"),
		Query:    c.Query("q"),
		Page:     queryInt(c, "page", 1),
		Limit:    queryInt(c, "limit", 0),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toArticlePageResponse(page))
}

func (h *Handler) getArticle(c *gin.Context) {
	view, err := h.svc.Articles.Read(c.Request.Context(), c.Param("slug"), actor(c), fingerprint(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article": toArticleViewResponse(view)})
}

func (h *Handler) adminListArticles(c *gin.Context) {
	page, err := h.svc.Articles.List(c.Request.Context(), service.ArticleQuery{
		Category:      c.Query("category"),
		Query:         c.Query("q"),
		Page:          queryInt(c, "page", 1),
		Limit:         queryInt(c, "limit", 0),
		IncludeDrafts: true,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toArticlePageResponse(page))
}

func (h *Handler) adminGetArticle(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	article, err := h.svc.Articles.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article": toArticleResponse(article)})
}

func (h *Handler) createArticle(c *gin.Context) {
	var req articleRequest
	if !bindJSON(c, &req) {
		return
	}
	article, err := h.svc.Articles.Create(c.Request.Context(), actor(c).UserID, req.input())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"article": toArticleResponse(article)})
}

func (h *Handler) updateArticle(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req articleRequest
	if !bindJSON(c, &req) {
		return
	}
	article, err := h.svc.Articles.Update(c.Request.Context(), id, req.input())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article": toArticleResponse(article)})
}

func (h *Handler) deleteArticle(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Articles.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) uploadArticleImage(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	header, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Le champ image est requis"})
		return
	}
	file, err := header.Open()
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer file.Close()

	// The declared content type is not trusted; sniff the first bytes.
	body := bufio.NewReaderSize(file, 512)
	head, _ := body.Peek(512)
	contentType := http.DetectContentType(head)
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}

	article, err := h.svc.Articles.UploadCover(c.Request.Context(), id, service.CoverUpload{
		ContentType: contentType,
		Size:        header.Size,
		Body:        body,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article": toArticleResponse(article)})
}

func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.svc.Categories.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := make([]categoryResponse, 0, len(categories))
	for i := range categories {
		resp = append(resp, toCategoryResponse(&categories[i]))
	}
	c.JSON(http.StatusOK, gin.H{"categories": resp})
}

func (h *Handler) createCategory(c *gin.Context) {
	var req categoryRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.svc.Categories.Create(c.Request.Context(), service.CategoryInput{Name: req.Name, Description: req.Description})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"category": toCategoryResponse(category)})
}

func (h *Handler) updateCategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req categoryRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.svc.Categories.Update(c.Request.Context(), id, service.CategoryInput{Name: req.Name, Description: req.Description})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": toCategoryResponse(category)})
}

func (h *Handler) deleteCategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Categories.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listComments(c *gin.Context) {
	comments, err := h.svc.Comments.List(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := make([]commentResponse, 0, len(comments))
	for i := range comments {
		resp = append(resp, toCommentResponse(&comments[i]))
	}
	c.JSON(http.StatusOK, gin.H{"comments": resp})
}

func (h *Handler) createComment(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required,max=2000"`
	}
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.svc.Comments.Create(c.Request.Context(), actor(c).UserID, c.Param("slug"), req.Content)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": toCommentResponse(comment)})
}

func (h *Handler) deleteComment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Comments.Delete(c.Request.Context(), actor(c), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getRating(c *gin.Context) {
	summary, err := h.svc.Comments.Rating(c.Request.Context(), c.Param("slug"), actor(c).UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRatingResponse(summary))
}

func (h *Handler) rateArticle(c *gin.Context) {
	var req struct {
		Value int `json:"value" binding:"required,min=1,max=5"`
	}
	if !bindJSON(c, &req) {
		return
	}
	summary, err := h.svc.Comments.Rate(c.Request.Context(), actor(c).UserID, c.Param("slug"), req.Value)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRatingResponse(summary))
}

package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techanswers/internal/domain"
)

func TestSlugify(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Déployer une API en Go", "deployer-une-api-en-go"},
		{"  L'œuvre   complète !  ", "l-oeuvre-complete"},
		{"Ça marche, à 100 % ?", "ca-marche-a-100"},
		{"", ""},
		{"Équipe & développement 2026", "equipe-developpement-2026"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Slugify(tc.in), tc.in)
	}
}

func TestArticleSlugsAreUnique(t *testing.T) {
	f := newFixture(t)
	admin := f.adminUser(t, "admin", false)
	cat := f.category(t, "Développement")

	first := f.article(t, admin.ID, cat.ID, "Les générics en Go", false)
	second := f.article(t, admin.ID, cat.ID, "Les génerics en Go", false)
	third := f.article(t, admin.ID, cat.ID, "Les generics en Go !", false)

	assert.Equal(t, "les-generics-en-go", first.Slug)
	assert.Equal(t, "les-generics-en-go-2", second.Slug)
	assert.Equal(t, "les-generics-en-go-3", third.Slug)
	assert.Equal(t, "developpement", first.CategorySlug)
}

func TestArticleValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.adminUser(t, "admin", false)
	cat := f.category(t, "Go")

	_, err := f.articles.Create(ctx, admin.ID, ArticleInput{Title: "Go", Content: "x", CategoryID: cat.ID})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.articles.Create(ctx, admin.ID, ArticleInput{Title: "Titre", Content: "x", CategoryID: 999})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.articles.Create(ctx, admin.ID, ArticleInput{Title: "Titre", Content: "x", CategoryID: cat.ID, IsPremium: true, PriceCents: 10})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPremiumContentIsLocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.adminUser(t, "admin", false)
	reader := f.user(t, "lecteur")
	cat := f.category(t, "Go")
	article := f.article(t, admin.ID, cat.ID, "Article premium", true)

	anon, err := f.articles.Read(ctx, article.Slug, Actor{}, "fp")
	require.NoError(t, err)
	assert.True(t, anon.Locked)
	assert.Equal(t, article.Excerpt, anon.Content)

	view, err := f.articles.Read(ctx, article.Slug, Actor{UserID: reader.ID}, "fp")
	require.NoError(t, err)
	assert.True(t, view.Locked)

	require.NoError(t, f.repos.Users.AddPurchase(ctx, reader.ID, article.ID))
	view, err = f.articles.Read(ctx, article.Slug, Actor{UserID: reader.ID}, "fp")
	require.NoError(t, err)
	assert.False(t, view.Locked)
	assert.Equal(t, article.Content, view.Content)

	asAdmin, err := f.articles.Read(ctx, article.Slug, Actor{UserID: admin.ID, IsAdmin: true}, "fp")
	require.NoError(t, err)
	assert.False(t, asAdmin.Locked)

	stored, err := f.articles.Get(ctx, article.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stored.Views)
}

func TestDraftsAreHidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.adminUser(t, "admin", false)
	cat := f.category(t, "Go")

	draft, err := f.articles.Create(ctx, admin.ID, ArticleInput{Title: "Brouillon", Content: "x", CategoryID: cat.ID})
	require.NoError(t, err)
	f.article(t, admin.ID, cat.ID, "Publié", false)

	_, err = f.articles.Read(ctx, draft.Slug, Actor{}, "")
	assert.ErrorIs(t, err, ErrNotFound)

	page, err := f.articles.List(ctx, ArticleQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Empty(t, page.Articles[0].Content)

	all, err := f.articles.List(ctx, ArticleQuery{IncludeDrafts: true, Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)
	assert.Equal(t, maxPageSize, all.Limit)
}

func TestPublishingNotifiesSubscribers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.adminUser(t, "admin", false)
	sub := f.user(t, "abonne")
	muted := f.user(t, "silencieux")
	cat := f.category(t, "Go")

	require.NoError(t, f.notifications.Subscribe(ctx, sub.ID, cat.ID))
	require.NoError(t, f.notifications.Subscribe(ctx, sub.ID, cat.ID))
	require.NoError(t, f.notifications.Subscribe(ctx, muted.ID, cat.ID))
	settings := domain.DefaultNotificationSettings(muted.ID)
	settings.EmailNewArticles = false
	_, err := f.notifications.UpdateSettings(ctx, settings)
	require.NoError(t, err)

	draft, err := f.articles.Create(ctx, admin.ID, ArticleInput{Title: "Nouveautés Go", Content: "x", CategoryID: cat.ID})
	require.NoError(t, err)
	list, err := f.notifications.List(ctx, sub.ID, false)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.articles.Update(ctx, draft.ID, ArticleInput{Title: "Nouveautés Go", Content: "x", CategoryID: cat.ID, Published: true})
	require.NoError(t, err)

	list, err = f.notifications.List(ctx, sub.ID, true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.NotificationNewArticle, list[0].Type)
	assert.Len(t, f.queue.to(sub.Email), 1)

	mutedList, err := f.notifications.List(ctx, muted.ID, false)
	require.NoError(t, err)
	assert.Len(t, mutedList, 1)
	assert.Empty(t, f.queue.to(muted.Email))

	// a second update does not notify again
	_, err = f.articles.Update(ctx, draft.ID, ArticleInput{Title: "Nouveautés Go", Content: "y", CategoryID: cat.ID, Published: true})
	require.NoError(t, err)
	list, err = f.notifications.List(ctx, sub.ID, false)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUploadCover(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.adminUser(t, "admin", false)
	cat := f.category(t, "Go")
	article := f.article(t, admin.ID, cat.ID, "Avec image", false)

	_, err := f.articles.UploadCover(ctx, article.ID, CoverUpload{ContentType: "application/pdf", Size: 10, Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.articles.UploadCover(ctx, article.ID, CoverUpload{ContentType: "image/png", Size: MaxCoverImageSize + 1, Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrValidation)

	updated, err := f.articles.UploadCover(ctx, article.ID, CoverUpload{ContentType: "image/png", Size: 3, Body: strings.NewReader("png")})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(updated.CoverImageURL, "https://cdn.test/articles/"))
	assert.True(t, strings.HasSuffix(updated.CoverImageURL, ".png"))

	// A new cover replaces the stored one.
	_, err = f.articles.UploadCover(ctx, article.ID, CoverUpload{ContentType: "image/gif", Size: 3, Body: strings.NewReader("gif")})
	require.NoError(t, err)
	objects, err := f.store.ListObjects(ctx, coverPrefix(article.ID))
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.True(t, strings.HasSuffix(objects[0].Key, ".gif"))

	require.NoError(t, f.articles.Delete(ctx, article.ID))
	objects, err = f.store.ListObjects(ctx, coverPrefix(article.ID))
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestCategoryDeleteWithArticles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.adminUser(t, "admin", false)
	cat := f.category(t, "Go")
	f.article(t, admin.ID, cat.ID, "Contenu", false)

	assert.ErrorIs(t, f.categories.Delete(ctx, cat.ID), ErrConflict)
	_, err := f.categories.Create(ctx, CategoryInput{Name: "go"})
	assert.ErrorIs(t, err, ErrConflict)

	empty := f.category(t, "Vide")
	require.NoError(t, f.categories.Delete(ctx, empty.ID))
	assert.ErrorIs(t, f.categories.Delete(ctx, empty.ID), ErrNotFound)
}

func TestCommentsAndRatings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.adminUser(t, "auteur", false)
	reader := f.user(t, "lecteur")
	other := f.user(t, "autre")
	cat := f.category(t, "Go")
	article := f.article(t, author.ID, cat.ID, "À commenter", false)

	_, err := f.comments.Create(ctx, reader.ID, article.Slug, "   ")
	assert.ErrorIs(t, err, ErrValidation)

	c, err := f.comments.Create(ctx, reader.ID, article.Slug, "Très clair, merci")
	require.NoError(t, err)
	assert.Equal(t, "lecteur", c.Username)

	notes, err := f.notifications.List(ctx, author.ID, false)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotificationComment, notes[0].Type)

	// the author commenting their own article is not notified
	_, err = f.comments.Create(ctx, author.ID, article.Slug, "Merci !")
	require.NoError(t, err)
	notes, err = f.notifications.List(ctx, author.ID, false)
	require.NoError(t, err)
	assert.Len(t, notes, 1)

	list, err := f.comments.List(ctx, article.Slug)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, c.ID, list[0].ID)

	assert.ErrorIs(t, f.comments.Delete(ctx, Actor{UserID: other.ID}, c.ID), ErrForbidden)
	require.NoError(t, f.comments.Delete(ctx, Actor{UserID: reader.ID}, c.ID))

	_, err = f.comments.Rate(ctx, reader.ID, article.Slug, 6)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.comments.Rate(ctx, reader.ID, article.Slug, 2)
	require.NoError(t, err)
	_, err = f.comments.Rate(ctx, reader.ID, article.Slug, 4)
	require.NoError(t, err)
	summary, err := f.comments.Rate(ctx, other.ID, article.Slug, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Count)
	assert.InDelta(t, 4.5, summary.Average, 0.001)
	assert.Equal(t, 5, summary.UserRating)

	anon, err := f.comments.Rating(ctx, article.Slug, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, anon.UserRating)
}

func TestContactSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.contacts.Submit(ctx, ContactInput{Name: "Jo", Email: "pas-un-email", Subject: "s", Message: "m"})
	assert.ErrorIs(t, err, ErrValidation)

	c, err := f.contacts.Submit(ctx, ContactInput{Name: "Jo", Email: "jo@example.fr", Subject: "Question", Message: "Bonjour"})
	require.NoError(t, err)
	assert.Len(t, f.queue.to("admin@techanswers.test"), 1)

	require.NoError(t, f.contacts.MarkRead(ctx, c.ID))
	list, err := f.contacts.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Read)
	require.NoError(t, f.contacts.Delete(ctx, c.ID))
	assert.ErrorIs(t, f.contacts.Delete(ctx, c.ID), ErrNotFound)
}

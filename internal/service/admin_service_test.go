package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.adminUser(t, "admin", false)
	reader := f.user(t, "lecteur")
	cat := f.category(t, "Go")
	popular := f.article(t, admin.ID, cat.ID, "Populaire", false)
	f.article(t, admin.ID, cat.ID, "Moins lu", false)
	_, err := f.articles.Create(ctx, admin.ID, ArticleInput{Title: "Brouillon", Content: "x", CategoryID: cat.ID})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := f.articles.Read(ctx, popular.Slug, Actor{UserID: reader.ID}, "fp")
		require.NoError(t, err)
	}
	_, err = f.comments.Create(ctx, reader.ID, popular.Slug, "Bravo")
	require.NoError(t, err)

	stats, err := f.admin.Stats(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Users)
	assert.Equal(t, int64(3), stats.Articles)
	assert.Equal(t, int64(2), stats.PublishedArticles)
	assert.Equal(t, int64(1), stats.Comments)
	require.NotEmpty(t, stats.TopArticles)
	assert.Equal(t, popular.ID, stats.TopArticles[0].ArticleID)
	require.Len(t, stats.ViewsPerDay, 1)
	assert.Equal(t, int64(3), stats.ViewsPerDay[0].Count)

	report, err := f.admin.Report(ctx, 7)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(report), "%PDF-"))
}

func TestSetAdminRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	super := f.adminUser(t, "super", true)
	admin := f.adminUser(t, "admin", false)
	reader := f.user(t, "lecteur")

	_, err := f.admin.SetAdmin(ctx, Actor{UserID: admin.ID, IsAdmin: true}, reader.ID, true)
	assert.ErrorIs(t, err, ErrForbidden)

	promoted, err := f.admin.SetAdmin(ctx, Actor{UserID: super.ID, IsAdmin: true, IsSuperAdmin: true}, reader.ID, true)
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin)

	_, err = f.admin.SetAdmin(ctx, Actor{UserID: super.ID, IsAdmin: true, IsSuperAdmin: true}, super.ID, false)
	assert.ErrorIs(t, err, ErrForbidden)

	page, err := f.admin.ListUsers(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Users, 2)
}

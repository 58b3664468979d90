package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwoFactorCodeMessage(t *testing.T) {
	msg, err := TwoFactorCode("marie@example.fr", "marie", "042917", 10, false)
	require.NoError(t, err)
	assert.Equal(t, "marie@example.fr", msg.To)
	assert.Equal(t, "Votre code de connexion TechAnswers", msg.Subject)
	assert.Contains(t, msg.Body, "042917")
	assert.Contains(t, msg.Body, "10 minutes")

	setup, err := TwoFactorCode("marie@example.fr", "marie", "111111", 5, true)
	require.NoError(t, err)
	assert.Equal(t, "Activation de la double authentification", setup.Subject)
}

func TestSubjectIsTemplated(t *testing.T) {
	msg, err := NewArticle("a@b.fr", "paul", "Les goroutines", "Intro", "Go", "https://techanswers.fr/articles/les-goroutines")
	require.NoError(t, err)
	assert.Equal(t, "Nouvel article : Les goroutines", msg.Subject)
	assert.Contains(t, msg.Body, "catégorie Go")
}

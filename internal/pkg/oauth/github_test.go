package oauth

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGithubOAuth(t *testing.T) {
	oauth := NewGithubOAuth("client-id", "client-secret", "https://nexusrbx.com/auth/github/callback")

	require.NotNil(t, oauth)
	assert.Equal(t, "client-id", oauth.config.ClientID)
	assert.Equal(t, "client-secret", oauth.config.ClientSecret)
	assert.Equal(t, "https://nexusrbx.com/auth/github/callback", oauth.config.RedirectURL)
	assert.Equal(t, []string{"user:email"}, oauth.config.Scopes)
}

func TestGithubOAuth_GetAuthURL(t *testing.T) {
	oauth := NewGithubOAuth("test-client-id", "test-secret", "https://nexusrbx.com/auth/github/callback")

	url := oauth.GetAuthURL("test-state")

	assert.Contains(t, url, "github.com")
	assert.Contains(t, url, "client_id=test-client-id")
	assert.Contains(t, url, "state=test-state")
	assert.Contains(t, url, "redirect_uri=")
}

func TestGithubOAuth_GetAuthURL_StateVaries(t *testing.T) {
	oauth := NewGithubOAuth("client", "secret", "https://nexusrbx.com/auth/github/callback")

	url1 := oauth.GetAuthURL("state1")
	url2 := oauth.GetAuthURL("state2")

	assert.Contains(t, url1, "state=state1")
	assert.Contains(t, url2, "state=state2")
	assert.NotEqual(t, url1, url2)
}

func TestGithubUser_Decode(t *testing.T) {
	jsonData := `{
		"id": 98765,
		"login": "robloxdev",
		"email": "dev@nexusrbx.com",
		"avatar_url": "https://avatars.githubusercontent.com/u/98765",
		"name": "Roblox Dev"
	}`

	var user GithubUser
	err := json.Unmarshal([]byte(jsonData), &user)

	require.NoError(t, err)
	assert.Equal(t, int64(98765), user.ID)
	assert.Equal(t, "robloxdev", user.Login)
	assert.Equal(t, "dev@nexusrbx.com", user.Email)
	assert.Equal(t, "https://avatars.githubusercontent.com/u/98765", user.AvatarURL)
	assert.Equal(t, "Roblox Dev", user.Name)
}

func TestGithubUser_Decode_MissingEmail(t *testing.T) {
	// GitHub 用户可以隐藏邮箱，email 字段可能缺失
	jsonData := `{"id": 1, "login": "private-user"}`

	var user GithubUser
	err := json.Unmarshal([]byte(jsonData), &user)

	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Empty(t, user.Email)
}

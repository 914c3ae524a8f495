package email

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderGroupInvite(t *testing.T) {
	s := NewService(&Config{}, "https://cardpool.app/")

	body, err := s.Render("group_invite", GroupInviteData{
		GroupName:  "Friday Draft",
		InvitedBy:  "Alice",
		InviteCode: "AB12CD",
		JoinURL:    "https://cardpool.app/join?code=AB12CD",
	})

	require.NoError(t, err)
	assert.Contains(t, body, "Friday Draft")
	assert.Contains(t, body, "AB12CD")
	assert.Contains(t, body, "https://cardpool.app/join?code=AB12CD")
}

func TestRenderUnknownTemplate(t *testing.T) {
	s := NewService(&Config{}, "")

	_, err := s.Render("missing", nil)

	assert.Error(t, err)
}

func TestSendWithoutHostIsSkipped(t *testing.T) {
	s := NewService(&Config{}, "http://localhost:5173")

	err := s.SendGroupInvite("bob@example.com", GroupInviteData{GroupName: "G", InviteCode: "ZZ99ZZ"})

	assert.NoError(t, err)
}

func TestBuildMessageHeaders(t *testing.T) {
	msg := string(buildMessage(
		&Config{From: "noreply@cardpool.app", FromName: "CardPool"},
		&Email{To: []string{"a@x", "b@x"}, Subject: "Hi", Body: "plain"},
	))

	assert.True(t, strings.HasPrefix(msg, "From: CardPool <noreply@cardpool.app>\r\n"))
	assert.Contains(t, msg, "To: a@x, b@x\r\n")
	assert.Contains(t, msg, "Content-Type: text/plain")
	assert.True(t, strings.HasSuffix(msg, "plain"))
}

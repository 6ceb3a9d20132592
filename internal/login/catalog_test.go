// File: internal/login/catalog_test.go
package login_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/panelkeeper/internal/login"
)

func TestMergeVocabularies(t *testing.T) {
	all := login.MergeVocabularies()
	assert.Contains(t, all.Success, "Logout")
	assert.Contains(t, all.Success, "登出")
	assert.Contains(t, all.Success, "Wyloguj")
	assert.Contains(t, all.Verification, "验证码")

	en := login.MergeVocabularies("en")
	assert.NotContains(t, en.Success, "登出")
	assert.Equal(t, en, login.MergeVocabularies("en", "unknown"))

	for _, w := range all.LoginIntent {
		assert.Equal(t, strings.ToLower(w), w, "login-intent words are matched against lowercased text")
	}
}

func TestDefaultCatalog(t *testing.T) {
	c := login.DefaultCatalog(login.MergeVocabularies())
	last := c.Submit[len(c.Submit)-1]
	assert.Equal(t, login.Scripted, last.Kind, "the text scan runs after every selector")
	for _, s := range c.Submit[:len(c.Submit)-1] {
		assert.Equal(t, login.Declarative, s.Kind)
	}
	assert.Equal(t, `input[name="username"]`, c.Username[0].Name)
	assert.Contains(t, c.Logout, `a[href="/logout/"]`)
}

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &login.Error{Kind: login.KindSessionNotGranted, Op: "confirm"})
	assert.Equal(t, login.KindSessionNotGranted, login.KindOf(err))
	assert.Equal(t, login.KindUnexpected, login.KindOf(errors.New("boom")))
	assert.Equal(t, login.Kind(""), login.KindOf(nil))
	assert.Equal(t, "Credentials rejected", login.KindCredentialsRejected.Describe())
	assert.Equal(t, "confirm: session_not_granted", (&login.Error{Kind: login.KindSessionNotGranted, Op: "confirm"}).Error())
}

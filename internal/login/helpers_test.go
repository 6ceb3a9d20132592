// File: internal/login/helpers_test.go
package login_test

import (
	"time"

	"github.com/xkilldash9x/panelkeeper/internal/config"
	"github.com/xkilldash9x/panelkeeper/internal/login"
	"github.com/xkilldash9x/panelkeeper/internal/mocks"
)

const (
	testHost         = "panel.ct8.pl"
	testLoginURL     = "https://panel.ct8.pl/login/?next=/"
	testProtectedURL = "https://panel.ct8.pl/panel/"

	userSel   = `input[name="username"]`
	passSel   = `input[name="password"]`
	submitSel = `button[type="submit"]`
)

// testLoginConfig keeps the real shape of the defaults but removes the waits.
func testLoginConfig() config.LoginConfig {
	cfg := config.NewDefaultConfig().Login
	cfg.FieldTimeout = 50 * time.Millisecond
	cfg.SubmitTimeout = 50 * time.Millisecond
	cfg.PostSubmitTimeout = 50 * time.Millisecond
	cfg.NavigationTimeout = time.Second
	cfg.SettleDelay = 0
	cfg.SPAGrace = 0
	return cfg
}

func testVocab() login.Vocabulary { return login.MergeVocabularies() }

func testCatalog() login.Catalog { return login.DefaultCatalog(testVocab()) }

// loginForm is a plain login page with the common field names.
func loginForm() *mocks.Document {
	return &mocks.Document{Visible: []string{userSel, passSel, submitSel}, Text: "Sign in to the panel"}
}

// panelPage builds a panel whose submit button leads to after and whose protected page
// renders protected.
func panelPage(after, protected *mocks.Document) *mocks.FakePage {
	page := mocks.NewFakePage(map[string]*mocks.Document{
		testLoginURL:     loginForm(),
		testProtectedURL: protected,
	})
	page.OnClick = map[string]*mocks.Document{submitSel: after}
	return page
}

func dashboard() *mocks.Document {
	return &mocks.Document{
		Present: []string{`a[href="/logout/"]`},
		Text:    "Panel home",
	}
}

func cleanProtected() *mocks.Document {
	return &mocks.Document{Markup: `<html><head><title>Panel</title></head><body><h1>Accounts</h1></body></html>`}
}

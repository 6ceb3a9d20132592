// File: internal/login/catalog.go
package login

import (
	"context"
	"sort"
	"strings"
)

// StrategyKind tags how a strategy finds its element.
type StrategyKind int

const (
	// Declarative strategies wait for a CSS selector to become visible.
	Declarative StrategyKind = iota
	// Scripted strategies run a page script to find and tag an element.
	Scripted
)

func (k StrategyKind) String() string {
	if k == Scripted {
		return "scripted"
	}
	return "declarative"
}

// Element is a resolved control, addressed by a selector that is valid on the current page.
type Element struct {
	Selector string
	Strategy string
}

// Strategy is one candidate in a fallback chain. Resolve returns ErrNotFound, or any other
// error, when it does not match; Locate moves on to the next strategy either way.
type Strategy struct {
	Name    string
	Kind    StrategyKind
	Resolve func(ctx context.Context, p Page) (Element, error)
}

// BySelector builds a declarative strategy that matches a visible element.
func BySelector(selector string) Strategy {
	return Strategy{
		Name: selector,
		Kind: Declarative,
		Resolve: func(ctx context.Context, p Page) (Element, error) {
			if err := p.WaitVisible(ctx, selector); err != nil {
				return Element{}, err
			}
			return Element{Selector: selector, Strategy: selector}, nil
		},
	}
}

// MarkerAttr is set on elements found by a text scan so later steps can address them.
const MarkerAttr = "data-panelkeeper-submit"

// InteractiveCandidates are the elements scanned for login-intent text.
const InteractiveCandidates = `button, a, input[type="button"], input[type="submit"]`

// ByText builds a scripted strategy that scans interactive elements for any keyword.
func ByText(name string, keywords []string) Strategy {
	selector := "[" + MarkerAttr + `="1"]`
	return Strategy{
		Name: name,
		Kind: Scripted,
		Resolve: func(ctx context.Context, p Page) (Element, error) {
			found, err := p.MarkByText(ctx, InteractiveCandidates, keywords, MarkerAttr)
			if err != nil {
				return Element{}, err
			}
			if !found {
				return Element{}, ErrNotFound
			}
			return Element{Selector: selector, Strategy: name}, nil
		},
	}
}

// Catalog holds the ordered fallback chains for each logical control.
type Catalog struct {
	Username []Strategy
	Password []Strategy
	Submit   []Strategy
	// Logout selectors signal an authenticated page.
	Logout []string
}

func selectors(list ...string) []Strategy {
	out := make([]Strategy, len(list))
	for i, s := range list {
		out[i] = BySelector(s)
	}
	return out
}

// DefaultCatalog covers the known panel versions and themes.
func DefaultCatalog(vocab Vocabulary) Catalog {
	return Catalog{
		Username: selectors(
			`input[name="username"]`,
			`input[name="login"]`,
			`#id_username`,
			`input[type="text"]`,
		),
		Password: selectors(
			`input[name="password"]`,
			`#id_password`,
			`input[type="password"]`,
		),
		Submit: append(selectors(
			`button[type="submit"]`,
			`input[type="submit"]`,
			`button.login-button`,
			`button.btn`,
		), ByText("login-intent text", vocab.LoginIntent)),
		Logout: []string{
			`a[href="/logout/"]`,
			`a[href$="/logout"]`,
			`form[action*="logout"]`,
		},
	}
}

// Vocabulary is the set of words the engine looks for in one UI locale.
type Vocabulary struct {
	// Verification words are matched case-insensitively against visible text.
	Verification []string
	// Success words are matched case-sensitively against visible text.
	Success []string
	// Denial words are matched case-sensitively against the protected page's markup.
	Denial []string
	// LoginIntent words are matched against lowercased control text, so they are
	// stored lowercase.
	LoginIntent []string
}

// Vocabularies maps a locale to its word sets.
var Vocabularies = map[string]Vocabulary{
	"en": {
		Verification: []string{"captcha", "verify"},
		Success:      []string{"Dashboard", "Welcome", "Logout"},
		Denial:       []string{"Access denied", "Denied", "Error", "Forbidden"},
		LoginIntent:  []string{"login", "log in", "sign in", "sign-in", "sign_in", "signin"},
	},
	"zh": {
		Verification: []string{"验证码", "请验证"},
		Success:      []string{"登出", "欢迎", "控制面板"},
		Denial:       []string{"拒绝访问", "禁止访问"},
		LoginIntent:  []string{"登录", "登 录"},
	},
	"pl": {
		Verification: []string{"weryfikacja"},
		Success:      []string{"Wyloguj"},
		Denial:       []string{"Odmowa dostępu", "Brak dostępu"},
		LoginIntent:  []string{"zaloguj się", "zaloguj"},
	},
}

// MergeVocabularies unions the named locales, or every known locale when none are given.
// Each word set is deduplicated and sorted so matching order is stable.
func MergeVocabularies(locales ...string) Vocabulary {
	if len(locales) == 0 {
		for l := range Vocabularies {
			locales = append(locales, l)
		}
	}
	sets := [4]map[string]struct{}{{}, {}, {}, {}}
	for _, l := range locales {
		v, ok := Vocabularies[l]
		if !ok {
			continue
		}
		for i, words := range [][]string{v.Verification, v.Success, v.Denial, v.LoginIntent} {
			for _, w := range words {
				sets[i][w] = struct{}{}
			}
		}
	}
	flatten := func(m map[string]struct{}) []string {
		out := make([]string, 0, len(m))
		for w := range m {
			out = append(out, w)
		}
		sort.Strings(out)
		return out
	}
	return Vocabulary{
		Verification: flatten(sets[0]),
		Success:      flatten(sets[1]),
		Denial:       flatten(sets[2]),
		LoginIntent:  flatten(sets[3]),
	}
}

// containsAny returns the first word found in text.
func containsAny(text string, words []string) (string, bool) {
	for _, w := range words {
		if w != "" && strings.Contains(text, w) {
			return w, true
		}
	}
	return "", false
}

// containsAnyFold is containsAny ignoring case.
func containsAnyFold(text string, words []string) (string, bool) {
	lowered := strings.ToLower(text)
	for _, w := range words {
		if w != "" && strings.Contains(lowered, strings.ToLower(w)) {
			return w, true
		}
	}
	return "", false
}

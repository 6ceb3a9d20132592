// File: internal/login/classifier.go
package login

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Classifier decides whether a submitted login produced a usable session.
type Classifier struct {
	logger     *zap.Logger
	vocab      Vocabulary
	logout     []string
	navTimeout time.Duration
}

// NewClassifier creates a classifier using vocab and the catalog's logout selectors.
// navTimeout bounds the protected page fetch.
func NewClassifier(logger *zap.Logger, vocab Vocabulary, logout []string, navTimeout time.Duration) *Classifier {
	return &Classifier{logger: logger, vocab: vocab, logout: logout, navTimeout: navTimeout}
}

// Classify inspects the page after submission. It returns nil when the session is
// authenticated. Otherwise the error carries one of extra_verification_required,
// credentials_rejected or session_not_granted. protectedURL is fetched in the same page to
// confirm the session; denial wording there overrides every success signal.
func (c *Classifier) Classify(ctx context.Context, p Page, protectedURL string) error {
	text, err := p.VisibleText(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Debug("Could not read visible text.", zap.Error(err))
		text = ""
	}

	if word, ok := containsAnyFold(text, c.vocab.Verification); ok {
		return newError(KindExtraVerificationRequired, "classify", fmt.Errorf("page asks for verification (%q)", word))
	}

	signal, ok := c.successSignal(ctx, p, text)
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ok {
		return newError(KindCredentialsRejected, "classify", fmt.Errorf("no authenticated signal on the page"))
	}
	c.logger.Debug("Authenticated signal found, confirming on protected page.",
		zap.String("signal", signal), zap.String("url", protectedURL))

	return c.confirm(ctx, p, protectedURL)
}

func (c *Classifier) confirm(ctx context.Context, p Page, protectedURL string) error {
	nctx, cancel := context.WithTimeout(ctx, c.navTimeout)
	defer cancel()
	if err := p.Navigate(nctx, protectedURL); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return newError(KindSessionNotGranted, "confirm session", fmt.Errorf("protected page did not load: %w", err))
	}
	markup, err := p.Content(nctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return newError(KindSessionNotGranted, "confirm session", fmt.Errorf("protected page unreadable: %w", err))
	}
	if word, denied := containsAny(MarkupText(markup), c.vocab.Denial); denied {
		return newError(KindSessionNotGranted, "confirm session", fmt.Errorf("protected page shows %q", word))
	}
	return nil
}

// successSignal reports the first authenticated signal found: a logout affordance or a
// success word in text.
func (c *Classifier) successSignal(ctx context.Context, p Page, text string) (string, bool) {
	for _, sel := range c.logout {
		found, err := p.HasElement(ctx, sel)
		if err != nil {
			if ctx.Err() != nil {
				return "", false
			}
			continue
		}
		if found {
			return sel, true
		}
	}
	if word, ok := containsAny(text, c.vocab.Success); ok {
		return word, true
	}
	return "", false
}

// MarkupText returns the text content and title of an HTML document, skipping script,
// style and template bodies. Unparseable input is returned unchanged.
func MarkupText(markup string) string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return markup
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				b.WriteString(t)
				b.WriteByte('\n')
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return b.String()
}

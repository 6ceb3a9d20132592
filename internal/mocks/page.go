// File: internal/mocks/page.go
package mocks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xkilldash9x/panelkeeper/internal/login"
)

// ErrNotVisible is returned by FakePage.WaitVisible for selectors absent from the document.
var ErrNotVisible = errors.New("fake: element not visible")

// Control is an interactive element a text scan can find.
type Control struct {
	Text    string
	Visible bool
	// Then is the document shown after the control is clicked.
	Then *Document
}

// Document is the scripted state of one loaded URL.
type Document struct {
	// Visible selectors resolve in WaitVisible and HasElement.
	Visible []string
	// Present selectors exist but are not visible; only HasElement finds them.
	Present  []string
	Controls []Control
	Text     string
	Markup   string
}

func (d *Document) has(selector string, visibleOnly bool) bool {
	for _, s := range d.Visible {
		if s == selector {
			return true
		}
	}
	if visibleOnly {
		return false
	}
	for _, s := range d.Present {
		if s == selector {
			return true
		}
	}
	return false
}

// FakePage is a scripted login.Page. Zero values behave like a blank page. Tests set the
// exported fields before handing the page to the code under test.
type FakePage struct {
	mu sync.Mutex

	// Docs maps a URL to the document Navigate loads.
	Docs map[string]*Document
	// NavigateErr fails Navigate for a URL.
	NavigateErr map[string]error
	// OnClick maps a selector to the document shown after it is clicked (either path).
	OnClick map[string]*Document
	// ClickErr fails the direct click on a selector.
	ClickErr map[string]error
	// ScriptedClickErr fails the scripted click on a selector.
	ScriptedClickErr map[string]error
	// TypeErr fails typing into a selector.
	TypeErr map[string]error
	// DropKeys makes typed keys vanish, as on forms that rewrite input on each keystroke.
	DropKeys map[string]bool
	// AssignErr fails script assignment on a selector.
	AssignErr map[string]error
	// TextErr fails VisibleText.
	TextErr error
	// ClickNavigates controls whether an OnClick document fires a load event.
	ClickNavigates bool
	// PNG is the screenshot payload; ScreenshotErr fails captures.
	PNG           []byte
	ScreenshotErr error
	// PanicOn panics inside the named method.
	PanicOn string
	// Hang makes a call block until its context ends. Keys use the Calls format, such as
	// "click button".
	Hang map[string]bool

	url      string
	doc      *Document
	values   map[string]string
	marked   string
	markedTo *Document
	waiters  []chan struct{}
	armed    int
	calls    []string
}

// NewFakePage creates a page that knows the given documents.
func NewFakePage(docs map[string]*Document) *FakePage {
	return &FakePage{Docs: docs, PNG: []byte("\x89PNG fake"), ClickNavigates: true}
}

var _ login.Page = (*FakePage)(nil)

func (p *FakePage) record(op string, args ...string) {
	if p.PanicOn == op {
		panic(fmt.Sprintf("fake: %s exploded", op))
	}
	p.calls = append(p.calls, strings.TrimSpace(op+" "+strings.Join(args, " ")))
}

// stall blocks a call listed in Hang until ctx ends and reports whether it did.
func (p *FakePage) stall(ctx context.Context, op string, args ...string) (bool, error) {
	p.mu.Lock()
	if !p.Hang[strings.TrimSpace(op+" "+strings.Join(args, " "))] {
		p.mu.Unlock()
		return false, nil
	}
	p.record(op, args...)
	p.mu.Unlock()
	<-ctx.Done()
	return true, ctx.Err()
}

// PendingNavigations returns how many armed navigation listeners were never released.
func (p *FakePage) PendingNavigations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.armed
}

// Calls returns the operations performed so far, in order.
func (p *FakePage) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// URL returns the last navigated URL.
func (p *FakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// FieldValue returns the current value of a field.
func (p *FakePage) FieldValue(selector string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.values[selector]
}

func (p *FakePage) current() *Document {
	if p.doc == nil {
		return &Document{}
	}
	return p.doc
}

func (p *FakePage) show(doc *Document) {
	p.doc = doc
	p.marked = ""
	p.markedTo = nil
	for _, ch := range p.waiters {
		close(ch)
	}
	p.waiters = nil
}

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("navigate", url)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.NavigateErr[url]; err != nil {
		return err
	}
	p.url = url
	doc := p.Docs[url]
	if doc == nil {
		doc = &Document{}
	}
	p.show(doc)
	return nil
}

func (p *FakePage) WaitVisible(ctx context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("wait", selector)
	if err := ctx.Err(); err != nil {
		return err
	}
	if selector == p.markerSelector() || p.current().has(selector, true) {
		return nil
	}
	return ErrNotVisible
}

func (p *FakePage) markerSelector() string {
	if p.marked == "" {
		return "\x00"
	}
	return "[" + p.marked + `="1"]`
}

func (p *FakePage) click(selector string, errs map[string]error) error {
	if err := errs[selector]; err != nil {
		return err
	}
	next, ok := p.OnClick[selector]
	if selector == p.markerSelector() && p.markedTo != nil {
		next, ok = p.markedTo, true
	}
	if ok {
		if p.ClickNavigates {
			p.show(next)
		} else {
			p.doc = next
		}
	}
	return nil
}

func (p *FakePage) Click(ctx context.Context, selector string) error {
	if stalled, err := p.stall(ctx, "click", selector); stalled {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("click", selector)
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.click(selector, p.ClickErr)
}

func (p *FakePage) ClickScripted(ctx context.Context, selector string) error {
	if stalled, err := p.stall(ctx, "click-scripted", selector); stalled {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("click-scripted", selector)
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.click(selector, p.ScriptedClickErr)
}

func (p *FakePage) setValue(selector, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	p.values[selector] = value
}

func (p *FakePage) ClearValue(ctx context.Context, selector string) error {
	if stalled, err := p.stall(ctx, "clear", selector); stalled {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("clear", selector)
	if err := ctx.Err(); err != nil {
		return err
	}
	p.setValue(selector, "")
	return nil
}

func (p *FakePage) TypeText(ctx context.Context, selector, text string) error {
	if stalled, err := p.stall(ctx, "type", selector); stalled {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("type", selector)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.TypeErr[selector]; err != nil {
		return err
	}
	if p.DropKeys[selector] {
		return nil
	}
	p.setValue(selector, p.values[selector]+text)
	return nil
}

func (p *FakePage) AssignValue(ctx context.Context, selector, value string) error {
	if stalled, err := p.stall(ctx, "assign", selector); stalled {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("assign", selector)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.AssignErr[selector]; err != nil {
		return err
	}
	p.setValue(selector, value)
	return nil
}

func (p *FakePage) Value(ctx context.Context, selector string) (string, error) {
	if stalled, err := p.stall(ctx, "value", selector); stalled {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("value", selector)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.values[selector], nil
}

func (p *FakePage) ScrollIntoView(ctx context.Context, selector string) error {
	if stalled, err := p.stall(ctx, "scroll", selector); stalled {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("scroll", selector)
	return ctx.Err()
}

func (p *FakePage) MarkByText(ctx context.Context, candidates string, keywords []string, attr string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("scan", candidates)
	if err := ctx.Err(); err != nil {
		return false, err
	}
	for _, c := range p.current().Controls {
		if !c.Visible {
			continue
		}
		text := strings.ToLower(strings.TrimSpace(c.Text))
		for _, k := range keywords {
			if k != "" && strings.Contains(text, k) {
				p.marked = attr
				p.markedTo = c.Then
				return true, nil
			}
		}
	}
	return false, nil
}

func (p *FakePage) ExpectNavigation(ctx context.Context) func(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("expect-navigation")
	ch := make(chan struct{})
	p.waiters = append(p.waiters, ch)
	p.armed++
	var release sync.Once
	return func(wctx context.Context) error {
		defer release.Do(func() {
			p.mu.Lock()
			p.armed--
			p.mu.Unlock()
		})
		select {
		case <-ch:
			return nil
		case <-wctx.Done():
			return wctx.Err()
		}
	}
}

func (p *FakePage) VisibleText(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("text")
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.TextErr != nil {
		return "", p.TextErr
	}
	return p.current().Text, nil
}

func (p *FakePage) HasElement(ctx context.Context, selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("has", selector)
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return p.current().has(selector, false), nil
}

func (p *FakePage) Content(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("content")
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.current().Markup, nil
}

func (p *FakePage) Screenshot(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("screenshot")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.ScreenshotErr != nil {
		return nil, p.ScreenshotErr
	}
	return append([]byte(nil), p.PNG...), nil
}

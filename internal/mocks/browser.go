// File: internal/mocks/browser.go
package mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/xkilldash9x/panelkeeper/internal/login"
)

// ErrUnknownPage is returned when a page is released that the fake never issued.
var ErrUnknownPage = errors.New("fake: unknown page")

// FakeBrowser hands out pages from NewPage and records the lifecycle in order.
type FakeBrowser struct {
	mu sync.Mutex

	// NewPage builds the n-th page (1-based). Defaults to a blank FakePage.
	NewPage func(n int) login.Page
	// AcquireErr fails every AcquirePage.
	AcquireErr error
	// CloseErr is returned by Close.
	CloseErr error

	issued  map[login.Page]int
	events  []string
	open    int
	maxOpen int
	closes  int
}

// NewFakeBrowser creates a browser serving pages from factory.
func NewFakeBrowser(factory func(n int) login.Page) *FakeBrowser {
	return &FakeBrowser{NewPage: factory}
}

func (b *FakeBrowser) AcquirePage(ctx context.Context) (login.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.AcquireErr != nil {
		b.events = append(b.events, "acquire-failed")
		return nil, b.AcquireErr
	}
	if b.issued == nil {
		b.issued = make(map[login.Page]int)
	}
	n := len(b.issued) + 1
	var p login.Page
	if b.NewPage != nil {
		p = b.NewPage(n)
	} else {
		p = NewFakePage(nil)
	}
	b.issued[p] = n
	b.open++
	b.maxOpen = max(b.maxOpen, b.open)
	b.events = append(b.events, fmt.Sprintf("acquire %d", n))
	return p, nil
}

func (b *FakeBrowser) ReleasePage(_ context.Context, p login.Page) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.issued[p]
	if !ok {
		return ErrUnknownPage
	}
	b.open--
	b.events = append(b.events, fmt.Sprintf("release %d", n))
	return nil
}

func (b *FakeBrowser) Close(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closes++
	b.events = append(b.events, "close")
	return b.CloseErr
}

// Events returns the lifecycle events so far, e.g. "acquire 1", "release 1", "close".
func (b *FakeBrowser) Events() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.events...)
}

// MaxOpen is the highest number of pages that were open at once.
func (b *FakeBrowser) MaxOpen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxOpen
}

// Open is the number of pages currently open.
func (b *FakeBrowser) Open() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// Closes counts Close calls.
func (b *FakeBrowser) Closes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closes
}

// File: cmd/panelkeeper/main_test.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetMocks() {
	osWriteFile = os.WriteFile
	osExit = os.Exit
}

// panicking runs handlePanic the way main defers it.
func panicking(v any) {
	defer handlePanic()
	panic(v)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 0, exitCode(context.Canceled))
	assert.Equal(t, 0, exitCode(fmt.Errorf("run: %w", context.Canceled)))
	assert.Equal(t, 1, exitCode(errors.New("failed to load accounts")))
	assert.Equal(t, 1, exitCode(context.DeadlineExceeded))
}

func TestHandlePanic(t *testing.T) {
	defer resetMocks()

	t.Run("Writes Panic Log", func(t *testing.T) {
		var (
			path    string
			content []byte
			code    = -1
		)
		osWriteFile = func(name string, data []byte, _ os.FileMode) error {
			path, content = name, data
			return nil
		}
		osExit = func(c int) { code = c }

		panicking("boom")

		assert.Equal(t, panicLogFile, path)
		assert.Contains(t, string(content), "panic: boom")
		assert.Contains(t, string(content), "goroutine")
		assert.Equal(t, 2, code)
	})

	t.Run("Log Write Fails", func(t *testing.T) {
		code := -1
		osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("read-only file system") }
		osExit = func(c int) { code = c }

		panicking(errors.New("nil map"))
		assert.Equal(t, 2, code)
	})

	t.Run("No Panic", func(t *testing.T) {
		called := false
		osWriteFile = func(string, []byte, os.FileMode) error {
			called = true
			return nil
		}
		osExit = func(int) { called = true }

		func() {
			defer handlePanic()
		}()
		require.False(t, called)
	})
}

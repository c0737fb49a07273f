package testutil

import "testing"

// Given runs fn as a subtest named "Given <desc>". When and Then nest inside it
// so a failing wizard scenario reads as a sentence in the test output.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+desc, fn)
}

// When runs fn as a subtest named "When <desc>".
func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("When "+desc, fn)
}

// Then runs fn as a subtest named "Then <desc>".
func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Then "+desc, fn)
}

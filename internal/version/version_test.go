package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	assert.Equal(t, "dev (commit: unknown, built: unknown)", String())

	Version, Commit, Date = "1.2.0", "abc1234", "2026-10-01"
	t.Cleanup(func() { Version, Commit, Date = "dev", "unknown", "unknown" })
	assert.Equal(t, "1.2.0 (commit: abc1234, built: 2026-10-01)", String())
}

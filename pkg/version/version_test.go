package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	oldVersion, oldCommit := Version, GitCommit
	t.Cleanup(func() { Version, GitCommit = oldVersion, oldCommit })

	Version, GitCommit = "v0.3.0", "abc1234def5678"
	assert.Equal(t, "v0.3.0 (abc1234, "+GoVersion+")", String())

	GitCommit = "unknown"
	assert.Equal(t, "v0.3.0 (unknown, "+GoVersion+")", String())
}

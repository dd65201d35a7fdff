package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	v, c, d := Info()
	assert.Equal(t, Version, v)
	assert.Equal(t, GitCommit, c)
	assert.Equal(t, BuildDate, d)
	assert.Equal(t, "dev (commit: unknown, built: unknown)", String())
}

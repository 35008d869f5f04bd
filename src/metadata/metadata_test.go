package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetadata(t *testing.T) {
	assert.Equal(t, "jarvis", Name())
	assert.NotEmpty(t, Version())
	assert.Contains(t, VersionString(), Version())
}

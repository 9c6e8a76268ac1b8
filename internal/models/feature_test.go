package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeature(t *testing.T) {
	f, err := ParseFeature(" 3 ")
	require.NoError(t, err)
	assert.Equal(t, FeatureMarketInsights, f)
	assert.Equal(t, "Job market insights", f.Name())

	for _, raw := range []string{"", "0", "6", "abc"} {
		_, err := ParseFeature(raw)
		assert.Error(t, err, raw)
	}
}

func TestSubjectKey(t *testing.T) {
	assert.Equal(t, "user:7", UserSubject(7).Key())
	assert.Equal(t, "session:abc", AnonymousSubject("abc").Key())
	assert.True(t, UserSubject(7).Authenticated())
	assert.False(t, AnonymousSubject("abc").Authenticated())
}

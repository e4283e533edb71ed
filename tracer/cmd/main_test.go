package main

import (
	"testing"

	"github.com/zeebo/assert"
)

func TestOverrideFlag(t *testing.T) {
	overrides := overrideFlag{}
	assert.NoError(t, overrides.Set("osmosis=osmo1abc"))
	assert.NoError(t, overrides.Set(" cosmoshub = cosmos1xyz "))
	assert.Equal(t, overrides.String(), "cosmoshub=cosmos1xyz,osmosis=osmo1abc")

	for _, bad := range []string{"osmosis", "=osmo1abc", "osmosis=", ""} {
		t.Run(bad, func(t *testing.T) {
			assert.Error(t, overrideFlag{}.Set(bad))
		})
	}
}

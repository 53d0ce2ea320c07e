package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressString(t *testing.T) {
	tests := []struct {
		name string
		addr Address
		want string
	}{
		{"own operation", IntraTree("", "build"), "build"},
		{"child", IntraTree("core", "build"), "core:build"},
		{"nested child", IntraTree("api:core", "publish"), "api:core:publish"},
		{"build root", IntraTree(":", "clean"), ":clean"},
		{"absolute", IntraTree(":core", "clean"), ":core:clean"},
		{"cross build", CrossBuild("platform", "build"), `includedBuild("platform").task(":build")`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.addr.String())
		})
	}
}

func TestAddressesAreComparable(t *testing.T) {
	assert.Equal(t, IntraTree("core", "build"), IntraTree("core", "build"))
	assert.NotEqual(t, IntraTree("core", "build"), CrossBuild("core", "build"))
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in   string
		want Address
	}{
		{"build", IntraTree("", "build")},
		{" core:build ", IntraTree("core", "build")},
		{"api:core:build", IntraTree("api:core", "build")},
		{":core:build", IntraTree(":core", "build")},
		{":build", IntraTree(":", "build")},
		{"@platform:publish", CrossBuild("platform", "publish")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAddress(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAddressRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "  ", "core:", "@platform", "@:build", "@platform:", "@a:b:c"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseAddress(in)
			assert.Error(t, err)
		})
	}
}

package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildEmbedsLimitAndCeiling(t *testing.T) {
	got := Build(42)

	require.Contains(t, got, "under **42 words**")
	require.Contains(t, got, "never exceed **300 words**")
	require.Contains(t, got, "**Picture Type:** <short type")
	require.Contains(t, got, "Use **only** what is visible")
	require.Contains(t, got, "Output **only** the description itself")
}

func TestBuildIsDeterministic(t *testing.T) {
	require.Equal(t, Build(100), Build(100))
	require.NotEqual(t, Build(100), Build(101))
}

func TestSystemMentionsPictureType(t *testing.T) {
	require.True(t, strings.Contains(System, "'Picture Type'"))
	require.Contains(t, System, "word limit")
}

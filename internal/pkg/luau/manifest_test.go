package luau

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const codeWithManifest = `--[[NEXUSRBX_UI_MANIFEST
{"version":1,"elements":[{"type":"Frame","name":"Main","props":{"Size":"0.5,0.5"},"children":[{"type":"TextButton","name":"Go"}]}]}
]]
local frame = Instance.new("Frame")
`

func TestExtractManifest(t *testing.T) {
	manifest, err := ExtractManifest(codeWithManifest)
	require.NoError(t, err)

	assert.Equal(t, 1, manifest.Version)
	require.Len(t, manifest.Elements, 1)
	assert.Equal(t, "Frame", manifest.Elements[0].Type)
	assert.Equal(t, "Main", manifest.Elements[0].Name)
	require.Len(t, manifest.Elements[0].Children, 1)
	assert.Equal(t, "TextButton", manifest.Elements[0].Children[0].Type)
}

func TestExtractManifest_NoBlock(t *testing.T) {
	_, err := ExtractManifest(`print("hello")`)
	assert.ErrorIs(t, err, ErrNoManifest)
}

func TestExtractManifest_InvalidJSON(t *testing.T) {
	code := "--[[NEXUSRBX_UI_MANIFEST\nnot json at all\n]]\nprint(1)"
	_, err := ExtractManifest(code)
	assert.ErrorIs(t, err, ErrInvalidManifest)
}

func TestExtractManifest_EmptyBlock(t *testing.T) {
	code := "--[[NEXUSRBX_UI_MANIFEST\n]]\nprint(1)"
	_, err := ExtractManifest(code)
	assert.ErrorIs(t, err, ErrInvalidManifest)
}

func TestManifestJSON(t *testing.T) {
	got, err := ManifestJSON(codeWithManifest)
	require.NoError(t, err)
	assert.Contains(t, got, `"version":1`)
	assert.Contains(t, got, `"type":"Frame"`)
}

func TestManifestJSON_NoManifest(t *testing.T) {
	got, err := ManifestJSON(`print("hi")`)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `print(1)`, `print(1)`},
		{"lua fence", "```lua\nprint(1)\n```", "print(1)"},
		{"luau fence", "```luau\nlocal x = 1\nprint(x)\n```", "local x = 1\nprint(x)"},
		{"bare fence", "```\nprint(1)\n```", "print(1)"},
		{"missing closing fence", "```lua\nprint(1)", "print(1)"},
		{"surrounding whitespace", "  \n```lua\nprint(1)\n```\n  ", "print(1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.in))
		})
	}
}

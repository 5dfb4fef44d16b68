package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteArg(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "/tmp/stage-1.mp4", "/tmp/stage-1.mp4"},
		{"empty", "", "''"},
		{"spaces", "/tmp/my video.mp4", "'/tmp/my video.mp4'"},
		{"single quote", "it's", `'it'"'"'s'`},
		{"pipe target", "pipe:1", "pipe:1"},
		{"movflags", "frag_keyframe+empty_moov", "frag_keyframe+empty_moov"},
		{"dollar", "$HOME", "'$HOME'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, quoteArg(tt.input))
		})
	}
}

func TestFormatCommand(t *testing.T) {
	got := formatCommand("ffmpeg", "-i", "/tmp/a b.mp4", "-f", "mp4", "pipe:1")
	assert.Equal(t, "ffmpeg -i '/tmp/a b.mp4' -f mp4 pipe:1", got)
}

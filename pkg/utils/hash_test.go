package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases", "What Is EC2?", "what is ec2?"},
		{"collapses whitespace", "  what   is\tec2? ", "what is ec2?"},
		{"newlines", "what\nis ec2?", "what is ec2?"},
		{"already normalized", "what is ec2?", "what is ec2?"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizeQuery(tc.input))
		})
	}
}

func TestQueryCacheKey(t *testing.T) {
	a := QueryCacheKey("What is   S3?")
	b := QueryCacheKey("what is s3?")
	c := QueryCacheKey("what is ebs?")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "qa:")
}

func TestHashStringDeterministic(t *testing.T) {
	assert.Equal(t, HashString("report.pdf"), HashString("report.pdf"))
	assert.NotEqual(t, HashString("report.pdf"), HashString("notes.txt"))
	assert.Len(t, HashString("report.pdf"), 32)
}

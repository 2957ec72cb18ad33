package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient("", "claude-sonnet-4-5")
	assert.ErrorIs(t, err, ErrNotConfigured)

	c, err := NewClient("sk-test", "claude-sonnet-4-5")
	assert.NoError(t, err)
	assert.NotNil(t, c)
}

func TestResponseText(t *testing.T) {
	r := &Response{Content: []ContentBlock{
		{Type: "text", Text: `{"countries": `},
		{Type: "thinking", Text: "ignored"},
		{Type: "text", Text: `["Chile"]}`},
	}}
	assert.Equal(t, `{"countries": ["Chile"]}`, r.Text())

	empty := &Response{}
	assert.Empty(t, empty.Text())
}

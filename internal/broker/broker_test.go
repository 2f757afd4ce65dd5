package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamespacePrefixing(t *testing.T) {
	c := &Client{namespace: "cs"}
	assert.Equal(t, "cs.blocks.42", c.ns("blocks.42"))
}

func TestNamespaceEmptyIsNoop(t *testing.T) {
	c := &Client{namespace: ""}
	assert.Equal(t, "blocks.42", c.ns("blocks.42"))
}

func TestMessageAckNoopWhenUnset(t *testing.T) {
	m := &Message{Payload: []byte("x")}
	assert.NoError(t, m.Ack())
}

func TestMessageAckDelegates(t *testing.T) {
	called := false
	m := &Message{ackFn: func() error {
		called = true
		return nil
	}}
	assert.NoError(t, m.Ack())
	assert.True(t, called)
}

package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "plain", escapeLike("plain"))
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `b\_12`, escapeLike("b_12"))
	assert.Equal(t, `50\\\%`, escapeLike(`50\%`))
}

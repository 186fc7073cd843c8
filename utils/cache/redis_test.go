package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRedisCache_InvalidURL(t *testing.T) {
	_, err := NewRedisCache("not a redis url")
	assert.Error(t, err)
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	_, err := NewRedisCache("redis://127.0.0.1:1/0")
	assert.Error(t, err)
}

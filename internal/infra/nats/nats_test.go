package natsclient

import (
	"testing"

	"github.com/sifan077/PowerDrive/config"
	"github.com/stretchr/testify/assert"
)

func TestBuildURL(t *testing.T) {
	assert.Equal(t, "nats://localhost:4222", buildURL(config.NATSConfig{}))
	assert.Equal(t, "nats://broker:4333", buildURL(config.NATSConfig{Host: "broker", Port: 4333}))
}

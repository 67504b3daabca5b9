package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew_Level(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, New("debug", "json").GetLevel())
	assert.Equal(t, zerolog.WarnLevel, New(" WARN ", "console").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, New("nonsense", "json").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, New("", "json").GetLevel())
}

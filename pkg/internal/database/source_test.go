package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGormConfigTranslatesDriverErrors(t *testing.T) {
	cfg := gormConfig()
	assert.True(t, cfg.TranslateError)
	assert.NotNil(t, cfg.Logger)
}

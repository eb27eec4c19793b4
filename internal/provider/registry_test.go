package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/danielolaszy/glue-mcp/internal/errors"
)

func TestRegistry(t *testing.T) {
	var gotCfg Config
	Register("Fake-Registry-Test", func(_ context.Context, cfg Config) (TicketService, error) {
		gotCfg = cfg
		return nil, nil
	})

	assert.Contains(t, Names(), "fake-registry-test")

	_, err := New(context.Background(), Config{Provider: "FAKE-registry-test", APIToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, "tok", gotCfg.APIToken)

	assert.Panics(t, func() {
		Register("fake-registry-test", nil)
	})
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "trello"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	assert.Equal(t, "provider", apperrors.FieldOf(err))
}

package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain error", err: errors.New("boom"), want: CodeInternal},
		{name: "direct", err: MissingField("user_id"), want: CodeValidation},
		{name: "wrapped once", err: fmt.Errorf("get ticket: %w", NotFound("ticket", "x")), want: CodeNotFound},
		{
			name: "wrapped twice",
			err:  fmt.Errorf("app: %w", fmt.Errorf("linear: %w", Upstream(502, "bad gateway", nil))),
			want: CodeUpstream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetCode(tt.err))
		})
	}
}

func TestFieldAndStatusSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("call tool: %w", MissingField("user_id"))
	assert.True(t, IsCode(err, CodeValidation))
	assert.Equal(t, "user_id", FieldOf(err))

	up := fmt.Errorf("search: %w", Upstream(429, "rate limited", errors.New("slow down")))
	assert.Equal(t, 429, StatusOf(up))
	assert.Contains(t, up.Error(), "status 429")
	assert.Contains(t, up.Error(), "slow down")
}

func TestUnwrapReachesCause(t *testing.T) {
	cause := errors.New("parsing time")
	err := Decode("createdAt", cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "createdAt", err.Field)
	assert.Equal(t, CodeDecode, GetCode(err))
}

func TestConstructorsMessages(t *testing.T) {
	assert.Equal(t, `unsupported_operation: jira provider does not support get_labels`,
		Unsupported("jira", "get_labels").Error())
	assert.Equal(t, `not_found: user "u1" not found`, NotFound("user", "u1").Error())
	assert.Equal(t, CodeUnsupportedFilter, UnsupportedFilter("github", "project_id").Code)
	assert.Equal(t, "project_id", UnsupportedFilter("github", "project_id").Field)
	assert.False(t, IsCode(nil, CodeInternal))
}

package sqlerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageError(t *testing.T) {
	err := Usage("tableName", "must not be empty")
	assert.Equal(t, "invalid tableName: must not be empty", err.Error())
	assert.True(t, IsUsage(err))
	assert.True(t, IsUsage(fmt.Errorf("failed to build: %w", err)))
	assert.False(t, IsUsage(errors.New("other")))
	assert.False(t, IsUsage(nil))
}

func TestSizeLimitError(t *testing.T) {
	err := &SizeLimitError{Limit: 10, Length: 11}
	assert.Equal(t, "statement of 11 bytes exceeds maximum statement length of 10 bytes", err.Error())
}

func TestStatementError(t *testing.T) {
	cause := errors.New("deadlock found")
	err := fmt.Errorf("failed to update: %w", &StatementError{Statement: "UPDATE `t` SET `a` = 1", Err: cause})

	assert.ErrorIs(t, err, cause)
	stmt, ok := StatementOf(err)
	require.True(t, ok)
	assert.Equal(t, "UPDATE `t` SET `a` = 1", stmt)
	assert.Contains(t, err.Error(), "(statement: UPDATE `t` SET `a` = 1)")

	_, ok = StatementOf(cause)
	assert.False(t, ok)
}

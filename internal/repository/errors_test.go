package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError_UniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: EmailUniqueConstraint}

	err := classifyError("insert user", pgErr)

	var cv *ConstraintViolation
	require.True(t, errors.As(err, &cv))
	assert.Equal(t, EmailUniqueConstraint, cv.Constraint)
	assert.True(t, IsConstraintViolation(err, EmailUniqueConstraint))
	assert.False(t, IsConstraintViolation(err, "other_key"))
	assert.ErrorIs(t, err, pgErr)
}

func TestClassifyError_OtherErrorsAreWrapped(t *testing.T) {
	base := &pgconn.PgError{Code: "23502", ConstraintName: "users_name_not_null"}

	err := classifyError("insert user", base)

	assert.False(t, IsConstraintViolation(err, ""))
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "insert user")
}

func TestIsConstraintViolation_Nil(t *testing.T) {
	assert.False(t, IsConstraintViolation(nil, EmailUniqueConstraint))
	assert.False(t, IsConstraintViolation(errors.New("boom"), ""))
}

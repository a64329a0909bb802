package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapDBError(t *testing.T) {
	assert.NoError(t, MapDBError(nil))

	t.Run("context errors", func(t *testing.T) {
		assert.Equal(t, ErrCodeTimeout, GetCode(MapDBError(context.DeadlineExceeded)))
		assert.Equal(t, ErrCodeCanceled, GetCode(MapDBError(context.Canceled)))
	})

	t.Run("no rows maps to not found", func(t *testing.T) {
		err := MapDBError(fmt.Errorf("query: %w", pgx.ErrNoRows))
		assert.True(t, IsNotFound(err))
	})

	t.Run("postgres error codes", func(t *testing.T) {
		cases := []struct {
			pgCode string
			want   ErrorCode
		}{
			{pgerrcode.UniqueViolation, ErrCodeConflict},
			{pgerrcode.NotNullViolation, ErrCodeValidation},
			{pgerrcode.CheckViolation, ErrCodeValidation},
			{pgerrcode.ConnectionFailure, ErrCodeInternal},
		}
		for _, tc := range cases {
			err := MapDBError(&pgconn.PgError{Code: tc.pgCode, ColumnName: "record_id"})
			assert.Equal(t, tc.want, GetCode(err), "pg code %s", tc.pgCode)
		}
	})

	t.Run("unrecognized errors pass through", func(t *testing.T) {
		plain := errors.New("weird")
		assert.Equal(t, plain, MapDBError(plain))
	})
}

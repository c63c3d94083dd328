package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorIncludesInternal(t *testing.T) {
	internal := stdErrors.New("boom")
	err := Wrap(internal, "failed")

	require.Equal(t, "failed: boom", err.Error())
	require.ErrorIs(t, err, internal)
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", 400)
	with := base.WithInternal(stdErrors.New("oops"))

	require.NotSame(t, base, with)
	require.Nil(t, base.Internal)
	require.NotNil(t, with.Internal)
	require.ErrorIs(t, with, base)
}

func TestFromError(t *testing.T) {
	appErr := ErrNotFound
	require.Same(t, appErr, FromError(appErr))

	out := FromError(stdErrors.New("raw"))
	require.Equal(t, ErrInternalServer.Code, out.Code)
	require.NotNil(t, out.Internal)

	require.Nil(t, FromError(nil))
}

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("invalid payload")
	require.Equal(t, ErrBadRequest.Code, err.Code)
	require.Equal(t, "invalid payload", err.Message)
	require.Equal(t, ErrBadRequest.StatusCode, err.StatusCode)
}

func TestNewValidationCarriesFields(t *testing.T) {
	err := NewValidation("quantity", "Cannot deliver 5 items. Only 3 available in stock.")

	require.Equal(t, ErrValidation.Code, err.Code)
	require.Equal(t, http.StatusUnprocessableEntity, err.StatusCode)
	require.Equal(t, "Cannot deliver 5 items. Only 3 available in stock.", err.Fields["quantity"])
	require.Equal(t, err.Fields["quantity"], err.Message)
}

func TestNewValidationFieldsOrdersMessage(t *testing.T) {
	fields := map[string]string{"sku": "too short", "name": "required"}
	err := NewValidationFields(fields)

	require.Equal(t, "required; too short", err.Message)
	fields["sku"] = "mutated"
	require.Equal(t, "too short", err.Fields["sku"])
}

func TestNewConflict(t *testing.T) {
	err := NewConflict("Cannot delete city with buildings.")
	require.Equal(t, http.StatusConflict, err.StatusCode)
	require.ErrorIs(t, err, ErrConflict)
	require.NotErrorIs(t, err, ErrNotFound)
}

package httputil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/errors"
)

func TestValidate_DetailsUseJSONFieldNames(t *testing.T) {
	type placeRun struct {
		ResourceID string `json:"resource_id" validate:"required"`
		ProductID  string `json:"product_id" validate:"required"`
		Internal   string `json:"-" validate:"-"`
	}

	err := Validate(&placeRun{})
	require.Error(t, err)

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Contains(t, appErr.Details, "resource_id")
	assert.Contains(t, appErr.Details, "product_id")
	assert.NotContains(t, appErr.Details, "ResourceID")
}

func TestValidate_PassesValidStruct(t *testing.T) {
	type placeRun struct {
		ResourceID string `json:"resource_id" validate:"required"`
	}

	assert.NoError(t, Validate(&placeRun{ResourceID: "oven-1"}))
}

package database

import (
	"strings"

	"github.com/lib/pq"

	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return nil
	}
}

// mapCheckConstraint maps specific CHECK constraint names to user-friendly messages.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "quantity_on_hand_non_negative"):
		return errors.InsufficientBalance("movement would drive the balance negative")

	case strings.Contains(constraint, "quantity_positive"):
		return errors.Validation(map[string]string{
			"quantity": "must be greater than zero",
		})

	case strings.Contains(constraint, "run_range_valid"):
		return errors.InvalidRange("run end must be after run start")

	case strings.Contains(constraint, "movement_type_valid"):
		return errors.Validation(map[string]string{
			"type": "must be one of: transfer_out, transfer_in",
		})

	case strings.Contains(constraint, "movement_status_valid"):
		return errors.Validation(map[string]string{
			"status": "must be one of: pending, confirmed",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "material_requirement_date"):
		return "a tracking record for this material and requirement date already exists"
	case strings.Contains(constraint, "product_location"):
		return "a balance for this product and location already exists"
	case strings.Contains(constraint, "location_code"):
		return "a location with this code already exists"
	default:
		return "a record with these values already exists"
	}
}

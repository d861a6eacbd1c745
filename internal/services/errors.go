package services

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown user or a
	// wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrWrongPassword      = errors.New("wrong old password")

	ErrNotFound            = errors.New("not found")
	ErrSeriesNotFound      = fmt.Errorf("series %w", ErrNotFound)
	ErrMeasurementNotFound = fmt.Errorf("measurement %w", ErrNotFound)

	// ErrInvalidRange is returned when a series would end up with
	// min_value greater than max_value.
	ErrInvalidRange = errors.New("min_value must not exceed max_value")

	ErrUserExists      = errors.New("user already exists")
	ErrInvalidUser     = errors.New("username and role are required")
	ErrRestoreNotEmpty = errors.New("restore requires an empty database")
	ErrBackupNotFound  = errors.New("backup not found")
)

// OutOfRangeError reports a measurement value outside its series bounds.
type OutOfRangeError struct {
	Value float64
}

func (e *OutOfRangeError) Error() string {
	return "Value " + strconv.FormatFloat(e.Value, 'f', -1, 64) + " out of range"
}

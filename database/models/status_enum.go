package models

import (
	"database/sql/driver"
	"fmt"
)

type SwapStatus string

const (
	// happy path
	StatusPending        SwapStatus = "PENDING"
	StatusSrcCreated     SwapStatus = "SRC_CREATED"
	StatusDstCreated     SwapStatus = "DST_CREATED"
	StatusSecretRevealed SwapStatus = "SECRET_REVEALED"
	StatusDone           SwapStatus = "DONE"
	// any failure once the source escrow exists
	StatusCancelling SwapStatus = "CANCELLING"
)

func (s SwapStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusSrcCreated, StatusDstCreated, StatusSecretRevealed, StatusDone, StatusCancelling:
		return true
	}

	return false
}

func (s SwapStatus) String() string {
	return string(s)
}

func (s *SwapStatus) Scan(value interface{}) error {
	var str string
	switch v := value.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		return fmt.Errorf("failed to scan SwapStatus: expected string, got %T", value)
	}
	*s = SwapStatus(str)

	return nil
}

func (s SwapStatus) Value() (driver.Value, error) {
	return string(s), nil
}

func CreateSwapStatusEnumSQL() string {
	return `CREATE TYPE "public"."swap_status" AS ENUM (
		'PENDING',
		'SRC_CREATED',
		'DST_CREATED',
		'SECRET_REVEALED',
		'DONE',
		'CANCELLING'
	);
	`
}

func DropSwapStatusEnumSQL() string {
	return `DROP TYPE IF EXISTS "public"."swap_status";`
}

package models

import (
	"database/sql/driver"
	"fmt"
)

type SwapOutcome string

const (
	// Both escrows withdrawn.
	OutcomeSuccess SwapOutcome = "SUCCESS"
	// Every created escrow cancelled back to its funder.
	OutcomeCancelled SwapOutcome = "CANCELLED"
	// Rejected before anything was locked on chain.
	OutcomeFailed SwapOutcome = "FAILED"
)

func (o SwapOutcome) String() string {
	return string(o)
}

func (o *SwapOutcome) Scan(value interface{}) error {
	if value == nil {
		*o = ""

		return nil
	}

	var str string
	switch v := value.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		return fmt.Errorf("failed to scan SwapOutcome: expected string, got %T", value)
	}
	*o = SwapOutcome(str)

	return nil
}

func (o SwapOutcome) Value() (driver.Value, error) {
	if o == "" {
		return nil, nil
	}

	return string(o), nil
}

func CreateSwapOutcomeEnumSQL() string {
	return `CREATE TYPE "public"."swap_outcome" AS ENUM (
		'SUCCESS',
		'CANCELLED',
		'FAILED'
	);
	`
}

func DropSwapOutcomeEnumSQL() string {
	return `DROP TYPE IF EXISTS "public"."swap_outcome";`
}

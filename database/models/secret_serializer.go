package models

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/40acres/htlcswap/escrow"
	"gorm.io/gorm/schema"
)

// SecretSerializer stores a *escrow.Secret as its hex string.
type SecretSerializer struct{}

// Scan implements serializer interface
func (SecretSerializer) Scan(ctx context.Context, field *schema.Field, dst reflect.Value, dbValue interface{}) error {
	if dbValue == nil {
		return nil
	}

	var secretStr string
	switch v := dbValue.(type) {
	case string:
		secretStr = v
	case []byte:
		secretStr = string(v)
	default:
		return fmt.Errorf("failed to cast secret value: %v", dbValue)
	}

	secretPointer := dst.Elem().FieldByName(field.Name)
	if secretStr == "" {
		secretPointer.Set(reflect.Zero(field.FieldType))

		return nil
	}

	secret, err := escrow.ParseSecret(secretStr)
	if err != nil {
		return fmt.Errorf("failed to parse secret: %w", err)
	}

	secretPointer.Set(reflect.ValueOf(&secret))

	return nil
}

// Value implements serializer interface
func (SecretSerializer) Value(ctx context.Context, field *schema.Field, dst reflect.Value, fieldValue interface{}) (interface{}, error) {
	if fieldValue == nil {
		return nil, nil
	}

	secret, ok := fieldValue.(*escrow.Secret)
	if !ok {
		return nil, errors.New("invalid secret value: not a *escrow.Secret")
	}

	if secret == nil {
		return nil, nil
	}

	return secret.String(), nil
}

func RegisterSecretSerializer() {
	schema.RegisterSerializer("secret", SecretSerializer{})
}

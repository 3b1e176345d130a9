package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/40acres/htlcswap/database/models"
	"gorm.io/gorm"
)

//go:generate go tool mockgen -destination=mock.go -package=database . SwapRepository

var ErrSwapNotFound = errors.New("swap not found")

type SwapRepository interface {
	SaveSwap(ctx context.Context, swap *models.Swap) error
	GetPendingSwaps(ctx context.Context) ([]*models.Swap, error)
	GetSwap(ctx context.Context, orderHash string) (*models.Swap, error)
}

var _ SwapRepository = (*Database)(nil)

func (d *Database) SaveSwap(ctx context.Context, swap *models.Swap) error {
	return d.orm.WithContext(ctx).Save(swap).Error
}

func (d *Database) GetPendingSwaps(ctx context.Context) ([]*models.Swap, error) {
	var swaps []*models.Swap
	err := d.orm.WithContext(ctx).
		Where("status != ?", models.StatusDone).
		Order("created_at").
		Find(&swaps).Error
	if err != nil {
		return nil, err
	}

	return swaps, nil
}

func (d *Database) GetSwap(ctx context.Context, orderHash string) (*models.Swap, error) {
	var swap models.Swap
	err := d.orm.WithContext(ctx).Where("order_hash = ?", orderHash).First(&swap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSwapNotFound, orderHash)
	}
	if err != nil {
		return nil, err
	}

	return &swap, nil
}

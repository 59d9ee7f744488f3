package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"yellowpages-backend/models"
	"yellowpages-backend/store"
)

// VendorCollection implements store.Collection on a GORM table.
type VendorCollection struct {
	db *gorm.DB
}

func NewVendorCollection(db *gorm.DB) *VendorCollection {
	return &VendorCollection{db: db}
}

func (c *VendorCollection) InsertOne(ctx context.Context, vendor *models.Vendor) error {
	return translate(c.db.WithContext(ctx).Create(vendor).Error)
}

func (c *VendorCollection) InsertMany(ctx context.Context, vendors []models.Vendor) error {
	if len(vendors) == 0 {
		return nil
	}
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&vendors, 100).Error
	})
	return translate(err)
}

func (c *VendorCollection) FindOne(ctx context.Context, filter store.Filter) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := where(c.db.WithContext(ctx), filter).First(&vendor).Error; err != nil {
		return nil, translate(err)
	}
	return &vendor, nil
}

func (c *VendorCollection) Find(ctx context.Context, filter store.Filter, limit int) ([]models.Vendor, error) {
	q := where(c.db.WithContext(ctx), filter).
		Order("created_at DESC").
		Order("vendor_name ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var vendors []models.Vendor
	if err := q.Find(&vendors).Error; err != nil {
		return nil, translate(err)
	}
	return vendors, nil
}

func (c *VendorCollection) UpdateOne(ctx context.Context, filter store.Filter, set map[string]any) (int64, error) {
	if len(filter) == 0 {
		return 0, errors.New("update without filter")
	}
	res := where(c.db.WithContext(ctx).Model(&models.Vendor{}), filter).Updates(set)
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return res.RowsAffected, nil
}

func (c *VendorCollection) DeleteOne(ctx context.Context, filter store.Filter) (int64, error) {
	if len(filter) == 0 {
		return 0, errors.New("delete without filter")
	}
	res := where(c.db.WithContext(ctx), filter).Delete(&models.Vendor{})
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return res.RowsAffected, nil
}

func (c *VendorCollection) Count(ctx context.Context, filter store.Filter) (int64, error) {
	var n int64
	err := where(c.db.WithContext(ctx).Model(&models.Vendor{}), filter).Count(&n).Error
	return n, translate(err)
}

func (c *VendorCollection) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func where(q *gorm.DB, filter store.Filter) *gorm.DB {
	if len(filter) == 0 {
		return q
	}
	return q.Where(map[string]interface{}(filter))
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNoDocuments
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return fmt.Errorf("%w: %v", store.ErrDuplicateKey, err)
	}
	return err
}

// isUniqueViolation catches drivers that do not translate errors.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "duplicate key value")
}

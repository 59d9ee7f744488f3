package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vendor is a listed service provider. Name and phone are unique.
type Vendor struct {
	Id                  string    `json:"id" gorm:"primaryKey;size:64"`
	VendorName          string    `json:"vendor_name" gorm:"size:100;not null;uniqueIndex:idx_vendors_vendor_name"`
	ServiceProviderName string    `json:"service_provider_name" gorm:"size:100;not null"`
	PhoneNumber         string    `json:"phone_number" gorm:"size:15;not null;uniqueIndex:idx_vendors_phone_number"`
	CreatedAt           time.Time `json:"created_at" gorm:"not null;index:idx_vendors_created_at"`
	UpdatedAt           time.Time `json:"updated_at" gorm:"not null"`
}

func (vendor *Vendor) BeforeCreate(tx *gorm.DB) (err error) {
	if vendor.Id == "" {
		// UUID version 4
		vendor.Id = uuid.NewString()
	}
	return
}

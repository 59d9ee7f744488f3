package store

import (
	_ "embed"
	"fmt"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"yellowpages-backend/models"
)

//go:embed catalog.yaml
var catalogYAML []byte

type CatalogEntry struct {
	VendorName          string `yaml:"vendor_name"`
	ServiceProviderName string `yaml:"service_provider_name"`
	PhoneNumber         string `yaml:"phone_number"`
}

var (
	catalogOnce    sync.Once
	catalogEntries []CatalogEntry
	catalogErr     error
)

// SeedCatalog returns the embedded directory entries used by Seed.
func SeedCatalog() ([]CatalogEntry, error) {
	catalogOnce.Do(func() {
		var doc struct {
			Vendors []CatalogEntry `yaml:"vendors"`
		}
		if err := yaml.Unmarshal(catalogYAML, &doc); err != nil {
			catalogErr = fmt.Errorf("parse seed catalog: %w", err)
			return
		}
		catalogEntries = doc.Vendors
	})
	return catalogEntries, catalogErr
}

// demoCreatedAt is the fixed creation time of the demo records.
var demoCreatedAt = time.Date(2025, time.July, 1, 12, 0, 0, 0, time.UTC)

// DemoCatalog is served by List while the store is in fallback mode.
func DemoCatalog() []models.Vendor {
	return []models.Vendor{
		{
			Id:                  "fallback-1",
			VendorName:          "Demo Plumbing Services",
			ServiceProviderName: "Plumbing",
			PhoneNumber:         "5551234567",
			CreatedAt:           demoCreatedAt,
			UpdatedAt:           demoCreatedAt,
		},
		{
			Id:                  "fallback-2",
			VendorName:          "Demo Electrical Works",
			ServiceProviderName: "Electrical",
			PhoneNumber:         "5559876543",
			CreatedAt:           demoCreatedAt,
			UpdatedAt:           demoCreatedAt,
		},
		{
			Id:                  "fallback-3",
			VendorName:          "Demo Landscaping Co",
			ServiceProviderName: "Landscaping",
			PhoneNumber:         "5554567890",
			CreatedAt:           demoCreatedAt,
			UpdatedAt:           demoCreatedAt,
		},
	}
}

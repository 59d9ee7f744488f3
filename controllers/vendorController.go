package controllers

import (
	"github.com/gofiber/fiber/v2"

	"yellowpages-backend/middlewares"
	"yellowpages-backend/models"
	"yellowpages-backend/store"
	"yellowpages-backend/utils"
)

const FallbackHeader = "X-Fallback-Mode"

// CreateVendorRequest only bounds raw input size. Field rules are applied
// by the store on normalized values.
type CreateVendorRequest struct {
	VendorName          string `json:"vendor_name" validate:"max=256"`
	ServiceProviderName string `json:"service_provider_name" validate:"max=256"`
	PhoneNumber         string `json:"phone_number" validate:"max=64"`
}

type UpdateVendorRequest struct {
	VendorName          *string `json:"vendor_name" validate:"omitempty,max=256"`
	ServiceProviderName *string `json:"service_provider_name" validate:"omitempty,max=256"`
	PhoneNumber         *string `json:"phone_number" validate:"omitempty,max=64"`
}

type VendorController struct {
	Store *store.VendorStore
}

func NewVendorController(s *store.VendorStore) *VendorController {
	return &VendorController{Store: s}
}

func (vc *VendorController) CreateVendor(c *fiber.Ctx) error {
	var req CreateVendorRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	vendor, err := vc.Store.Create(c.UserContext(), store.NewVendor{
		VendorName:          req.VendorName,
		ServiceProviderName: req.ServiceProviderName,
		PhoneNumber:         req.PhoneNumber,
	})
	if err != nil {
		return err
	}
	vc.markFallback(c)
	return c.JSON(vendor)
}

func (vc *VendorController) GetVendors(c *fiber.Ctx) error {
	limit := utils.ParseLimit(c.Query("limit"), store.DefaultListLimit, store.DefaultListLimit)
	vendors, err := vc.Store.List(c.UserContext(), limit)
	if err != nil {
		return err
	}
	vc.markFallback(c)
	if vendors == nil {
		vendors = []models.Vendor{}
	}
	return c.JSON(vendors)
}

func (vc *VendorController) GetVendor(c *fiber.Ctx) error {
	vendor, err := vc.Store.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(vendor)
}

func (vc *VendorController) UpdateVendor(c *fiber.Ctx) error {
	var req UpdateVendorRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	vendor, err := vc.Store.Update(c.UserContext(), c.Params("id"), store.VendorPatch{
		VendorName:          req.VendorName,
		ServiceProviderName: req.ServiceProviderName,
		PhoneNumber:         req.PhoneNumber,
	})
	if err != nil {
		return err
	}
	return c.JSON(vendor)
}

func (vc *VendorController) DeleteVendor(c *fiber.Ctx) error {
	if err := vc.Store.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Vendor deleted successfully"})
}

func (vc *VendorController) SeedVendors(c *fiber.Ctx) error {
	res, err := vc.Store.Seed(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message":  res.String(),
		"inserted": res.Inserted,
		"total":    res.Total,
	})
}

func (vc *VendorController) markFallback(c *fiber.Ctx) {
	if vc.Store.InFallback() {
		c.Set(FallbackHeader, "true")
	}
}

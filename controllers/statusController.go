package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"yellowpages-backend/middlewares"
	"yellowpages-backend/models"
	"yellowpages-backend/store"
	"yellowpages-backend/utils"
)

type CreateStatusCheckRequest struct {
	ClientName string `json:"client_name" validate:"required,max=100"`
}

// StatusController records client status checks directly through GORM.
type StatusController struct {
	DB      *gorm.DB
	Timeout time.Duration
}

func NewStatusController(db *gorm.DB, timeout time.Duration) *StatusController {
	if timeout <= 0 {
		timeout = store.DefaultTimeout
	}
	return &StatusController{DB: db, Timeout: timeout}
}

func (sc *StatusController) CreateStatusCheck(c *fiber.Ctx) error {
	var req CreateStatusCheckRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	utils.TrimStrings(&req)
	if err := middlewares.ValidateStruct(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), sc.Timeout)
	defer cancel()

	check := models.StatusCheck{ClientName: req.ClientName}
	if err := sc.DB.WithContext(ctx).Create(&check).Error; err != nil {
		return fmt.Errorf("create status check: %w: %v", store.ErrStorageUnavailable, err)
	}
	return c.JSON(check)
}

func (sc *StatusController) GetStatusChecks(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), sc.Timeout)
	defer cancel()

	checks := []models.StatusCheck{}
	if err := sc.DB.WithContext(ctx).Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).Limit(store.DefaultListLimit).Find(&checks).Error; err != nil {
		return fmt.Errorf("list status checks: %w: %v", store.ErrStorageUnavailable, err)
	}
	return c.JSON(checks)
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StatusCheck struct {
	Id         string    `json:"id" gorm:"primaryKey;size:64"`
	ClientName string    `json:"client_name" gorm:"size:100;not null"`
	Timestamp  time.Time `json:"timestamp" gorm:"not null;index"`
}

func (check *StatusCheck) BeforeCreate(tx *gorm.DB) (err error) {
	check.Id = uuid.NewString()
	if check.Timestamp.IsZero() {
		check.Timestamp = time.Now().UTC()
	}
	return
}

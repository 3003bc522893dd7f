package models

import "gorm.io/gorm"

// Cashier is an authenticated cage operator. The secret key is handed out
// once at registration and checked on every request.
type Cashier struct {
	gorm.Model

	CashierCode string `gorm:"size:32;uniqueIndex;not null" json:"cashier_code"`
	Name        string `gorm:"size:64" json:"name"`
	SecretKey   string `gorm:"size:64;not null" json:"-"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`
}

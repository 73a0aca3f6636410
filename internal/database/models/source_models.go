package models

import "time"

// Raw tables. The normalizer fully replaces each one on every ingestion run.

type Sale struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	ProductID   string    `gorm:"size:100;index"`
	SaleDate    time.Time `gorm:"index"`
	Quantity    int64
	SalesAmount *string `gorm:"size:50"`
	VendorName  string  `gorm:"size:255;index"`
	Brand       string  `gorm:"size:255"`
	Store       string  `gorm:"size:100"`
}

func (Sale) TableName() string { return "sales" }

type Purchase struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	ProductID  string    `gorm:"size:100;index"`
	OrderDate  time.Time `gorm:"index"`
	Quantity   int64
	UnitCost   string `gorm:"size:50"`
	VendorName string `gorm:"size:255"`
}

func (Purchase) TableName() string { return "purchases" }

type InventorySnapshot struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	ProductID    string `gorm:"size:100;index"`
	OpeningQty   int64
	ClosingQty   int64
	OpeningValue string `gorm:"size:50"`
	ClosingValue string `gorm:"size:50"`
}

func (InventorySnapshot) TableName() string { return "inventory" }

type Product struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	ProductID   string `gorm:"size:100;index"`
	SKU         string `gorm:"size:100"`
	ProductName string `gorm:"size:255"`
	Category    string `gorm:"size:100"`
	Brand       string `gorm:"size:255"`
	VendorName  string `gorm:"size:255"`
}

func (Product) TableName() string { return "products" }

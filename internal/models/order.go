package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatus mirrors the order/shipping state machine owned by the shop
// service. The engine only reads it; "delivered" is the status that triggers
// commission and point creation.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCanceled  OrderStatus = "canceled"
)

// Order represents a shop order. Owned by the shop service; the engine reads
// orders and their lines when reacting to a delivery signal.
type Order struct {
	ID          uuid.UUID      `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	CustomerID  uuid.UUID      `gorm:"type:uuid;index;not null" json:"customer_id"`
	Customer    Customer       `gorm:"foreignKey:CustomerID" json:"-"`
	Status      OrderStatus    `gorm:"type:varchar(20);not null;index" json:"status"`
	Total       float64        `gorm:"type:decimal(20,2);not null;default:0" json:"total"`
	Currency    string         `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	DeliveredAt *time.Time     `gorm:"index" json:"delivered_at"`
	Lines       []OrderLine    `gorm:"foreignKey:OrderID" json:"lines"`
	CreatedAt   time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// OrderLine is one sold position of an order. AffiliateID is nil when the
// line was not sold through an affiliate.
type OrderLine struct {
	ID          uuid.UUID      `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	OrderID     uuid.UUID      `gorm:"type:uuid;index;not null" json:"order_id"`
	ProductID   uuid.UUID      `gorm:"type:uuid;index;not null" json:"product_id"`
	AffiliateID *uuid.UUID     `gorm:"type:uuid;index" json:"affiliate_id"`
	SalePrice   float64        `gorm:"type:decimal(20,2);not null" json:"sale_price"`
	Quantity    int            `gorm:"not null;default:1" json:"quantity"`
	CreatedAt   time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Product carries the pricing the commission rules evaluate against.
// FixedCommission is nil when the product pays margin-based commission.
type Product struct {
	ID               uuid.UUID      `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Title            string         `gorm:"type:varchar(255);not null" json:"title"`
	CostPrice        float64        `gorm:"type:decimal(20,2);not null;default:0" json:"cost_price"`
	RecommendedPrice float64        `gorm:"type:decimal(20,2);not null;default:0" json:"recommended_price"`
	FixedCommission  *float64       `gorm:"type:decimal(20,2)" json:"fixed_commission"`
	CreatedAt        time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

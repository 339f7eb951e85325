package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 商品（お菓子）1件分の在庫レコード
type Sweet struct {
	ID          string          `gorm:"type:uuid;primaryKey"`
	Name        string          `gorm:"type:varchar(200);not null;index"`
	Category    string          `gorm:"type:varchar(100);not null;index"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Quantity    int64           `gorm:"not null;check:chk_sweets_quantity,quantity >= 0"`
	Description *string         `gorm:"type:text"`
	CreatedAt   time.Time       `gorm:"not null;index"`
	// 更新時刻はusecase側のclockで入れるのでgormには触らせない
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:false"`
}

// 在庫ありかどうか（保存はしない）
func (s Sweet) IsInStock() bool {
	return s.Quantity > 0
}

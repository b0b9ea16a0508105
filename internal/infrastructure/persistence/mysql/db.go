package mysql

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/smarte-commerce/inventory-engine/internal/domain/region"
	"github.com/smarte-commerce/inventory-engine/internal/infrastructure/config"
)

// NewDB 创建单个区域的数据库连接
// 设计说明：
// 1. 使用GORM v2作为ORM框架
// 2. 配置连接池参数（MaxOpenConns、MaxIdleConns、ConnMaxLifetime）
// 3. 开发环境开启SQL日志，生产环境关闭
// 4. 自动迁移表结构（AutoMigrate，生产环境应换用版本化迁移工具）
func NewDB(cfg config.DatabaseConfig, mode string) (*gorm.DB, error) {
	dsn := cfg.DSN()

	logLevel := logger.Silent
	if mode == "debug" {
		logLevel = logger.Info // 开发环境打印SQL
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	return db, nil
}

// NewRegionDBs 按区域建立全部数据库连接
// 每个区域一套独立的库,互不共享连接池
func NewRegionDBs(cfg *config.Config) (map[region.ID]*gorm.DB, error) {
	dbs := make(map[region.ID]*gorm.DB, len(region.All()))
	for _, id := range region.All() {
		rc, ok := cfg.Regions[string(id)]
		if !ok {
			return nil, fmt.Errorf("缺少区域%s的数据库配置", id)
		}
		db, err := NewDB(rc.Database, cfg.Server.Mode)
		if err != nil {
			return nil, fmt.Errorf("区域%s: %w", id, err)
		}
		log.Printf("✓ 区域%s数据库连接成功", id)
		dbs[id] = db
	}
	return dbs, nil
}

// autoMigrate 自动迁移表结构
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&InventoryModel{},
		&ReservationModel{},
		&ReservationItemModel{},
		&ProductVariantModel{},
	)
}

// InventoryModel GORM库存模型
// 设计说明：
// 1. 这是infrastructure层的数据模型，包含GORM tag
// 2. domain/inventory/entity.go是领域实体，不依赖GORM
// 3. Version列配合条件UPDATE实现乐观锁,没有任何行级锁
type InventoryModel struct {
	ID        uint      `gorm:"primaryKey"`
	SKU       string    `gorm:"uniqueIndex;size:64;not null;comment:库存单元编码"`
	Available int       `gorm:"not null;default:0;comment:可售数量"`
	Reserved  int       `gorm:"not null;default:0;comment:已预留数量"`
	Sold      int       `gorm:"not null;default:0;comment:已售出数量"`
	Version   int64     `gorm:"not null;default:0;comment:乐观锁版本"`
	CreatedAt time.Time `gorm:"comment:创建时间"`
	UpdatedAt time.Time `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (InventoryModel) TableName() string {
	return "inventory_records"
}

// ReservationModel GORM预留单模型
// 与ReservationItemModel是一对多关系;Version列支持并发过期转移的CAS
type ReservationModel struct {
	ID          string                 `gorm:"primaryKey;size:36;comment:预留单UUID"`
	Status      int                    `gorm:"index:idx_sweep;type:tinyint;not null;comment:状态(1待确认2已确认3已取消4已过期)"`
	OrderID     string                 `gorm:"size:36;comment:确认时回填的订单号"`
	ExpiresAt   time.Time              `gorm:"index:idx_sweep;not null;comment:过期时间"`
	ConfirmedAt *time.Time             `gorm:"comment:确认时间"`
	CancelledAt *time.Time             `gorm:"comment:取消/过期释放时间"`
	Version     int64                  `gorm:"not null;default:0;comment:乐观锁版本"`
	Items       []ReservationItemModel `gorm:"foreignKey:ReservationID"` // 一对多关联
	CreatedAt   time.Time              `gorm:"comment:创建时间"`
	UpdatedAt   time.Time              `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (ReservationModel) TableName() string {
	return "reservations"
}

// ReservationItemModel GORM预留行项模型
// SKU和Region是创建时解析的快照
type ReservationItemModel struct {
	ID            uint   `gorm:"primaryKey"`
	ReservationID string `gorm:"index;size:36;not null;comment:预留单ID"`
	ProductID     uint   `gorm:"not null;comment:商品ID"`
	VariantID     uint   `gorm:"not null;comment:变体ID"`
	SKU           string `gorm:"index;size:64;not null;comment:库存单元编码"`
	Region        string `gorm:"size:8;not null;comment:库存归属区域"`
	Quantity      int    `gorm:"not null;comment:预留数量"`
	Confirmed     bool   `gorm:"not null;default:false;comment:是否已确认"`
}

// TableName 指定表名
func (ReservationItemModel) TableName() string {
	return "reservation_items"
}

// ProductVariantModel GORM商品变体模型
// 预留引擎只读:记录(productId, variantId)到SKU/区域/价格的映射
type ProductVariantModel struct {
	ID        uint      `gorm:"primaryKey"`
	ProductID uint      `gorm:"uniqueIndex:idx_variant;not null;comment:商品ID"`
	VariantID uint      `gorm:"uniqueIndex:idx_variant;not null;comment:变体ID"`
	SKU       string    `gorm:"uniqueIndex;size:64;not null;comment:库存单元编码"`
	Region    string    `gorm:"size:8;not null;comment:库存归属区域"`
	Price     int64     `gorm:"not null;comment:当前单价(分)"`
	CreatedAt time.Time `gorm:"comment:创建时间"`
	UpdatedAt time.Time `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (ProductVariantModel) TableName() string {
	return "product_variants"
}

package models

import "time"

// Project is a tracked crypto asset. Price-performance extremes are written
// by the external price-tracking collaborator and read-only inside this
// service; each carries the timestamp the extreme occurred.
type Project struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	Symbol    string `gorm:"size:50;not null;uniqueIndex:idx_projects_symbol" json:"symbol"`
	Name      string `gorm:"size:255;default:''" json:"name"`
	LogoURL   string `gorm:"size:512;default:''" json:"logo_url"`
	IsTracked bool   `gorm:"default:true" json:"is_tracked"`

	HighRate24H  float64    `gorm:"column:high_rate_24h;default:0" json:"high_rate_24h"`
	HighPrice24H float64    `gorm:"column:high_price_24h;default:0" json:"high_price_24h"`
	HighTime24H  *time.Time `gorm:"column:high_time_24h" json:"high_time_24h"`
	LowRate24H   float64    `gorm:"column:low_rate_24h;default:0" json:"low_rate_24h"`
	LowPrice24H  float64    `gorm:"column:low_price_24h;default:0" json:"low_price_24h"`
	LowTime24H   *time.Time `gorm:"column:low_time_24h" json:"low_time_24h"`

	HighRate7D  float64    `gorm:"column:high_rate_7d;default:0" json:"high_rate_7d"`
	HighPrice7D float64    `gorm:"column:high_price_7d;default:0" json:"high_price_7d"`
	HighTime7D  *time.Time `gorm:"column:high_time_7d" json:"high_time_7d"`
	LowRate7D   float64    `gorm:"column:low_rate_7d;default:0" json:"low_rate_7d"`
	LowPrice7D  float64    `gorm:"column:low_price_7d;default:0" json:"low_price_7d"`
	LowTime7D   *time.Time `gorm:"column:low_time_7d" json:"low_time_7d"`

	HighRate30D  float64    `gorm:"column:high_rate_30d;default:0" json:"high_rate_30d"`
	HighPrice30D float64    `gorm:"column:high_price_30d;default:0" json:"high_price_30d"`
	HighTime30D  *time.Time `gorm:"column:high_time_30d" json:"high_time_30d"`
	LowRate30D   float64    `gorm:"column:low_rate_30d;default:0" json:"low_rate_30d"`
	LowPrice30D  float64    `gorm:"column:low_price_30d;default:0" json:"low_price_30d"`
	LowTime30D   *time.Time `gorm:"column:low_time_30d" json:"low_time_30d"`

	CreatedAt time.Time         `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time         `json:"updated_at" gorm:"autoUpdateTime"`
	Contracts []ProjectContract `gorm:"foreignKey:ProjectID" json:"contracts,omitempty"`
}

// TableName specifies the table name
func (Project) TableName() string {
	return "projects"
}

// ProjectContract maps a project to its contract address on one chain.
// At most one contract per chain per project.
type ProjectContract struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	ProjectID       uint      `gorm:"not null;uniqueIndex:idx_project_contracts_project_chain" json:"project_id"`
	Chain           string    `gorm:"size:20;not null;uniqueIndex:idx_project_contracts_project_chain" json:"chain"`
	ContractAddress string    `gorm:"size:128;not null" json:"contract_address"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name
func (ProjectContract) TableName() string {
	return "project_contracts"
}

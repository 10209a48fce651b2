package domain

import "time"

// User is an account that owns invoices. The business fields feed the
// seller block of new invoices.
type User struct {
	ID            int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	Name          string    `gorm:"size:128" json:"name"`
	Email         string    `gorm:"uniqueIndex;size:255" json:"email"`
	Password      string    `json:"-"`
	BusinessName  string    `json:"businessName"`
	BusinessEmail string    `json:"businessEmail"`
	BusinessPhone string    `json:"businessPhone"`
	Address       string    `json:"address"`
	Phone         string    `json:"phone"`
	LastLogin     time.Time `json:"lastLogin"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// TableName Specify table name
func (User) TableName() string {
	return "sys_user"
}

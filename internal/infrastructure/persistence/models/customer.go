package models

import "github.com/customersvc/backend/internal/domain/customer"

// CustomerModel is the persistence model for the customers table
type CustomerModel struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	FirstName string `gorm:"column:first_name;type:varchar(255);not null"`
	LastName  string `gorm:"column:last_name;type:varchar(255);not null"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the persistence model to a domain Customer
func (m *CustomerModel) ToDomain() *customer.Customer {
	return &customer.Customer{
		ID:        m.ID,
		FirstName: m.FirstName,
		LastName:  m.LastName,
	}
}

// CustomerModelFromDomain creates a persistence model from a domain Customer
func CustomerModelFromDomain(c *customer.Customer) *CustomerModel {
	return &CustomerModel{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
	}
}

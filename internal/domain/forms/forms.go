// Package forms defines the checkout and contact forms, their validation
// rules and draft persistence.
package forms

import "strings"

// Delivery windows accepted by CheckoutForm.DeliveryTime.
const (
	DeliveryMorning   = "morning"
	DeliveryAfternoon = "afternoon"
	DeliveryEvening   = "evening"
)

// CheckoutForm is what the shopper enters on the checkout page.
type CheckoutForm struct {
	Name         string `json:"name" validate:"required"`
	Phone        string `json:"phone" validate:"required,phone"`
	Address      string `json:"address" validate:"required"`
	DeliveryTime string `json:"deliveryTime,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// Normalize trims surrounding whitespace from every field.
func (f CheckoutForm) Normalize() CheckoutForm {
	return CheckoutForm{
		Name:         strings.TrimSpace(f.Name),
		Phone:        strings.TrimSpace(f.Phone),
		Address:      strings.TrimSpace(f.Address),
		DeliveryTime: strings.TrimSpace(f.DeliveryTime),
		Instructions: strings.TrimSpace(f.Instructions),
	}
}

// CustomerInfo returns the part of the form remembered for the next visit.
func (f CheckoutForm) CustomerInfo() CustomerInfo {
	return CustomerInfo{Name: f.Name, Phone: f.Phone, Address: f.Address}
}

// CustomerInfo pre-fills the checkout form on later visits.
type CustomerInfo struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// ContactForm is what the visitor enters on the contact page.
type ContactForm struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone" validate:"required,phone"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required,max=500"`
}

// Normalize trims surrounding whitespace from every field.
func (f ContactForm) Normalize() ContactForm {
	return ContactForm{
		Name:    strings.TrimSpace(f.Name),
		Phone:   strings.TrimSpace(f.Phone),
		Email:   strings.TrimSpace(f.Email),
		Subject: strings.TrimSpace(f.Subject),
		Message: strings.TrimSpace(f.Message),
	}
}

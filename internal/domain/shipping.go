package domain

import "strings"

// Shipping field names, in form order. They double as the JSON keys.
const (
	FieldName       = "nombre"
	FieldAddress    = "direccion"
	FieldCity       = "ciudad"
	FieldPostalCode = "codigo_postal"
	FieldEmail      = "email"
	FieldPhone      = "telefono"
)

// ShippingFields lists every mandatory shipping field in form order.
var ShippingFields = []string{
	FieldName,
	FieldAddress,
	FieldCity,
	FieldPostalCode,
	FieldEmail,
	FieldPhone,
}

// ShippingInfo is the delivery data captured in the shipping step.
type ShippingInfo struct {
	Name       string `json:"nombre" bson:"nombre"`
	Address    string `json:"direccion" bson:"direccion"`
	City       string `json:"ciudad" bson:"ciudad"`
	PostalCode string `json:"codigo_postal" bson:"codigo_postal"`
	Email      string `json:"email" bson:"email"`
	Phone      string `json:"telefono" bson:"telefono"`
}

// Get returns the value of the named field and whether the name is known.
func (s ShippingInfo) Get(field string) (string, bool) {
	switch field {
	case FieldName:
		return s.Name, true
	case FieldAddress:
		return s.Address, true
	case FieldCity:
		return s.City, true
	case FieldPostalCode:
		return s.PostalCode, true
	case FieldEmail:
		return s.Email, true
	case FieldPhone:
		return s.Phone, true
	}
	return "", false
}

// Set stores a trimmed value for the named field. It reports false for
// unknown field names.
func (s *ShippingInfo) Set(field, value string) bool {
	value = strings.TrimSpace(value)
	switch field {
	case FieldName:
		s.Name = value
	case FieldAddress:
		s.Address = value
	case FieldCity:
		s.City = value
	case FieldPostalCode:
		s.PostalCode = value
	case FieldEmail:
		s.Email = value
	case FieldPhone:
		s.Phone = value
	default:
		return false
	}
	return true
}

// Validate returns a ValidationError naming the first blank field, or nil.
func (s ShippingInfo) Validate() error {
	for _, field := range ShippingFields {
		v, _ := s.Get(field)
		if strings.TrimSpace(v) == "" {
			return &ValidationError{
				Field:   field,
				Message: "complete all shipping fields before continuing",
			}
		}
	}
	return nil
}

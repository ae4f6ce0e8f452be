package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnake(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Username", "username"},
		{"FullName", "full_name"},
		{"HTTPCode", "http_code"},
		{"UserID", "user_id"},
		{"XMLParser", "xml_parser"},
		{"getHTTPResponse", "get_http_response"},
		{"already_snake", "already_snake"},
		{"A", "a"},
		{"ABC", "abc"},
		{"", ""},
		{"PHBOrg", "phb_org"},
		{"UserIDs", "user_ids"},
		{"R1Account", "r1_account"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, snake(tt.input))
		})
	}
}

func TestAsType(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Customer", "Customer"},
		{"line item", "LineItem"},
		{"LineItem", "LineItem"},
		{"http_code", "HTTPCode"},
		{"order-id", "OrderID"},
		{"Café", "Cafe"},
		{"  naïve   name ", "NaiveName"},
		{"2fa", "X2fa"},
		{"!!", "X"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, AsType(tt.input))
		})
	}
}

func TestAsIdent(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Customer", "customer"},
		{"Line Item", "lineItem"},
		{"unit_price", "unitPrice"},
		{"ID", "id"},
		{"customer_id", "customerID"},
		{"type", "type_"},
		{"Range", "range_"},
		{"Ünïcode", "unicode"},
		{"", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, AsIdent(tt.input))
		})
	}
}

func TestKebab(t *testing.T) {
	assert.Equal(t, "line-item", kebab("LineItem"))
	assert.Equal(t, "r1-customer", kebab("R1Customer"))
	assert.Equal(t, "customer", kebab("customer"))
}

func TestReceiver(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"User", "u"},
		{"UserQuery", "uq"},
		{"[]User", "u"},
		{"[1]User", "u"},
		{"*User", "u"},
		{"HTTPClient", "hc"},
		{"ObjectStore", "os"},
		{"A", "a"},
		{"GoOn", "_go"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, receiver(tt.input))
		})
	}
}

func TestPlural(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Customer", "Customers"},
		{"Category", "Categories"},
		{"LineItem", "LineItems"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, plural(tt.input))
		})
	}
}

func TestAddAcronym(t *testing.T) {
	AddAcronym("erp")
	assert.Equal(t, "erpSync", AsIdent("ERP sync"))
	assert.Equal(t, "ERPSync", AsType("erp sync"))
}

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validShipping() ShippingInfo {
	return ShippingInfo{
		Name:          "Taro Yamada",
		Email:         "taro@example.com",
		Address:       "1-2-3 Shibuya",
		City:          "Tokyo",
		PostalCode:    "150-0002",
		PaymentMethod: PaymentCredit,
	}
}

func TestShippingInfoValid(t *testing.T) {
	assert.Nil(t, validShipping().Validate())

	s := validShipping()
	s.PostalCode = "1500002"
	assert.Nil(t, s.Validate())
}

func TestShippingInfoFieldErrors(t *testing.T) {
	s := ShippingInfo{
		Name:          " A ",
		Email:         "not-an-email",
		Address:       "abc",
		City:          "   ",
		PostalCode:    "15-00002",
		PaymentMethod: "paypal",
	}
	fields := s.Validate()
	require.NotNil(t, fields)
	for _, key := range []string{"name", "email", "address", "city", "postalCode", "paymentMethod"} {
		assert.Contains(t, fields, key)
	}
}

func TestShippingInfoSingleField(t *testing.T) {
	s := validShipping()
	s.PaymentMethod = PaymentCOD
	s.Address = "12"
	fields := s.Validate()
	assert.Equal(t, map[string]string{"address": shippingMessages["address"]}, fields)
}

func TestOrderRecordRoundTrip(t *testing.T) {
	order := Order{
		ID:     "ORD-ABC-1234",
		UserID: 42,
		Items: []CartLine{
			{Product: Product{ID: 1, Title: "プレミアムTシャツ", Price: 3980, Category: CategoryClothing, Stock: 15}, Quantity: 2},
			{Product: Product{ID: 4, Title: "Coffee", Price: 1580, Category: CategoryFood, Stock: 30}, Quantity: 1},
		},
		ShippingInfo: validShipping(),
		TotalPrice:   9540,
		Status:       OrderStatusConfirmed,
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	rec, err := order.Record()
	require.NoError(t, err)
	assert.Equal(t, order.ID, rec.ID)

	back, err := rec.Order()
	require.NoError(t, err)
	assert.Equal(t, order, back)
}

func TestOrderRecordMalformed(t *testing.T) {
	_, err := OrderRecord{ID: "ORD-X", Items: "{not json", ShippingInfo: "{}"}.Order()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ORD-X")

	_, err = OrderRecord{ID: "ORD-Y", Items: "[]", ShippingInfo: "[1,2]"}.Order()
	require.Error(t, err)
}

func TestCategoryValid(t *testing.T) {
	assert.True(t, CategoryBooks.Valid())
	assert.False(t, Category("toys").Valid())
	assert.False(t, Category(CategoryAll).Valid())
}

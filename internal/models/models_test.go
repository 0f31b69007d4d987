package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordSetAndMatches(t *testing.T) {
	var p Password
	require.NoError(t, p.Set("hunter22"))
	require.NotEmpty(t, p.Hash)

	match, err := p.Matches("hunter22")
	require.NoError(t, err)
	assert.True(t, match)

	match, err = p.Matches("wrong-password")
	require.NoError(t, err)
	assert.False(t, match)
}

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory(CategorySolarPanel))
	assert.True(t, ValidCategory(CategoryOther))
	assert.False(t, ValidCategory("Generator"))
	assert.False(t, ValidCategory(""))
}

func TestValidateSpecifications(t *testing.T) {
	specs := map[string]interface{}{
		"manufacturer": "SunCo",
		"model":        "MP-300",
		"warranty":     "10 years",
		"wattage":      "300W",
		"voltage":      "24V",
		"dimensions":   "1640x992x35mm",
	}
	assert.NoError(t, ValidateSpecifications(CategorySolarPanel, specs))

	delete(specs, "wattage")
	err := ValidateSpecifications(CategorySolarPanel, specs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wattage")

	// An empty value counts as missing.
	specs["wattage"] = ""
	assert.Error(t, ValidateSpecifications(CategorySolarPanel, specs))

	// "Other" only needs the base keys.
	base := map[string]interface{}{
		"manufacturer": "SunCo", "model": "X", "warranty": "1 year",
	}
	assert.NoError(t, ValidateSpecifications(CategoryOther, base))
}

func TestStripSpecifications(t *testing.T) {
	specs := map[string]interface{}{
		"manufacturer": "SunCo",
		"model":        "GB-200",
		"warranty":     "5 years",
		"capacity":     "200Ah",
		"type":         "Gel",
		"voltage":      "12V",
		"wattage":      "should not survive on a battery",
	}

	stripped := StripSpecifications(CategoryBattery, specs)
	assert.Equal(t, "200Ah", stripped["capacity"])
	assert.NotContains(t, stripped, "wattage")
	assert.Contains(t, stripped, "manufacturer")
}

func TestValidOrderStatus(t *testing.T) {
	for _, s := range []string{StatusPending, StatusProcessing, StatusConfirmed, StatusCompleted, StatusCancelled} {
		assert.True(t, ValidOrderStatus(s), s)
	}
	assert.False(t, ValidOrderStatus("shipped"))
	assert.False(t, ValidOrderStatus(""))
}

func TestNormalizePaymentStatus(t *testing.T) {
	assert.Equal(t, PaymentPaid, NormalizePaymentStatus("paid"))
	assert.Equal(t, PaymentPaid, NormalizePaymentStatus("completed"))
	assert.Equal(t, PaymentPending, NormalizePaymentStatus("pending"))
	assert.Equal(t, PaymentFailed, NormalizePaymentStatus("failed"))
	assert.Equal(t, "", NormalizePaymentStatus("refunded"))
	assert.Equal(t, "", NormalizePaymentStatus(""))
}

func TestServiceSlots(t *testing.T) {
	s := Service{}
	s.Panel.ProductID = 1
	s.Battery.ProductID = 2
	s.Controller.ProductID = 3
	s.Cable.ProductID = 4

	slots := s.Slots()
	require.Len(t, slots, 4)
	for _, name := range SlotNames {
		require.Contains(t, slots, name)
	}
	assert.Equal(t, int64(1), slots["panel"].ProductID)
	assert.Equal(t, int64(4), slots["cable"].ProductID)
}

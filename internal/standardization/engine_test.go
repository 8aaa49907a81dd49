package standardization

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisshield/entity-network/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStandardizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"suffix with period", "John William Smith Jr.", "John William Smith"},
		{"comma inverted", "SMITH, JOHN W", "JOHN W SMITH"},
		{"honorific prefix", "Dr. Jane Doe", "Jane Doe"},
		{"inverted with suffix", "Smith, John, Jr.", "John Smith"},
		{"punctuation and spaces", "  O'Brien-Kelly   Mary ", "OBrienKelly Mary"},
		{"diacritics", "José Müller", "Jose Muller"},
		{"roman numeral", "Henry Ford III", "Henry Ford"},
		{"name containing suffix letters", "Ivan Drsic", "Ivan Drsic"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StandardizeName(tt.input))
		})
	}
}

func TestStandardizeAddress(t *testing.T) {
	assert.Equal(t, "12 Orchard Rd", StandardizeAddress("12 Orchard Road"))
	assert.Equal(t, "1 Main St, Apt 4", StandardizeAddress("1  Main STREET, Apartment 4"))
	assert.Equal(t, "9 Park Ave", StandardizeAddress("9 Park avenue"))
}

func TestStandardizePhoneAndEmail(t *testing.T) {
	assert.Equal(t, "+6591234567", StandardizePhone("+65 9123-4567"))
	assert.Equal(t, "5551234", StandardizePhone("(555) 1234"))
	assert.Equal(t, "", StandardizePhone("n/a"))
	assert.Equal(t, "jane.doe@example.com", StandardizeEmail("  Jane.Doe@Example.COM "))
}

func TestNormalizer_Standardize(t *testing.T) {
	normalizer := NewNormalizer(testLogger())

	record := models.RawRecord{
		ID:           "r1",
		SourceSystem: "kyc",
		EntityKind:   "individual",
		Attributes: models.Attributes{
			"name":          models.StringValue("Mr. John Smith"),
			"date_of_birth": models.StringValue("March 15, 1985"),
			"address":       models.StringValue("10 Downing Street"),
			"phone":         models.StringValue("+44 20 7946 0000"),
			"email":         models.StringValue("John@Example.com"),
		},
	}

	out := normalizer.Standardize(record)

	assert.Equal(t, "John Smith", out.Attributes.Text(models.AttrNameStandardized))
	assert.Equal(t, "Mr. John Smith", out.Attributes.Text(models.AttrName))
	assert.Equal(t, "1985-03-15", out.Attributes.Text(models.AttrDOBStandardized))
	assert.Equal(t, "1985", out.Attributes.Text(models.AttrYearOfBirth))
	assert.Equal(t, "10 Downing St", out.Attributes.Text(models.AttrAddressStandardized))
	assert.Equal(t, "+442079460000", out.Attributes.Text(models.AttrPhoneStandardized))
	assert.Equal(t, "john@example.com", out.Attributes.Text(models.AttrEmailStandardized))

	_, mutated := record.Attributes[models.AttrNameStandardized]
	assert.False(t, mutated, "input record must not be modified")
}

func TestNormalizer_StandardizeDates(t *testing.T) {
	normalizer := NewNormalizer(testLogger())

	t.Run("date value", func(t *testing.T) {
		out := normalizer.Standardize(models.RawRecord{
			ID: "r1",
			Attributes: models.Attributes{
				"date_of_birth": models.DateValue(time.Date(1990, 7, 22, 0, 0, 0, 0, time.UTC)),
			},
		})
		assert.Equal(t, "1990-07-22", out.Attributes.Text(models.AttrDOBStandardized))
		year, ok := out.Attributes[models.AttrYearOfBirth].AsNumber()
		require.True(t, ok)
		assert.Equal(t, 1990.0, year)
	})

	t.Run("unparseable string kept verbatim", func(t *testing.T) {
		out := normalizer.Standardize(models.RawRecord{
			ID:         "r2",
			Attributes: models.Attributes{"date_of_birth": models.StringValue("unknown")},
		})
		assert.Equal(t, "unknown", out.Attributes.Text(models.AttrDOBStandardized))
		_, ok := out.Attributes.Get(models.AttrYearOfBirth)
		assert.False(t, ok)
	})

	t.Run("absent fields skipped", func(t *testing.T) {
		out := normalizer.Standardize(models.RawRecord{ID: "r3"})
		assert.Empty(t, out.Attributes)
	})
}

func TestNameTokens(t *testing.T) {
	tokens := NameTokens("The Running Traders of London")
	assert.Contains(t, tokens, "run")
	assert.Contains(t, tokens, "london")
	assert.NotContains(t, tokens, "the")
	assert.NotContains(t, tokens, "of")
}

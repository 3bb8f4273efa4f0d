package appointment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalogueDefaultWindows(t *testing.T) {
	c, err := NewCatalogue([]string{"09:00-13:00", "15:00-19:00"}, 30)
	require.NoError(t, err)

	labels := c.Labels()
	assert.Len(t, labels, 16)
	assert.Equal(t, "09:00-09:30", labels[0])
	assert.Equal(t, "12:30-13:00", labels[7])
	assert.Equal(t, "15:00-15:30", labels[8])
	assert.Equal(t, "18:30-19:00", labels[15])
	assert.False(t, c.Contains("13:00-13:30"))
}

func TestNewCatalogueDropsPartialSlot(t *testing.T) {
	c, err := NewCatalogue([]string{"09:00-10:45"}, 30)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00-09:30", "09:30-10:00", "10:00-10:30"}, c.Labels())
}

func TestNewCatalogueRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		windows []string
		step    int
	}{
		{"zero step", []string{"09:00-10:00"}, 0},
		{"no dash", []string{"09:00"}, 30},
		{"reversed", []string{"10:00-09:00"}, 30},
		{"bad clock", []string{"9am-10am"}, 30},
		{"empty", nil, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalogue(tt.windows, tt.step)
			assert.Error(t, err)
		})
	}
}

func TestNormalizeSlot(t *testing.T) {
	assert.Equal(t, "10:00-10:30", NormalizeSlot(" 10:00 - 10:30 "))
	assert.Equal(t, "10:00AM", NormalizeSlot("10:00 am"))
	assert.Equal(t, "", NormalizeSlot("   "))
}

func TestAvailableIsCatalogueMinusBooked(t *testing.T) {
	c, err := NewCatalogue([]string{"09:00-11:00"}, 30)
	require.NoError(t, err)

	got := c.Available([]string{"09:30-10:00", " 10:30 - 11:00", "23:00-23:30"})
	assert.Equal(t, []string{"09:00-09:30", "10:00-10:30"}, got)
}

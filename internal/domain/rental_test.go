package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchRentalItems(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   []RentalItem
	}{
		{
			"exact labels",
			[]string{"engine", "tyres", "transponder", "fuel"},
			[]RentalItem{RentalEngine, RentalTyres, RentalTransponder, RentalFuel},
		},
		{
			"drifted CMS labels",
			[]string{"Engine Rental", "Race Tyres (set)", "Transponder hire", "Fuel allocation"},
			[]RentalItem{RentalEngine, RentalTyres, RentalTransponder, RentalFuel},
		},
		{
			"rental alone means engine",
			[]string{"Pool Rental"},
			[]RentalItem{RentalEngine},
		},
		{
			"duplicates collapse",
			[]string{"engine", "Engine Rental", "tyre set"},
			[]RentalItem{RentalEngine, RentalTyres},
		},
		{
			"unknown labels ignored",
			[]string{"Race entry", "Paddock pass"},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchRentalItems(tt.labels))
		})
	}
}

func TestParseItemDescription(t *testing.T) {
	items := ParseItemDescription("Race entry + Engine Rental + Race Tyres")
	assert.Equal(t, []RentalItem{RentalEngine, RentalTyres}, items)

	items = ParseItemDescription("Race entry; Transponder, Fuel")
	assert.Equal(t, []RentalItem{RentalTransponder, RentalFuel}, items)

	assert.Nil(t, ParseItemDescription("Race entry"))
}

func TestRentalItemValid(t *testing.T) {
	for _, item := range AllRentalItems {
		assert.True(t, item.Valid())
	}
	assert.False(t, RentalItem("hovercraft").Valid())
}

package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChipPayload_PerMode(t *testing.T) {
	target := "https://example.com"
	chip := &Chip{
		TargetURL:  &target,
		MenuData:   json.RawMessage(`{"url":"https://menu.example.com","title":"Lunch"}`),
		ReviewData: json.RawMessage(`{"url":"https://g.page/r/abc"}`),
	}

	tests := []struct {
		mode ChipMode
		dest string
	}{
		{ModeVCard, ""},
		{ModeRedirect, "https://example.com"},
		{ModeMenu, "https://menu.example.com"},
		{ModeReview, "https://g.page/r/abc"},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			chip.ActiveMode = tt.mode
			p, err := chip.Payload()
			require.NoError(t, err)
			assert.Equal(t, tt.mode, p.Mode())
			assert.Equal(t, tt.dest, p.Destination())
		})
	}
}

func TestChipPayload_NullAndMissingData(t *testing.T) {
	chip := &Chip{ActiveMode: ModeMenu, MenuData: json.RawMessage(`null`)}
	p, err := chip.Payload()
	require.NoError(t, err)
	assert.Empty(t, p.Destination())

	chip = &Chip{ActiveMode: ModeRedirect}
	p, err = chip.Payload()
	require.NoError(t, err)
	assert.Empty(t, p.Destination())
}

func TestChipPayload_UnknownMode(t *testing.T) {
	chip := &Chip{ActiveMode: "hologram"}
	p, err := chip.Payload()
	assert.Nil(t, p)
	var unknown ErrUnknownMode
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, ChipMode("hologram"), unknown.Mode)
}

func TestChipSetPayload(t *testing.T) {
	chip := &Chip{ActiveMode: ModeVCard}

	require.NoError(t, chip.SetPayload(ReviewPayload{URL: "https://review.example.com"}))
	assert.Equal(t, ModeReview, chip.ActiveMode)
	assert.JSONEq(t, `{"url":"https://review.example.com"}`, string(chip.ReviewData))

	require.NoError(t, chip.SetPayload(RedirectPayload{TargetURL: ""}))
	assert.Equal(t, ModeRedirect, chip.ActiveMode)
	assert.Nil(t, chip.TargetURL)
	assert.NotEmpty(t, chip.ReviewData, "other mode columns are kept")
}

func TestChipModeValid(t *testing.T) {
	for _, m := range ChipModes {
		assert.True(t, m.Valid())
	}
	assert.False(t, ChipMode("").Valid())
}

package service

import (
	"context"
	"testing"

	"github.com/ayo6706/payment-screening/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(name string, severity int, reason string) models.BlockListEntry {
	return models.BlockListEntry{
		ID:       uuid.New(),
		Name:     name,
		Type:     "person",
		Reason:   reason,
		Severity: severity,
		IsActive: true,
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "john smith", NormalizeName("  JOHN   Smith!! "))
	assert.Equal(t, "obrien co", NormalizeName("O'Brien & Co."))
	assert.Equal(t, "", NormalizeName(" ... "))
}

func TestMatchBlockListPrefersHigherSeverity(t *testing.T) {
	// entries arrive ordered severity DESC, name ASC
	entries := []models.BlockListEntry{
		entry("John Smith", 10, "SANCTIONS_OFAC"),
		entry("John Smith", 3, "SANCTIONS_LOW"),
	}
	res := MatchBlockList("John Smith", entries)
	require.True(t, res.IsBlocked)
	assert.Equal(t, MatchTypeExact, res.MatchType)
	assert.Equal(t, 10, res.MatchedEntry.Severity)
	assert.Contains(t, res.Reason, "John Smith")
	assert.Contains(t, res.Reason, "SANCTIONS_OFAC")
}

func TestMatchBlockListMatchTypes(t *testing.T) {
	cases := []struct {
		name      string
		candidate string
		entry     string
		want      string
	}{
		{"exact after normalisation", "john  SMITH.", "John Smith", MatchTypeExact},
		{"candidate contains entry", "Mr John Smith Jr", "John Smith", MatchTypeContainment},
		{"entry contains candidate", "Acme", "Acme Trading LLC", MatchTypeContainment},
		{"token overlap above threshold", "Smith Johnathan", "John Smith", MatchTypePartial},
		{"three of four tokens", "Ahmed Khan Holdings Karachi", "Khan Ahmed Holdings Group", MatchTypePartial},
		{"half the tokens is not enough", "Jane Smith", "John Smith", ""},
		{"short entry tokens are ignored", "Al Bo", "Al Bo Xu", MatchTypeContainment},
		{"unrelated", "Maria Garcia", "John Smith", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := MatchBlockList(tc.candidate, []models.BlockListEntry{entry(tc.entry, 5, "FRAUD")})
			if tc.want == "" {
				assert.False(t, res.IsBlocked)
				assert.Nil(t, res.MatchedEntry)
				return
			}
			require.True(t, res.IsBlocked)
			assert.Equal(t, tc.want, res.MatchType)
		})
	}
}

func TestMatchBlockListIgnoresEmptyInput(t *testing.T) {
	assert.False(t, MatchBlockList("", []models.BlockListEntry{entry("John", 5, "X")}).IsBlocked)
	assert.False(t, MatchBlockList("John", []models.BlockListEntry{entry("!!!", 5, "X")}).IsBlocked)
}

func TestBlockListCheckFailOpen(t *testing.T) {
	svc := NewBlockListService(downStore{}, nil, 0, true)
	res, err := svc.Check(context.Background(), "John Smith")
	require.NoError(t, err)
	assert.False(t, res.IsBlocked)
}

func TestBlockListCheckFailClosed(t *testing.T) {
	svc := NewBlockListService(downStore{}, nil, 0, false)
	_, err := svc.Check(context.Background(), "John Smith")
	assert.ErrorIs(t, err, ErrScreeningUnavailable)
}

func TestBlockListAddValidation(t *testing.T) {
	svc := NewBlockListService(downStore{}, nil, 0, true)
	valid := AddBlockListEntryRequest{Name: "John Smith", Type: "person", Reason: "OFAC", Severity: 5, AddedBy: "ops"}

	mutate := []func(r *AddBlockListEntryRequest){
		func(r *AddBlockListEntryRequest) { r.Name = " .. " },
		func(r *AddBlockListEntryRequest) { r.Type = "vessel" },
		func(r *AddBlockListEntryRequest) { r.Severity = 0 },
		func(r *AddBlockListEntryRequest) { r.Severity = 11 },
		func(r *AddBlockListEntryRequest) { r.Reason = "" },
		func(r *AddBlockListEntryRequest) { r.AddedBy = "" },
	}
	for _, m := range mutate {
		req := valid
		m(&req)
		_, err := svc.Add(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidBlockListEntry)
	}

	_, err := svc.Add(context.Background(), valid)
	assert.ErrorIs(t, err, errDatabaseDown)
}

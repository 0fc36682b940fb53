package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kinterofoto/bakery-management-system-sub008/internal/planning/repository"
)

func bomLine(materialID string, original string) repository.RecipeLine {
	qty := decimal.RequireFromString(original)
	return repository.RecipeLine{
		ID:               materialID + "-line",
		ProductID:        "bread",
		MaterialID:       materialID,
		QuantityNeeded:   qty,
		OriginalQuantity: qty,
		IsActive:         true,
	}
}

func TestNormalizeLines_FractionsSumToOne(t *testing.T) {
	lines := []repository.RecipeLine{
		bomLine("flour", "300"),
		bomLine("butter", "200"),
	}

	out := NormalizeLines(lines)

	require.Len(t, out, 2)
	assert.True(t, out[0].QuantityNeeded.Equal(decimal.RequireFromString("0.6")),
		"flour fraction: %s", out[0].QuantityNeeded)
	assert.True(t, out[1].QuantityNeeded.Equal(decimal.RequireFromString("0.4")),
		"butter fraction: %s", out[1].QuantityNeeded)

	sum := out[0].QuantityNeeded.Add(out[1].QuantityNeeded)
	assert.True(t, sum.Equal(decimal.NewFromInt(1)), "fractions sum: %s", sum)
}

func TestNormalizeLines_OriginalQuantitiesPreserved(t *testing.T) {
	lines := []repository.RecipeLine{
		bomLine("flour", "300"),
		bomLine("butter", "200"),
	}

	out := NormalizeLines(lines)

	assert.True(t, out[0].OriginalQuantity.Equal(decimal.NewFromInt(300)))
	assert.True(t, out[1].OriginalQuantity.Equal(decimal.NewFromInt(200)))
}

func TestNormalizeLines_RenormalizationIsRepeatable(t *testing.T) {
	lines := []repository.RecipeLine{
		bomLine("flour", "300"),
		bomLine("butter", "200"),
	}

	once := NormalizeLines(lines)
	twice := NormalizeLines(once)

	for i := range once {
		assert.True(t, once[i].QuantityNeeded.Equal(twice[i].QuantityNeeded),
			"line %d drifted: %s vs %s", i, once[i].QuantityNeeded, twice[i].QuantityNeeded)
	}
}

func TestNormalizeLines_SingleLineBecomesWhole(t *testing.T) {
	out := NormalizeLines([]repository.RecipeLine{bomLine("flour", "250")})

	require.Len(t, out, 1)
	assert.True(t, out[0].QuantityNeeded.Equal(decimal.NewFromInt(1)))
}

func TestNormalizeLines_ZeroTotalLeftUnchanged(t *testing.T) {
	lines := []repository.RecipeLine{
		bomLine("flour", "0"),
		bomLine("butter", "0"),
	}

	out := NormalizeLines(lines)

	require.Len(t, out, 2)
	assert.True(t, out[0].QuantityNeeded.IsZero())
	assert.True(t, out[1].QuantityNeeded.IsZero())
}

func TestNormalizeLines_DoesNotMutateInput(t *testing.T) {
	lines := []repository.RecipeLine{
		bomLine("flour", "300"),
		bomLine("butter", "200"),
	}

	_ = NormalizeLines(lines)

	assert.True(t, lines[0].QuantityNeeded.Equal(decimal.NewFromInt(300)),
		"input slice was mutated")
}

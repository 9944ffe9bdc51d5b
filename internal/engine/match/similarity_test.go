package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameSimilarity(t *testing.T) {
	t.Run("identical", func(t *testing.T) {
		assert.Equal(t, 1.0, NameSimilarity("MARIA SILVA", "MARIA SILVA"))
	})

	t.Run("token_order_irrelevant", func(t *testing.T) {
		assert.Equal(t, 1.0, NameSimilarity("SILVA MARIA", "MARIA SILVA"))
	})

	t.Run("typo_scores_high", func(t *testing.T) {
		s := NameSimilarity("MARIA SILVA", "MARIA SLVA")
		assert.Greater(t, s, 0.85)
		assert.Less(t, s, 1.0)
	})

	t.Run("missing_middle_name_scores_moderate", func(t *testing.T) {
		s := NameSimilarity("MARIA DA SILVA SOUZA", "MARIA SOUZA")
		assert.Greater(t, s, 0.4)
		assert.Less(t, s, 1.0)
	})

	t.Run("different_people_score_low", func(t *testing.T) {
		assert.Less(t, NameSimilarity("MARIA SILVA", "CARLOS PEREIRA"), 0.4)
	})

	t.Run("empty_side_scores_zero", func(t *testing.T) {
		assert.Equal(t, 0.0, NameSimilarity("", "MARIA SILVA"))
	})
}

func TestDocumentSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, DocumentSimilarity("12345678900", "12345678900"))
	assert.Equal(t, 0.0, DocumentSimilarity("12345678900", "11111111111"))
}

func TestPhoneSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, PhoneSimilarity("11988887777", "11988887777"))
	assert.Equal(t, 0.0, PhoneSimilarity("11988887777", "11988887778"))
}

func TestAddressSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, AddressSimilarity("RUA DAS FLORES 12", "RUA DAS FLORES 12"))
	assert.Equal(t, 0.0, AddressSimilarity("RUA DAS FLORES 12", "AV BRASIL 100"))

	partial := AddressSimilarity("RUA DAS FLORES 12 CENTRO", "RUA DAS FLORES 12")
	assert.Greater(t, partial, 0.5)
	assert.Less(t, partial, 1.0)
}

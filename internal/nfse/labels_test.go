package nfse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelLocate(t *testing.T) {
	text := "PREFEITURA DE MANAUS\nNome do tomador do serviço ACME LTDA"

	offset, ok := payerLabel.Locate(text)
	require.True(t, ok)
	assert.Equal(t, len("PREFEITURA DE MANAUS\n"), offset)
}

func TestLabelLocateFuzzy(t *testing.T) {
	// Stray punctuation breaks every regex variant.
	text := "Dados do tomador\n  Nome d.o t-omador do servico ACME LTDA\nCPF/CNPJ 1"

	offset, ok := payerLabel.Locate(text)
	require.True(t, ok)
	assert.Equal(t, len("Dados do tomador\n  "), offset)
}

func TestLabelLocateMissing(t *testing.T) {
	_, ok := payerLabel.Locate("Prestador de serviços\nCNPJ 00.000.000/0001-00")
	assert.False(t, ok)

	_, ok = Label{}.Locate("anything")
	assert.False(t, ok)
}

func TestLabelLocateFuzzyRejectsScatteredLetters(t *testing.T) {
	text := "PREFEITURA MUNICIPAL\n" +
		"Prestador: Rua Rodrigo de Vera Cruz 12, Vila Rica Fica\n" +
		"Protocolo 1234.5678.9012"

	_, ok := codeLabel.Locate(text)
	assert.False(t, ok)

	_, ok = payerLabel.Locate("Nome fantasia do prestador: Tomadora de Servicos LTDA")
	assert.False(t, ok)
}

func TestCompactMatch(t *testing.T) {
	tests := []struct {
		name string
		line string
		want int
	}{
		{"exact", "digo de verifica", 0},
		{"inside line", "Cód: digo de verificaçao", len("Cód: ")},
		{"stray punctuation", "d.igo de veri-fica", 0},
		{"scattered", "drigo de Vera Cruz 12, Vila Rica Fica", -1},
		{"empty", "", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at, _ := compactMatch("digo de verifica", tt.line)
			assert.Equal(t, tt.want, at)
		})
	}
}

func TestChainFirstMatchWins(t *testing.T) {
	c := Chain{
		raw("first", `A(\d)`),
		raw("second", `(?P<value>\d)B`),
	}

	m, ok := c.FindIn("1B A2")
	require.True(t, ok)
	assert.Equal(t, "first", m.Strategy)
	assert.Equal(t, "2", m.Value)

	m, ok = c.FindIn("1B")
	require.True(t, ok)
	assert.Equal(t, "second", m.Strategy)
	assert.Equal(t, "1", m.Value)
	assert.Equal(t, "1", m.Group("value"))
	assert.Equal(t, "", m.Group("missing"))

	_, ok = c.FindIn("nothing")
	assert.False(t, ok)
}

func TestChainViews(t *testing.T) {
	doc := NewDocument("Status\nPago")
	c := Chain{collapsed("collapsed", `Status (\w+)`)}

	m, ok := c.Find(doc)
	require.True(t, ok)
	assert.Equal(t, "Pago", m.Value)

	_, ok = Chain{raw("raw", `Status (\w+)`)}.Find(doc)
	assert.False(t, ok)
}

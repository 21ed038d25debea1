package nfse

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Text layer of a Manaus invoice as pdftotext returns it.
const manausInvoice = `Código de verificação 410A.04FB.4D57
Recolhimento Fora 3915
24/09/2025 - 14:34:13
VALOR TOTAL DA NOTA = R$ 63.263,62
BASE DECALCULO ISS: R$ 63.263,62
ISS A RETER: R$ 3.163,18

Retenções
INSS(R$)
PIS(R$)
Cofins(R$)
C.S.L.L(R$)
IRRF(R$)

6.959,00
0,00
0,00
632,64
948,95

ISSQN(R$) Outras Deduções(R$) Total das Retenções (R$) Valor Líquido da Nota(R$)
0,00 3.163,18 11.703,77 51.559,85`

func assertDecimal(t *testing.T, want string, got *decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	require.NotNil(t, got, msgAndArgs...)
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "want %s, got %s", want, got)
}

func TestParseManausInvoice(t *testing.T) {
	rec, trace := NewParser().ParseWithTrace(manausInvoice)

	assert.Equal(t, "410A.04FB.4D57", rec.VerificationCode)
	require.NotNil(t, rec.InvoiceNumber)
	assert.Equal(t, "3915", *rec.InvoiceNumber)
	require.NotNil(t, rec.IssueDate)
	assert.Equal(t, time.Date(2025, 9, 24, 14, 34, 13, 0, time.UTC), *rec.IssueDate)

	assertDecimal(t, "63263.62", rec.GrossAmount)
	assertDecimal(t, "63263.62", rec.TaxBase)
	assertDecimal(t, "3163.18", rec.ServiceTaxWithheld)
	assertDecimal(t, "5", rec.TaxRate)

	assertDecimal(t, "6959.00", rec.SocialSecurityWithheld)
	assertDecimal(t, "0", rec.PISWithheld)
	assertDecimal(t, "0", rec.COFINSWithheld)
	assertDecimal(t, "632.64", rec.CSLLWithheld)
	assertDecimal(t, "948.95", rec.IncomeTaxWithheld)

	assertDecimal(t, "0", rec.ISSQNWithheld)
	assertDecimal(t, "3163.18", rec.OtherDeductions)
	assertDecimal(t, "11703.77", rec.TotalWithholdings)
	assertDecimal(t, "51559.85", rec.NetAmount)

	assert.Nil(t, rec.PayerName)
	assert.Nil(t, rec.ServiceDescription)
	assert.Equal(t, "Pending", rec.PaymentStatus)

	assert.Equal(t, "label-adjacent", trace[FieldVerificationCode])
	assert.Equal(t, "recolhimento-fora", trace[FieldInvoiceNumber])
	assert.Equal(t, "after-recolhimento-fora", trace[FieldIssueDate])
	assert.Equal(t, "valor-total-da-nota", trace[FieldGrossAmount])
	assert.Equal(t, strategyTableTight, trace[FieldSocialSecurityWithheld])
	assert.Equal(t, strategyTableTight, trace[FieldNetAmount])
	assert.True(t, trace.Derived(FieldTaxRate))
	assert.False(t, trace.Derived(FieldTotalWithholdings))
	assert.Equal(t, SourceDefault, trace[FieldPaymentStatus])
}

func TestParseIsIdempotent(t *testing.T) {
	p := NewParser()
	assert.Equal(t, p.Parse(manausInvoice), p.Parse(manausInvoice))
}

func TestParseWithoutLabels(t *testing.T) {
	for _, text := range []string{"", "   \n\n", "lorem ipsum dolor sit amet 123"} {
		rec, trace := NewParser().ParseWithTrace(text)

		assert.True(t, strings.HasPrefix(rec.VerificationCode, "NF-"), rec.VerificationCode)
		assert.Equal(t, SourceSynthetic, trace[FieldVerificationCode])
		assert.Equal(t, "Pending", rec.PaymentStatus)

		assert.Nil(t, rec.InvoiceNumber)
		assert.Nil(t, rec.IssueDate)
		assert.Nil(t, rec.PayerName)
		assert.Nil(t, rec.ServiceDescription)
		for _, f := range rec.Amounts() {
			assert.Nil(t, f.Value, f.Name)
		}
	}
}

func TestParseNeverPanics(t *testing.T) {
	inputs := []string{
		"\x00\xff\xfe",
		strings.Repeat("R$ ", 10000),
		"INSS(R$)",
		"Código de verificação",
		"Nome do tomador do serviço",
		"Discriminação do Serviço",
		"VALOR TOTAL DA NOTA = R$ 1.2.3,,4",
		"Data/Hora da emissão 99/99/9999 - 99:99:99",
		strings.Repeat("├º", 500),
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { Parse(in) }, in)
	}
}

func TestVerificationCode(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		want     string
		strategy string
	}{
		{
			name:     "same line",
			text:     "Código de verificação: 410A-04FB-4D57",
			want:     "410A-04FB-4D57",
			strategy: "label-adjacent",
		},
		{
			name:     "header row above the values",
			text:     "Código de verificação Data e Hora de Emissão\n5880.7878.DA08 14/10/2025 - 13:13:34",
			want:     "5880.7878.DA08",
			strategy: strategyLabelWindow,
		},
		{
			name:     "garbled label",
			text:     "C├│digo de verifica├º├úo 9A1B.77C2.00FF",
			want:     "9A1B.77C2.00FF",
			strategy: "label-adjacent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, trace := NewParser().ParseWithTrace(tt.text)
			assert.Equal(t, tt.want, rec.VerificationCode)
			assert.Equal(t, tt.strategy, trace[FieldVerificationCode])
		})
	}
}

func TestVerificationCodeIgnoresUnlabelledCodes(t *testing.T) {
	// The protocol number has the code shape, and the address holds the label letters in order.
	text := "PREFEITURA MUNICIPAL\n" +
		"Prestador: Rua Rodrigo de Vera Cruz 12, Vila Rica Fica\n" +
		"Protocolo 1234.5678.9012\n" +
		"VALOR TOTAL DA NOTA = R$ 100,00\n"

	rec, trace := NewParser().ParseWithTrace(text)

	assert.Equal(t, SourceSynthetic, trace[FieldVerificationCode])
	assert.True(t, strings.HasPrefix(rec.VerificationCode, "NF-"))
	assert.NotContains(t, rec.VerificationCode, "1234.5678.9012")
}

func TestSyntheticCodeWhenCodeIsMalformed(t *testing.T) {
	text := "Código de verificação: 41A.04"

	first, trace := NewParser().ParseWithTrace(text)
	second := Parse(text)

	assert.Equal(t, SourceSynthetic, trace[FieldVerificationCode])
	assert.True(t, strings.HasPrefix(first.VerificationCode, "NF-"))
	assert.Len(t, first.VerificationCode, len("NF-")+32)
	assert.Equal(t, strings.ToUpper(first.VerificationCode), first.VerificationCode)
	assert.NotEqual(t, first.VerificationCode, second.VerificationCode)
}

func TestSyntheticCodeGenerator(t *testing.T) {
	p := NewParser()
	p.newCode = func() string { return "NF-TEST" }

	assert.Equal(t, "NF-TEST", p.Parse("no code here").VerificationCode)
	assert.Equal(t, "410A.04FB.4D57", p.Parse(manausInvoice).VerificationCode)
}

func TestInvoiceNumber(t *testing.T) {
	tests := []struct {
		text     string
		want     string
		strategy string
	}{
		{"Número da Nota\n000123", "000123", "numero-da-nota"},
		{"Recolhimento Fora 3915", "3915", "recolhimento-fora"},
		{"Nota Fiscal Nº 98765", "98765", "nota-fiscal-numero"},
		{"Nº NFS-e: 2024001", "2024001", "numero-nf"},
	}

	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			got, strategy := invoiceNumber(NewDocument(tt.text))
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
			assert.Equal(t, tt.strategy, strategy)
		})
	}

	got, _ := invoiceNumber(NewDocument("Número da Nota: --"))
	assert.Nil(t, got)
}

func TestIssueDate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		want     time.Time
		strategy string
	}{
		{
			name:     "after verification code",
			text:     "5880.7878.DA08 14/10/2025 - 13:13:34",
			want:     time.Date(2025, 10, 14, 13, 13, 34, 0, time.UTC),
			strategy: "after-verification-code",
		},
		{
			name:     "emission label",
			text:     "Data/Hora da emissão\n24/09/2025 - 14:34:13",
			want:     time.Date(2025, 9, 24, 14, 34, 13, 0, time.UTC),
			strategy: "emission-label",
		},
		{
			name:     "date only",
			text:     "Data de emissão: 05/03/2024",
			want:     time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			strategy: "emission-date",
		},
		{
			name:     "line after recolhimento fora",
			text:     "Recolhimento Fora 3915\n24/09/2025 - 14:34:13",
			want:     time.Date(2025, 9, 24, 14, 34, 13, 0, time.UTC),
			strategy: "after-recolhimento-fora",
		},
		{
			name:     "code block",
			text:     "410A.04FB.4D57\nCompetência 09/2025\n24/09/2025 - 14:34:13",
			want:     time.Date(2025, 9, 24, 14, 34, 13, 0, time.UTC),
			strategy: "code-block",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, strategy, _ := issueDate(NewDocument(tt.text))
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
			assert.Equal(t, tt.strategy, strategy)
		})
	}
}

func TestIssueDateIgnoresUnanchoredTimestamps(t *testing.T) {
	text := "NOTA FISCAL DE SERVIÇO ELETRÔNICA\n" +
		"Impresso em 01/10/2025 - 08:00:00\n" +
		"VALOR TOTAL DA NOTA = R$ 100,00"

	rec, trace := NewParser().ParseWithTrace(text)
	assert.Nil(t, rec.IssueDate)
	assert.NotContains(t, trace, FieldIssueDate)
}

func TestIssueDateInvalidCalendarDate(t *testing.T) {
	rec, trace := NewParser().ParseWithTrace("Data/Hora da emissão 31/02/2025 - 10:00:00")
	assert.Nil(t, rec.IssueDate)
	assert.NotContains(t, trace, FieldIssueDate)
}

func TestParseIssueDate(t *testing.T) {
	got, ok := ParseIssueDate("01/12/24", "")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), got)

	_, ok = ParseIssueDate("24/09/2025", "25:00:00")
	assert.False(t, ok)

	_, ok = ParseIssueDate("", "")
	assert.False(t, ok)
}

func TestPayerName(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		want     string
		strategy string
	}{
		{
			name:     "same line as CPF/CNPJ",
			text:     "Nome do tomador do serviço AMAZONAS ENERGIA S.A CPF/CNPJ 02.341.467/0001-20",
			want:     "AMAZONAS ENERGIA S.A",
			strategy: "label-to-cpf",
		},
		{
			name:     "garbled label and address tail",
			text:     "Nome do tomador do servi├ºo PREFEITURA MUNICIPAL DE MANAUS RUA DJALMA BATISTA 1200\nCPF/CNPJ 04.365.326/0001-73",
			want:     "PREFEITURA MUNICIPAL DE MANAUS",
			strategy: "label-to-cpf",
		},
		{
			name:     "value on the next line",
			text:     "Nome do tomador do serviço\nJOÃO DA SILVA ME\nCPF/CNPJ: 123.456.789-00",
			want:     "JOÃO DA SILVA ME",
			strategy: "label-to-cpf",
		},
		{
			name:     "short label",
			text:     "Nome do tomador: CONSTRUTORA NORTE LTDA CPF 12.345.678/0001-90",
			want:     "CONSTRUTORA NORTE LTDA",
			strategy: "short-label",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, strategy := payerName(NewDocument(tt.text))
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
			assert.Equal(t, tt.strategy, strategy)
		})
	}
}

func TestPayerNameRejectsBareHeader(t *testing.T) {
	got, _ := payerName(NewDocument("Nome do tomador do serviço CPF/CNPJ\n"))
	assert.Nil(t, got)
}

func TestSplitPayerWindow(t *testing.T) {
	win := "Nome do tomador do serviço ACME\nLTDA CPF/CNPJ 1"
	assert.Equal(t, "ACME LTDA", cleanPayerName(splitPayerWindow(win)))
	assert.Equal(t, "", splitPayerWindow("Nome do tomador do serviço ACME"))
}

func TestServiceDescription(t *testing.T) {
	text := "Discriminação do Serviço/Dados Adicionais\n" +
		"Prestação de serviços de manutenção    elétrica\n\n" +
		"conforme contrato 12/2025\n" +
		"Valor do Serviço R$ 1.000,00"

	got, strategy := serviceDescription(NewDocument(text))
	require.NotNil(t, got)
	assert.Equal(t, "Prestação de serviços de manutenção elétrica conforme contrato 12/2025", *got)
	assert.Equal(t, "discriminacao-dados-adicionais", strategy)
}

func TestServiceDescriptionIsTruncated(t *testing.T) {
	text := "Discriminação do Serviço " + strings.Repeat("ç", 3000) + "\nValor do Serviço R$ 1,00"

	got, strategy := serviceDescription(NewDocument(text))
	require.NotNil(t, got)
	assert.Equal(t, maxServiceDesc, len([]rune(*got)))
	assert.Equal(t, "discriminacao-do-servico", strategy)
}

func TestPaymentStatus(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Status de Pagamento: Pago\nOutra linha", "Pago"},
		{"Status Pagamento   Em aberto", "Em aberto"},
		{"Situação da Nota: Cancelada", "Cancelada"},
		{"Situação Tributária Normal", "Pending"},
		{"", "Pending"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.text).PaymentStatus)
		})
	}
}

func TestAmountLabels(t *testing.T) {
	text := `Valor dos Serviços: R$ 2.000,00
Base de Cálculo: R$ 2.000,00
Alíquota: 2,5 %
Valor do ISS: R$ 50,00`

	rec, trace := NewParser().ParseWithTrace(text)

	assertDecimal(t, "2000", rec.GrossAmount)
	assertDecimal(t, "2000", rec.TaxBase)
	assertDecimal(t, "2.5", rec.TaxRate)
	assertDecimal(t, "50", rec.ServiceTaxWithheld)
	assert.Equal(t, "aliquota-percent", trace[FieldTaxRate])

	// No retention labels: the tables stay empty and net falls back to gross minus ISS.
	for _, f := range rec.FederalWithholdings() {
		assert.Nil(t, f)
	}
	assert.Nil(t, rec.TotalWithholdings)
	assertDecimal(t, "1950", rec.NetAmount)
	assert.True(t, trace.Derived(FieldNetAmount))
}

package nfse

import (
	"regexp"
	"strings"
)

// Field limits, in runes.
const (
	maxVerificationCode  = 100
	maxInvoiceNumber     = 100
	maxPayerName         = 200
	maxServiceDesc       = 2000
	maxPaymentStatus     = 100
	codeWindowSize       = 200
	payerWindowSize      = 200
	positionalWindowSize = 600
	maxLinesAfterHeader  = 12
)

const (
	// 410A.04FB.4D57, 5880.7878.DA08
	codeShape = `[A-Za-z0-9]{4}[.\-][A-Za-z0-9]{4}[.\-][A-Za-z0-9]{4,}`

	dateTimeShape = `(?P<date>\d{2}/\d{2}/\d{4})\s*-\s*(?P<time>\d{2}:\d{2}:\d{2})`

	// An amount that starts and ends with a digit: 63.263,62 or 5,00 or 1234.56
	amount = `(\d(?:[\d.,]*\d)?)`

	// A grouped Brazilian amount as printed in the retention tables.
	tableAmount = `(\d{1,3}(?:\.\d{3})*,\d{2})`

	descriptionEnd = `Descri[çc][ãa]o\s*do\s*servi[çc]o|Valor\s*do\s*Servi[çc]o|Servi[çc]o:|TRANSPORTE|M[ÁA]O\s*DE\s*OBRA`
)

// Verification code
var (
	codeChain = Chain{
		raw("label-adjacent", `(?i)C\S{0,3}digo\s+de\s+verifica\S{0,5}[:\s]*(`+codeShape+`)`),
	}

	codeLabel = label("digo de verifica",
		`(?i)C[óo]digo\s+de\s+verifica[çc][ãa]o`,
		`(?i)C\S{0,3}digo\s+de\s+verifica`,
	)

	reCodeShape = regexp.MustCompile(`\b` + codeShape)
)

// Invoice number
var numberChain = Chain{
	raw("numero-da-nota", `(?i)N[úu]mero\s+da\s+Nota\s+(\d{3,10})\b`),
	raw("recolhimento-fora", `(?i)Recolhimento\s+Fora\s+(\d{3,10})\b`),
	collapsed("numero-da-nota-collapsed", `(?i)N[úu]mero\s*da\s*Nota[:\s]*(\d{3,10})\b`),
	collapsed("recolhimento-fora-collapsed", `(?i)Recolhimento\s*Fora[:\s]*(\d{3,10})\b`),
	collapsed("numero-nf", `(?i)\bN[º°o]?\.?\s*NF(?:S-?e)?[:\s]*(\d{3,10})\b`),
	collapsed("nota-fiscal-numero", `(?i)Nota\s*Fiscal\s*N[º°o]?\.?[:\s]*(\d{3,10})\b`),
}

// Issue date
var dateChain = Chain{
	raw("after-verification-code", codeShape+`\s+`+dateTimeShape),
	raw("emission-label-with-code", `(?i)Data\s*/\s*Hora\s*da\s*emiss[ãa]o\s*\n?\s*[A-Za-z0-9.\-]{4,}\s+`+dateTimeShape),
	raw("emission-label", `(?i)Data\s*/\s*Hora\s*da\s*emiss[ãa]o[:\s]*`+dateTimeShape),
	raw("emission-date", `(?i)Data\s*(?:/\s*Hora\s*)?d[ae]\s*emiss[ãa]o[:\s]*(?P<date>\d{2}/\d{2}/\d{2,4})`),
	raw("after-recolhimento-fora", `(?i)Recolhimento\s+Fora\s+\d{3,10}[ \t]*\n\s*`+dateTimeShape),
	raw("code-block", codeShape+`[^\n]*\n(?:[^\n]*\n)?[ \t]*`+dateTimeShape),
}

// Payer name
var (
	payerLabel = label("nome do tomador",
		`(?i)Nome\s+do\s+tomador\s+do\s+servi[çc]o`,
		`(?i)Nome\s+do\s+tomador\s+do\s+servi`,
		`(?i)Nome\s+do\s+tomador`,
	)

	payerWindowChain = Chain{
		raw("label-to-cpf", `(?i)Nome\s+do\s+tomador\s+do\s+servi[çc]o[:\s]+([^\n]+?)(?:\s+CPF\s*/\s*CNPJ|\n|$)`),
		raw("garbled-label", `(?i)Nome\s+do\s+tomador\s+do\s+servi\S{0,5}o[:\s]+(\p{L}[^\n]{0,100}?)(?:\s+CPF|\n|$)`),
		raw("short-label", `(?i)Nome\s+do\s+tomador[:\s]+(\p{L}[^\n]{0,100}?)(?:\s+CPF|\n|$)`),
	}

	payerCollapsedChain = Chain{
		collapsed("collapsed-label-to-cpf", `(?i)Nome\s*do\s*tomador\s*do\s*servi\S{0,5}o[:\s]+(.{1,200}?)\s+CPF`),
		collapsed("collapsed-short-label", `(?i)Nome\s*do\s*tomador[:\s]+(.{1,200}?)\s+CPF`),
	}

	rePayerBoundary  = regexp.MustCompile(`(?i)\s*CPF\s*/\s*CNPJ|\s+CPF`)
	reAfterServico   = regexp.MustCompile(`(?is)servi\S{0,5}o[:\s]+(.+)$`)
	reAddressTail    = regexp.MustCompile(`(?i)\s+(?:RUA|AVENIDA|AV\.|ALAMEDA|RODOVIA|TRAVESSA|CEP|TELEFONE|TEL\.|FONE|E-?MAIL|ENDERE[ÇC]O|CPF|CNPJ|INSCRI[ÇC][ÃA]O)(?:[\s:./]|$).*$`)
	reBoundaryPrefix = regexp.MustCompile(`(?i)^(?:CPF|CNPJ|do\s+servi\S*)(?:[\s:/]|$)`)
)

// Service description
var descriptionChain = Chain{
	raw("discriminacao-dados-adicionais", `(?is)Discrimina[çc][ãa]o\s*do\s*Servi[çc]o\s*/\s*Dados\s*Adicionais\s*(.*?)(?:`+descriptionEnd+`)`),
	raw("discriminacao-do-servico", `(?is)Discrimina[çc][ãa]o\s*do\s*Servi[çc]o\s*(.*?)(?:`+descriptionEnd+`)`),
	raw("discriminacao-servico", `(?is)Discrimina[çc][ãa]o\s*Servi[çc]os?\s*(.*?)(?:`+descriptionEnd+`)`),
}

// Payment status
var statusChain = Chain{
	raw("status-de-pagamento", `(?i)Status\s*de\s*Pagamento[:\s]*([^\n]{1,50})`),
	raw("status-pagamento", `(?i)Status\s*Pagamento[:\s]*([^\n]{1,50})`),
	raw("situacao", `(?i)Situa[çc][ãa]o\s*(?:do\s*Pagamento|da\s*Nota)?\s*:\s*([^\n]{1,50})`),
}

// Amounts
var (
	grossChain = Chain{
		collapsed("valor-total-da-nota", `(?i)VALOR\s*TOTAL\s*DA\s*NOTA\s*=\s*R\$\s*`+amount),
		collapsed("total-da-nota", `(?i)Total\s*da\s*Nota[:\s]*R\$\s*`+amount),
		collapsed("valor-total", `(?i)Valor\s*Total[:\s]*R\$\s*`+amount),
		collapsed("valor-dos-servicos", `(?i)Valor\s*d?os?\s*Servi[çc]os?[:\s]*R\$\s*`+amount),
		collapsed("total", `(?i)\bTotal[:\s]*R\$\s*`+amount),
		collapsed("total-header", `(?i)\bTotal\s*\(R\$\)[:\s]*`+amount),
	}

	taxBaseChain = Chain{
		collapsed("base-de-calculo-iss", `(?i)BASE\s*DE\s*C[AÁ]LCULO\s*(?:DO\s*)?ISS(?:QN)?[:\s]*R\$\s*`+amount),
		collapsed("base-de-calculo-iss-bare", `(?i)BASE\s*DE\s*C[AÁ]LCULO\s*(?:DO\s*)?ISS(?:QN)?[:\s]+`+amount),
		collapsed("base-de-calculo-header", `(?i)Base\s*de\s*C[AÁ]lculo\s*\(R\$\)[:\s]*`+amount),
		collapsed("base-de-calculo", `(?i)Base\s*de\s*C[AÁ]lculo[:\s]*R\$\s*`+amount),
	}

	serviceTaxChain = Chain{
		collapsed("iss-a-reter", `(?i)\bISS\s*A\s*RETER[:\s]*R\$\s*`+amount),
		collapsed("iss-a-reter-bare", `(?i)\bISS\s*A\s*RETER[:\s]*`+amount),
		collapsed("iss-retido", `(?i)\bISS\s*RETIDO[:\s]*(?:R\$)?\s*`+amount),
		collapsed("valor-do-iss-header", `(?i)Valor\s*do\s*ISS\s*\(R\$\)[:\s]*`+amount),
		collapsed("valor-iss", `(?i)Valor\s*(?:do\s*)?ISS[:\s]*R\$\s*`+amount),
	}

	taxRateChain = Chain{
		collapsed("aliquota-header", `(?i)Al[íi]quota\s*\(%\)[:\s]*`+amount),
		collapsed("aliquota-percent", `(?i)Al[íi]quota[:\s]*`+amount+`\s*%`),
	}
)

// Retention tables
var (
	// BASE DE CALCULO INSS is a base, not a withholding; it is blanked before per-label search.
	reINSSBase = regexp.MustCompile(`(?i)BASE\s*DE\s*C[AÁ]LCULO\s*(?:DO\s*)?INSS[:\s]*(?:R\$)?\s*` + amount)

	federalGroup = retentionGroup{
		name: "federal",
		header: regexp.MustCompile(`(?i)INSS\s*\(R\$\)\s*PIS\s*\(R\$\)\s*COFINS\s*\(R\$\)\s*` +
			`C\.?\s?S\.?\s?L\.?\s?L\.?\s*\(R\$\)\s*IRRF\s*\(R\$\)`),
		detect: regexp.MustCompile(`(?i)(?:\bINSS|\bPIS|\bCOFINS|\bC\.?\s?S\.?\s?L\.?\s?L\.?|\bIRRF)\s*(?:\(R\$\)|[:\s]*R\$)`),
		anchor: regexp.MustCompile(`(?i)\bINSS\s*\(R\$\)`),
		fields: []retentionField{
			{name: "social_security_withheld", defaultZero: true, chain: Chain{
				collapsed("retencoes-inss", `(?i)Reten[çc][õo]es\s*INSS\s*\(R\$\)[:\s]+`+amount),
				collapsed("inss-header", `(?i)\bINSS\s*\(R\$\)[:\s]*`+amount),
				collapsed("inss-a-reter", `(?i)\bINSS\s*(?:A\s*RETER|RETIDO)[:\s]*(?:R\$)?\s*`+amount),
				collapsed("inss", `(?i)\bINSS[:\s]*R\$\s*`+amount),
			}},
			{name: "pis_withheld", defaultZero: true, chain: Chain{
				collapsed("pis-header", `(?i)\bPIS(?:/PASEP)?\s*\(R\$\)[:\s]*`+amount),
				collapsed("pis", `(?i)\bPIS(?:/PASEP)?[:\s]*R\$\s*`+amount),
			}},
			{name: "cofins_withheld", defaultZero: true, chain: Chain{
				collapsed("cofins-header", `(?i)\bCOFINS\s*\(R\$\)[:\s]*`+amount),
				collapsed("cofins", `(?i)\bCOFINS[:\s]*R\$\s*`+amount),
			}},
			{name: "csll_withheld", defaultZero: true, chain: Chain{
				collapsed("csll-header", `(?i)\bC\.?\s?S\.?\s?L\.?\s?L\.?\s*\(R\$\)[:\s]*`+amount),
				collapsed("csll", `(?i)\bCSLL[:\s]*R\$\s*`+amount),
			}},
			{name: "income_tax_withheld", defaultZero: true, chain: Chain{
				collapsed("irrf-header", `(?i)\bIRRF\s*\(R\$\)[:\s]*`+amount),
				collapsed("irrf", `(?i)\bIRRF[:\s]*R\$\s*`+amount),
			}},
		},
	}

	municipalGroup = retentionGroup{
		name: "municipal",
		header: regexp.MustCompile(`(?i)ISSQN\s*\(R\$\)\s*Outras\s*Dedu[çc][õo]es\s*\(R\$\)\s*` +
			`Total\s*das\s*Reten[çc][õo]es\s*\(R\$\)\s*Valor\s*L[íi]quido\s*da\s*Nota\s*\(R\$\)`),
		detect: regexp.MustCompile(`(?i)(?:\bISSQN|Outras\s*Dedu[çc][õo]es|Total\s*das\s*Reten[çc][õo]es|Valor\s*L[íi]quido)\s*(?:\(R\$\)|[:\s]*R\$)`),
		anchor: regexp.MustCompile(`(?i)\bISSQN\s*\(R\$\)`),
		fields: []retentionField{
			{name: "issqn_withheld", defaultZero: true, chain: Chain{
				collapsed("issqn-header", `(?i)\bISSQN\s*\(R\$\)[:\s]*`+amount),
				collapsed("issqn", `(?i)\bISSQN\s*(?:RETIDO)?[:\s]*R\$\s*`+amount),
			}},
			{name: "other_deductions", defaultZero: true, chain: Chain{
				collapsed("outras-deducoes-header", `(?i)Outras\s*Dedu[çc][õo]es\s*\(R\$\)[:\s]*`+amount),
				collapsed("outras-deducoes", `(?i)Outras\s*Dedu[çc][õo]es[:\s]*R\$\s*`+amount),
			}},
			{name: "total_withholdings", chain: Chain{
				collapsed("total-retencoes-header", `(?i)Total\s*das\s*Reten[çc][õo]es\s*\(R\$\)[:\s]*`+amount),
				collapsed("total-retencoes", `(?i)Total\s*(?:das\s*)?Reten[çc][õo]es[:\s]*R\$\s*`+amount),
			}},
			{name: "net_amount", chain: Chain{
				collapsed("valor-liquido-header", `(?i)Valor\s*L[íi]quido\s*da\s*Nota\s*\(R\$\)[:\s]*`+amount),
				collapsed("valor-liquido", `(?i)Valor\s*L[íi]quido(?:\s*da\s*Nota)?[:\s]*R\$\s*`+amount),
			}},
		},
	}
)

func init() {
	federalGroup.tight = tightTable(federalGroup.header, len(federalGroup.fields))
	municipalGroup.tight = tightTable(municipalGroup.header, len(municipalGroup.fields))
}

// tightTable matches header followed directly by count amounts.
func tightTable(header *regexp.Regexp, count int) *regexp.Regexp {
	expr := header.String() + `\s*` + tableAmount + strings.Repeat(`\s+`+tableAmount, count-1)
	return regexp.MustCompile(expr)
}

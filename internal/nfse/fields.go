package nfse

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Strategy names for values that were not matched by a pattern.
const (
	SourceDerived   = "derived"
	SourceSynthetic = "synthetic"
	SourceDefault   = "default"

	strategyLabelWindow = "label-window"
	strategyLabelSplit  = "label-split"
)

// SyntheticCode returns a placeholder verification code, "NF-" followed by the hex
// form of a UUIDv7 (millisecond timestamp plus random bits).
func SyntheticCode() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return "NF-" + strings.ToUpper(hex.EncodeToString(id[:]))
}

// verificationCode returns the code and the strategy that found it, or "" if absent.
func verificationCode(doc Document) (string, string) {
	if m, ok := codeChain.Find(doc); ok {
		return cleanCode(m.Value), m.Strategy
	}

	if offset, ok := codeLabel.Locate(doc.Raw); ok {
		if code := reCodeShape.FindString(window(doc.Raw, offset, codeWindowSize)); code != "" {
			return cleanCode(code), strategyLabelWindow
		}
	}
	return "", ""
}

func cleanCode(s string) string {
	return truncateRunes(strings.Join(strings.Fields(s), ""), maxVerificationCode)
}

func invoiceNumber(doc Document) (*string, string) {
	m, ok := numberChain.Find(doc)
	if !ok {
		return nil, ""
	}
	number := truncateRunes(m.Value, maxInvoiceNumber)
	return &number, m.Strategy
}

// issueDate returns the parsed date, the strategy and the raw text it came from.
// A match that does not parse yields a nil date with the raw text for logging.
func issueDate(doc Document) (*time.Time, string, string) {
	m, ok := dateChain.Find(doc)
	if !ok {
		return nil, "", ""
	}

	rawValue := strings.TrimSpace(m.Group("date") + " " + m.Group("time"))
	t, ok := ParseIssueDate(m.Group("date"), m.Group("time"))
	if !ok {
		return nil, m.Strategy, rawValue
	}
	return &t, m.Strategy, rawValue
}

var dateLayouts = []string{"02/01/2006", "02/01/06", "2006-01-02"}

// ParseIssueDate parses a dd/mm/yyyy date with an optional HH:MM:SS time in UTC.
func ParseIssueDate(date, clock string) (time.Time, bool) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)

	if clock != "" {
		t, err := time.ParseInLocation("02/01/2006 15:04:05", date+" "+clock, time.UTC)
		return t, err == nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, date, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// payerName anchors at the payer label, captures up to the CPF/CNPJ boundary inside a
// bounded window and falls back to splitting the window manually, then to the
// collapsed text.
func payerName(doc Document) (*string, string) {
	if offset, ok := payerLabel.Locate(doc.Raw); ok {
		win := window(doc.Raw, offset, payerWindowSize)

		for _, s := range payerWindowChain {
			if m, ok := s.match(win); ok {
				if name := cleanPayerName(m.Value); name != "" {
					return &name, m.Strategy
				}
			}
		}

		if name := cleanPayerName(splitPayerWindow(win)); name != "" {
			return &name, strategyLabelSplit
		}
	}

	for _, s := range payerCollapsedChain {
		if m, ok := s.match(doc.Collapsed); ok {
			if name := cleanPayerName(m.Value); name != "" {
				return &name, m.Strategy
			}
		}
	}
	return nil, ""
}

// splitPayerWindow returns the text between the label and the CPF/CNPJ boundary.
func splitPayerWindow(win string) string {
	loc := rePayerBoundary.FindStringIndex(win)
	if loc == nil {
		return ""
	}
	if m := reAfterServico.FindStringSubmatch(win[:loc[0]]); m != nil {
		return m[1]
	}
	return ""
}

func cleanPayerName(s string) string {
	s = collapseSpaces(stripGarbage(RepairMojibake(s)))
	s = reAddressTail.ReplaceAllString(s, "")
	s = strings.Trim(s, " :-")
	if reBoundaryPrefix.MatchString(s) {
		return ""
	}
	return truncateRunes(s, maxPayerName)
}

func serviceDescription(doc Document) (*string, string) {
	m, ok := descriptionChain.Find(doc)
	if !ok {
		return nil, ""
	}
	desc := strings.TrimSpace(reMultiSpaces.ReplaceAllString(m.Value, " "))
	if desc == "" {
		return nil, ""
	}
	desc = truncateRunes(desc, maxServiceDesc)
	return &desc, m.Strategy
}

func paymentStatus(doc Document) (string, string) {
	m, ok := statusChain.Find(doc)
	if !ok {
		return "", ""
	}
	status := truncateRunes(collapseSpaces(m.Value), maxPaymentStatus)
	return status, m.Strategy
}

// amountField runs a monetary chain and parses the capture.
func amountField(doc Document, chain Chain) (*decimal.Decimal, string) {
	m, ok := chain.Find(doc)
	if !ok {
		return nil, ""
	}
	d, ok := ParseDecimal(m.Value)
	if !ok {
		return nil, ""
	}
	return &d, m.Strategy
}

package receipt

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zombor/ledger-bot/internal/amount"
	"github.com/zombor/ledger-bot/internal/ledger"
)

// Profile holds the label heuristics for one bank's receipts.
type Profile struct {
	// Name is recorded as the draft's bank.
	Name string
	// Markers are upper-case substrings identifying the bank.
	Markers []string
	// AmountLabels are upper-case labels of lines carrying the amount.
	AmountLabels []string
	// NotesHeader matches the line opening the free-text notes section.
	NotesHeader *regexp.Regexp
	// SectionHeader matches lines that end the notes section.
	SectionHeader *regexp.Regexp
	// Remarks matches a single-line remarks label.
	Remarks *regexp.Regexp
	// Recipient matches "transfer to" style labels with the value in group 2.
	Recipient *regexp.Regexp
	// RecipientLabel matches a recipient label alone on its line.
	RecipientLabel *regexp.Regexp
}

// Profiles lists the supported banks in detection order.
var Profiles = []Profile{
	{
		Name:    "BCA",
		Markers: []string{"BCA", "BANK CENTRAL ASIA"},
		AmountLabels: []string{
			"NOMINAL TUJUAN", "JUMLAH", "NOMINAL", "TOTAL", "JUMLAH TRANSFER",
			"TOTAL BAYAR", "TOTAL TRANSAKSI", "TOTAL PEMBAYARAN",
		},
		NotesHeader: regexp.MustCompile(`(?i)^\s*BERITA\s*$|berita\s*[:\-]`),
		SectionHeader: regexp.MustCompile(`(?i)^(?:NO\.?\s*REFERENSI|NOMOR\s*REFERENSI|REKENING\s*TUJUAN|` +
			`JENIS\s*TRANSAKSI|MATA\s*UANG|DARI\s*REKENING|TRANSFER\s*BERHASIL)$`),
		Remarks:        regexp.MustCompile(`(?i)keterangan`),
		Recipient:      regexp.MustCompile(`(?i)(transfer\s+ke|nama\s+penerima|penerima|kredit\s+ke)\s*[:\-]?\s*(.+)`),
		RecipientLabel: regexp.MustCompile(`(?i)^nama\s+penerima$`),
	},
}

var (
	labeledAmountRe  = regexp.MustCompile(`(?i)(?:RP|IDR)?\s*([0-9][0-9.,]{2,})`)
	labelSeparatorRe = regexp.MustCompile(`[:\-]`)
	recipientTailRe  = regexp.MustCompile(`\s{2,}|\s*Rp\s*`)
)

func (p Profile) extract(text string) Fields {
	f := Fields{Bank: p.Name}
	lines := nonEmptyLines(text)

	if v, ok := p.labeledAmount(lines); ok {
		f.Amount = decimal.NewNullDecimal(v)
	} else if v, ok := genericAmount(text); ok {
		f.Amount = decimal.NewNullDecimal(v)
	}

	desc, notesSeen := p.notes(lines)
	if desc == "" {
		desc = p.remarks(lines)
	}
	if desc == "" && !notesSeen {
		desc = p.recipient(lines)
	}
	if desc == "" && !notesSeen {
		desc = pickDescription(text)
	}

	if len(desc) >= ledger.MinDescriptionLength {
		f.Description = desc
	}
	f.NotesBlockPresentButEmpty = notesSeen && f.Description == ""
	return f
}

// labeledAmount reads the first amount on a labeled or currency-marked line.
func (p Profile) labeledAmount(lines []string) (decimal.Decimal, bool) {
	for _, ln := range lines {
		upper := strings.ToUpper(ln)
		if !p.isAmountLine(upper) {
			continue
		}
		m := labeledAmountRe.FindStringSubmatch(ln)
		if m == nil {
			continue
		}
		if v, err := amount.ParseOCR(m[1]); err == nil && v.IsPositive() {
			return v, true
		}
	}
	return decimal.Zero, false
}

func (p Profile) isAmountLine(upper string) bool {
	if strings.Contains(upper, "RP") || strings.Contains(upper, "IDR") {
		return true
	}
	for _, label := range p.AmountLabels {
		if strings.Contains(upper, label) {
			return true
		}
	}
	return false
}

// notes collects the notes section. It reports whether a header was seen at all.
func (p Profile) notes(lines []string) (string, bool) {
	for i, ln := range lines {
		if !p.NotesHeader.MatchString(ln) {
			continue
		}

		var collected []string
		if parts := labelSeparatorRe.Split(ln, 2); len(parts) > 1 {
			if rest := strings.TrimSpace(parts[1]); rest != "" {
				collected = append(collected, rest)
			}
		}
		for _, next := range lines[i+1:] {
			if p.SectionHeader.MatchString(next) {
				break
			}
			collected = append(collected, next)
		}

		candidate := strings.TrimSpace(strings.Join(collected, " "))
		if len(candidate) < ledger.MinDescriptionLength {
			return "", true
		}
		return ledger.FirstSentence(candidate), true
	}
	return "", false
}

func (p Profile) remarks(lines []string) string {
	for _, ln := range lines {
		if !p.Remarks.MatchString(ln) {
			continue
		}
		candidate := ln
		if parts := labelSeparatorRe.Split(ln, 2); len(parts) > 1 {
			candidate = strings.TrimSpace(parts[1])
		}
		if len(candidate) >= ledger.MinDescriptionLength {
			return ledger.FirstSentence(candidate)
		}
	}
	return ""
}

// recipient builds "Transfer ke <name>" from an inline label or a label line followed by the value.
func (p Profile) recipient(lines []string) string {
	for i, ln := range lines {
		if m := p.Recipient.FindStringSubmatch(ln); m != nil {
			candidate := strings.TrimSpace(recipientTailRe.Split(strings.TrimSpace(m[2]), 2)[0])
			if len(candidate) >= ledger.MinDescriptionLength {
				return ledger.FirstSentence("Transfer ke " + candidate)
			}
		}
		if p.RecipientLabel.MatchString(ln) && i+1 < len(lines) {
			if candidate := lines[i+1]; len(candidate) >= ledger.MinDescriptionLength {
				return ledger.FirstSentence("Transfer ke " + candidate)
			}
		}
	}
	return ""
}

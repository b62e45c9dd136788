package conversation

import (
	"fmt"
	"strings"

	"github.com/zombor/ledger-bot/internal/amount"
	"github.com/zombor/ledger-bot/internal/datetime"
	"github.com/zombor/ledger-bot/internal/ledger"
)

const (
	msgCancelled      = "Dibatalkan."
	msgAskDescription = "Tulis deskripsi transaksi:"
	msgShortDesc      = "Deskripsi tidak boleh kosong. Tulis deskripsi transaksi:"
	msgAskAmount      = "Nominal? (contoh: 12.500)"
	msgBadAmount      = "Nominal tidak valid. Coba lagi, contoh: 12.500"
	msgAskDateTime    = "Tanggal/waktu transaksi? (contoh: 2025-10-30 14:30, 30-10-2025, today, yesterday).\nKetik now untuk sekarang, 0 untuk batal."
	msgBadDateTime    = "Tanggal/waktu tidak valid. Contoh: 2025-10-30 14:30 atau 30-10-2025, atau now untuk sekarang."
	msgAskKind        = "Tipe? 1) income  2) outcome"
	msgBadKind        = "Pilih '1' untuk income atau '2' untuk outcome."
	msgEmptyBank      = "Nama bank tidak boleh kosong. Ketik nama bank."
	msgEmptyCategory  = "Kategori tidak boleh kosong. Ketik kategori."
	msgPhotoMidFlow   = "Sedang mengisi transaksi. Selesaikan dulu atau ketik 0 untuk batal."
	msgReading        = "🔎 Membaca gambar…"
	msgReadFailed     = "Maaf, gagal membaca gambar. Silakan input manual atau kirim foto lain."
	msgNoAmount       = "Tidak menemukan nominal di gambar."
	msgNoDescription  = "Tidak menemukan deskripsi."
	msgEmptyNotes     = "Bagian 'Berita' kosong."
	msgNoTransactions = "Belum ada transaksi."
	msgDebugOCRLimit  = 1000
	msgRecentHeader   = "📜 10 transaksi terakhir:"
	msgMenuOptions    = "Pilih menu:\n1) Tambah transaksi\n2) Lihat 10 transaksi terakhir\n3) Ringkasan total income/outcome\n4) Batal"
	msgFormatHelp     = "Anda bisa memasukkan transaksi dalam satu baris dengan format:\n" +
		"<deskripsi> <income|outcome> <nominal> <tanggal-opsional> <kategori> <bank>\n\n" +
		"Contoh:\n" +
		"Beli kopi sore ini outcome 12.500 2025-10-24 14:30 food BCA\n\n" +
		"Catatan: jika ada spasi pada kategori/bank, gunakan kutip, misal: \"Transport Online\" atau \"BCA Digital\".\n" +
		"Tanggal/waktu opsional (YYYY-MM-DD HH:MM / DD-MM-YYYY HH:MM / today / yesterday). Kosong/0=sekarang."
)

func greeting(user ledger.User) string {
	name := strings.TrimSpace(user.FirstName)
	if name == "" {
		name = strings.TrimSpace(user.Username)
	}
	if name == "" {
		return "Halo! 👋"
	}
	return fmt.Sprintf("Halo, %s! 👋", name)
}

func optionsPrompt(noun string, options []string) string {
	if len(options) == 0 {
		return fmt.Sprintf("Belum ada %s. Ketik nama %s baru:", noun, noun)
	}
	lines := []string{fmt.Sprintf("Pilih %s (ketik angka atau tulis nama %s baru):", noun, noun)}
	for i, name := range options {
		lines = append(lines, fmt.Sprintf("%d) %s", i+1, name))
	}
	return strings.Join(lines, "\n")
}

func committedMessage(view *ledger.TransactionView, dates *datetime.Normalizer) string {
	return fmt.Sprintf("✅ Tersimpan %s: [%s] %s — %s — %s @ %s",
		amount.FormatRupiah(view.Amount), view.Kind, orDash(view.Description),
		dates.Display(view.OccurredAt), view.CategoryName, view.BankName)
}

func recentMessage(views []ledger.TransactionView, dates *datetime.Normalizer) string {
	if len(views) == 0 {
		return msgNoTransactions
	}
	lines := []string{msgRecentHeader}
	for _, v := range views {
		lines = append(lines, fmt.Sprintf("• %s [%s] %s — %s @ %s",
			dates.Display(v.OccurredAt), v.Kind, orDash(v.Description), v.CategoryName, v.BankName))
	}
	return strings.Join(lines, "\n")
}

func summaryMessage(s ledger.Summary) string {
	return "📊 Ringkasan:\n" +
		fmt.Sprintf("• Total income: %s\n", amount.FormatRupiah(s.Income)) +
		fmt.Sprintf("• Total outcome: %s\n", amount.FormatRupiah(s.Outcome)) +
		fmt.Sprintf("• Saldo: %s", amount.FormatRupiah(s.Balance()))
}

// recognizedMessage summarizes what a photo produced.
func recognizedMessage(d ledger.Draft) string {
	var lines []string
	if d.Amount.Valid && d.Description != "" {
		lines = append(lines, fmt.Sprintf("Terbaca: %s — %s", amount.FormatRupiah(d.Amount.Decimal), d.Description))
	} else if d.Amount.Valid {
		lines = append(lines, "Terbaca: "+amount.FormatRupiah(d.Amount.Decimal))
	} else if d.Description != "" {
		lines = append(lines, "Terbaca: "+d.Description)
	}
	if d.Kind != "" {
		lines = append(lines, "Tipe: "+string(d.Kind))
	}
	if d.Bank != "" {
		lines = append(lines, "Bank: "+d.Bank)
	}
	return strings.Join(lines, "\n")
}

func debugSnippet(text string) string {
	snippet := strings.ReplaceAll(strings.TrimSpace(text), "\n\n", "\n")
	if r := []rune(snippet); len(r) > msgDebugOCRLimit {
		snippet = string(r[:msgDebugOCRLimit]) + "…"
	}
	return "[Debug OCR]\n" + snippet
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// Command receipt-scan runs receipt recognition over local files and prints what it extracts.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/ledger-bot/internal/amount"
	"github.com/zombor/ledger-bot/internal/receipt"
	"github.com/zombor/ledger-bot/internal/scanning"
)

func main() {
	flags := ff.NewFlagSet("receipt-scan")
	var (
		tessdata    = flags.StringLong("tessdata", "", "Tesseract tessdata directory (default library path)")
		concurrency = flags.IntLong("concurrency", 4, "Recognition passes run in parallel")
		showText    = flags.BoolLong("text", "Print the recognized text")
		verbose     = flags.BoolLong("verbose", "Log each recognition pass")
	)

	if err := ff.Parse(flags, os.Args[1:], ff.WithEnvVarPrefix("LEDGER_BOT")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(flags))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(flags.GetArgs()) == 0 {
		fmt.Fprintf(os.Stderr, "usage: receipt-scan [flags] FILE...\n")
		os.Exit(2)
	}
	if *verbose {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	recognizer := scanning.NewRecognizer(scanning.NewTesseract(*tessdata), scanning.Config{Concurrency: *concurrency})
	ctx := context.Background()

	failed := false
	for _, path := range flags.GetArgs() {
		if err := scan(ctx, recognizer, path, *showText); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func scan(ctx context.Context, recognizer *scanning.Recognizer, path string, showText bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))

	text := recognizer.Recognize(ctx, data, contentType)
	fields, fromWords := receipt.ExtractWithWords(text, func() []string {
		return scanning.Texts(recognizer.Words(ctx, data, contentType))
	})
	source := "text"
	if fromWords {
		source = "words"
	}

	fmt.Printf("== %s\n", path)
	fmt.Printf("bank:        %s\n", orDash(fields.Bank))
	fmt.Printf("description: %s\n", orDash(fields.Description))
	if fields.Amount.Valid {
		fmt.Printf("amount:      %s (from %s)\n", amount.FormatRupiah(fields.Amount.Decimal), source)
	} else {
		fmt.Printf("amount:      -\n")
	}
	if fields.NotesBlockPresentButEmpty {
		fmt.Printf("notes:       present but empty\n")
	}
	if showText {
		fmt.Printf("-- text\n%s\n", text)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

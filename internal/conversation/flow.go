package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/forPelevin/gomoji"

	"github.com/zombor/ledger-bot/internal/amount"
	"github.com/zombor/ledger-bot/internal/inline"
	"github.com/zombor/ledger-bot/internal/ledger"
	"github.com/zombor/ledger-bot/internal/receipt"
	"github.com/zombor/ledger-bot/internal/scanning"
)

type shape int

const (
	shapeText shape = iota
	shapeCancel
	shapePhoto
)

func (s shape) String() string {
	switch s {
	case shapeCancel:
		return "cancel"
	case shapePhoto:
		return "photo"
	default:
		return "text"
	}
}

func classify(msg Message) shape {
	switch {
	case msg.Attachment != nil:
		return shapePhoto
	case strings.TrimSpace(msg.Text) == "0":
		return shapeCancel
	default:
		return shapeText
	}
}

// turn carries one message through a step.
type turn struct {
	msg     Message
	text    string
	session *Session
}

type stepFunc func(e *Engine, ctx context.Context, t *turn)

type transitionKey struct {
	state State
	shape shape
}

var transitions = map[transitionKey]stepFunc{
	{StateIdle, shapeText}:   (*Engine).entry,
	{StateIdle, shapeCancel}: (*Engine).cancel,
	{StateIdle, shapePhoto}:  (*Engine).photo,

	{StateDescription, shapeText}:   (*Engine).description,
	{StateDescription, shapeCancel}: (*Engine).cancel,
	{StateDescription, shapePhoto}:  (*Engine).photoMidFlow,

	{StateAmount, shapeText}:   (*Engine).amount,
	{StateAmount, shapeCancel}: (*Engine).cancel,
	{StateAmount, shapePhoto}:  (*Engine).photoMidFlow,

	{StateDateTime, shapeText}:   (*Engine).occurredAt,
	{StateDateTime, shapeCancel}: (*Engine).cancel,
	{StateDateTime, shapePhoto}:  (*Engine).photoMidFlow,

	{StateKind, shapeText}:   (*Engine).kind,
	{StateKind, shapeCancel}: (*Engine).cancel,
	{StateKind, shapePhoto}:  (*Engine).photoMidFlow,

	{StateBank, shapeText}:   (*Engine).bank,
	{StateBank, shapeCancel}: (*Engine).cancel,
	{StateBank, shapePhoto}:  (*Engine).photoMidFlow,

	{StateCategory, shapeText}:   (*Engine).category,
	{StateCategory, shapeCancel}: (*Engine).cancel,
	{StateCategory, shapePhoto}:  (*Engine).photoMidFlow,
}

var menuChoice = regexp.MustCompile(`^\s*([0-4])\s*[.)\-:]*\s*$`)

func (e *Engine) entry(ctx context.Context, t *turn) {
	if m := menuChoice.FindStringSubmatch(t.text); m != nil {
		switch m[1] {
		case "1":
			t.session.Draft = ledger.Draft{Provenance: ledger.ProvenanceManual}
			t.session.State = StateDescription
			e.say(ctx, t.msg.ChatID, msgAskDescription)
		case "2":
			e.showRecent(ctx, t.msg)
		case "3":
			e.showSummary(ctx, t.msg)
		default:
			e.cancel(ctx, t)
		}
		return
	}

	if inline.IsAddCommand(t.text) {
		e.add(ctx, t.msg, t.text)
		return
	}

	if draft, ok := e.parser.Parse(t.text); ok {
		e.commit(ctx, t.msg, draft)
		return
	}

	rest := t.text
	if after, ok := strings.CutPrefix(rest, "1 "); ok {
		rest = after
	}
	t.session.Draft = ledger.Draft{
		Description: ledger.FirstSentence(rest),
		Provenance:  ledger.ProvenanceManual,
	}
	if len(t.session.Draft.Description) < ledger.MinDescriptionLength {
		t.session.Draft.Description = ""
		t.session.State = StateDescription
		e.say(ctx, t.msg.ChatID, msgShortDesc)
		return
	}
	e.advance(ctx, t)
}

func (e *Engine) cancel(ctx context.Context, t *turn) {
	t.session.State = StateIdle
	t.session.Draft = ledger.Draft{}
	e.say(ctx, t.msg.ChatID, msgCancelled)
	e.menu(ctx, t.msg)
}

func (e *Engine) photoMidFlow(ctx context.Context, t *turn) {
	e.say(ctx, t.msg.ChatID, msgPhotoMidFlow)
	e.prompt(ctx, t)
}

func (e *Engine) description(ctx context.Context, t *turn) {
	desc := ledger.FirstSentence(t.text)
	if len(desc) < ledger.MinDescriptionLength {
		e.say(ctx, t.msg.ChatID, msgShortDesc)
		return
	}
	t.session.Draft.Description = desc
	e.advance(ctx, t)
}

func (e *Engine) amount(ctx context.Context, t *turn) {
	value, err := amount.Parse(t.text)
	if err != nil || !value.IsPositive() {
		e.say(ctx, t.msg.ChatID, msgBadAmount)
		return
	}
	t.session.Draft.SetAmount(value)
	e.advance(ctx, t)
}

func (e *Engine) occurredAt(ctx context.Context, t *turn) {
	ts, err := e.dates.Parse(t.text)
	if err != nil {
		e.say(ctx, t.msg.ChatID, msgBadDateTime)
		return
	}
	t.session.Draft.OccurredAt = ts
	e.advance(ctx, t)
}

func (e *Engine) kind(ctx context.Context, t *turn) {
	var kind ledger.Kind
	switch strings.ToLower(t.text) {
	case "1":
		kind = ledger.KindIncome
	case "2":
		kind = ledger.KindOutcome
	default:
		k, ok := ledger.ParseKind(t.text)
		if !ok {
			e.say(ctx, t.msg.ChatID, msgBadKind)
			return
		}
		kind = k
	}
	t.session.Draft.Kind = kind
	e.advance(ctx, t)
}

func (e *Engine) bank(ctx context.Context, t *turn) {
	name := choose(t.text, t.session.BankOptions)
	if name == "" {
		e.say(ctx, t.msg.ChatID, msgEmptyBank)
		return
	}
	t.session.Draft.Bank = name
	e.advance(ctx, t)
}

func (e *Engine) category(ctx context.Context, t *turn) {
	name := choose(t.text, t.session.CategoryOptions)
	if name == "" {
		e.say(ctx, t.msg.ChatID, msgEmptyCategory)
		return
	}
	t.session.Draft.Category = name
	e.advance(ctx, t)
}

// advance moves the session to the first missing slot, or commits when none is left.
func (e *Engine) advance(ctx context.Context, t *turn) {
	s := t.session
	d := &s.Draft
	switch {
	case len(d.Description) < ledger.MinDescriptionLength:
		s.State = StateDescription
	case !d.Amount.Valid:
		s.State = StateAmount
	case d.Provenance == ledger.ProvenanceManual && d.OccurredAt == "":
		s.State = StateDateTime
	case d.Kind == "":
		s.State = StateKind
	case d.Bank == "":
		s.BankOptions = e.options(ctx, "banks", e.ledger.BankNames)
		s.State = StateBank
	case d.Category == "":
		s.CategoryOptions = e.options(ctx, "categories", e.ledger.CategoryNames)
		s.State = StateCategory
	default:
		s.State = StateIdle
		e.commit(ctx, t.msg, *d)
		return
	}
	e.prompt(ctx, t)
}

// prompt asks for the slot the session is waiting on.
func (e *Engine) prompt(ctx context.Context, t *turn) {
	var text string
	switch t.session.State {
	case StateDescription:
		text = msgAskDescription
	case StateAmount:
		text = msgAskAmount
	case StateDateTime:
		text = msgAskDateTime
	case StateKind:
		text = msgAskKind
	case StateBank:
		text = optionsPrompt("bank", t.session.BankOptions)
	case StateCategory:
		text = optionsPrompt("kategori", t.session.CategoryOptions)
	default:
		return
	}
	e.say(ctx, t.msg.ChatID, text)
}

// options loads a choice list. A failed lookup offers no options, so the user types a new name.
func (e *Engine) options(ctx context.Context, what string, load func(context.Context) ([]string, error)) []string {
	names, err := load(ctx)
	if err != nil {
		slog.Warn("loading options", "what", what, "error", err)
		return nil
	}
	return names
}

// choose resolves a reply against numbered options. Unmatched text is a new name.
func choose(text string, options []string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if n, err := strconv.Atoi(text); err == nil && n >= 1 && n <= len(options) {
		return options[n-1]
	}
	if key := optionKey(text); key != "" {
		for _, option := range options {
			if optionKey(option) == key {
				return option
			}
		}
	}
	return text
}

func optionKey(s string) string {
	return strings.ToLower(strings.TrimSpace(gomoji.RemoveEmojis(s)))
}

func (e *Engine) photo(ctx context.Context, t *turn) {
	e.say(ctx, t.msg.ChatID, msgReading)

	fields, raw, err := e.read(ctx, t.msg.Attachment)
	if err != nil {
		slog.Warn("reading attachment", "user", t.msg.User.TelegramID, "error", err)
		t.session.State = StateIdle
		e.say(ctx, t.msg.ChatID, msgReadFailed)
		e.menu(ctx, t.msg)
		return
	}

	draft := ledger.Draft{
		Description: fields.Description,
		Bank:        fields.Bank,
		Provenance:  ledger.ProvenanceOCR,
	}
	if fields.BankDetected() {
		draft.Kind = ledger.KindOutcome
	}
	if fields.Amount.Valid && fields.Amount.Decimal.IsPositive() {
		draft.SetAmount(fields.Amount.Decimal)
	}
	t.session.Draft = draft

	var notes []string
	if summary := recognizedMessage(draft); summary != "" {
		notes = append(notes, summary)
	}
	if !draft.Amount.Valid {
		notes = append(notes, msgNoAmount)
	}
	switch {
	case fields.NotesBlockPresentButEmpty:
		notes = append(notes, msgEmptyNotes)
	case draft.Description == "":
		notes = append(notes, msgNoDescription)
	}
	e.say(ctx, t.msg.ChatID, strings.Join(notes, "\n"))
	if e.debugOCR && !draft.Amount.Valid {
		e.say(ctx, t.msg.ChatID, debugSnippet(raw))
	}

	e.advance(ctx, t)
}

// read downloads an attachment to scratch space, recognizes it and extracts receipt fields.
// The scratch file is removed before read returns.
func (e *Engine) read(ctx context.Context, att *Attachment) (receipt.Fields, string, error) {
	body, err := e.fetcher.Fetch(ctx, att.FileID)
	if err != nil {
		return receipt.Fields{}, "", fmt.Errorf("downloading attachment: %w", err)
	}
	defer body.Close()

	path, cleanup, err := e.scratch.SaveTemp(body, extensionFor(att.ContentType))
	if err != nil {
		return receipt.Fields{}, "", fmt.Errorf("saving attachment: %w", err)
	}
	defer cleanup()

	data, err := e.scratch.Get(path)
	if err != nil {
		return receipt.Fields{}, "", fmt.Errorf("reading attachment: %w", err)
	}

	text := e.recognizer.Recognize(ctx, data, att.ContentType)
	fields, _ := receipt.ExtractWithWords(text, func() []string {
		return scanning.Texts(e.recognizer.Words(ctx, data, att.ContentType))
	})
	return fields, text, nil
}

func extensionFor(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/png":
		return ".png"
	case "image/heic", "image/heif":
		return ".heic"
	case "application/pdf":
		return ".pdf"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

// Package conversation runs the per-user dialogue that fills in a transaction draft.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/zombor/ledger-bot/internal/datetime"
	"github.com/zombor/ledger-bot/internal/inline"
	"github.com/zombor/ledger-bot/internal/ledger"
	"github.com/zombor/ledger-bot/internal/scanning"
	"github.com/zombor/ledger-bot/internal/storage"
)

// Message is one inbound chat event.
type Message struct {
	ChatID     int64
	User       ledger.User
	Text       string
	Attachment *Attachment
}

// Attachment is a photo or document that can be downloaded by file id.
type Attachment struct {
	FileID      string
	ContentType string
}

// Messenger sends reply text to a chat.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Fetcher downloads attachments.
type Fetcher interface {
	Fetch(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// Recognizer reads text from images. Failures yield empty results.
type Recognizer interface {
	Recognize(ctx context.Context, data []byte, contentType string) string
	Words(ctx context.Context, data []byte, contentType string) []scanning.Word
}

// Ledger commits drafts and reads history.
type Ledger interface {
	Commit(ctx context.Context, user ledger.User, draft ledger.Draft) (*ledger.TransactionView, error)
	Recent(ctx context.Context, user ledger.User) ([]ledger.TransactionView, error)
	Summary(ctx context.Context, user ledger.User) (ledger.Summary, error)
	BankNames(ctx context.Context) ([]string, error)
	CategoryNames(ctx context.Context) ([]string, error)
}

// Observer receives conversation measurements.
type Observer interface {
	MessageReceived(shape string)
	Committed(provenance string)
	CommitFailed()
}

type noopObserver struct{}

func (noopObserver) MessageReceived(string) {}
func (noopObserver) Committed(string)       {}
func (noopObserver) CommitFailed()          {}

// Deps contains all dependencies required by the engine.
type Deps struct {
	// Sessions holds in-progress drafts.
	Sessions *SessionStore
	// Ledger persists committed drafts.
	Ledger Ledger
	// Messenger delivers replies.
	Messenger Messenger
	// Fetcher downloads photos and documents.
	Fetcher Fetcher
	// Scratch holds downloaded files while they are recognized.
	Scratch storage.Storage
	// Recognizer reads text from photos.
	Recognizer Recognizer
	// Parser reads one-line entries and add commands.
	Parser *inline.Parser
	// Dates resolves date phrases and formats timestamps.
	Dates *datetime.Normalizer
	// Observer is optional.
	Observer Observer
	// DebugOCR echoes recognized text when no amount was found.
	DebugOCR bool
}

// Validate ensures all required dependencies are provided.
func (d *Deps) Validate() error {
	switch {
	case d.Sessions == nil:
		return fmt.Errorf("session store dependency is required")
	case d.Ledger == nil:
		return fmt.Errorf("ledger dependency is required")
	case d.Messenger == nil:
		return fmt.Errorf("messenger dependency is required")
	case d.Fetcher == nil:
		return fmt.Errorf("fetcher dependency is required")
	case d.Scratch == nil:
		return fmt.Errorf("scratch storage dependency is required")
	case d.Recognizer == nil:
		return fmt.Errorf("recognizer dependency is required")
	case d.Parser == nil:
		return fmt.Errorf("parser dependency is required")
	case d.Dates == nil:
		return fmt.Errorf("date normalizer dependency is required")
	}
	return nil
}

// Engine handles inbound messages one at a time per user.
type Engine struct {
	sessions   *SessionStore
	ledger     Ledger
	messenger  Messenger
	fetcher    Fetcher
	scratch    storage.Storage
	recognizer Recognizer
	parser     *inline.Parser
	dates      *datetime.Normalizer
	observer   Observer
	debugOCR   bool
}

// NewEngine creates an Engine.
func NewEngine(deps Deps) (*Engine, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	observer := deps.Observer
	if observer == nil {
		observer = noopObserver{}
	}
	return &Engine{
		sessions:   deps.Sessions,
		ledger:     deps.Ledger,
		messenger:  deps.Messenger,
		fetcher:    deps.Fetcher,
		scratch:    deps.Scratch,
		recognizer: deps.Recognizer,
		parser:     deps.Parser,
		dates:      deps.Dates,
		observer:   observer,
		debugOCR:   deps.DebugOCR,
	}, nil
}

// ActiveSessions reports how many users are mid-entry.
func (e *Engine) ActiveSessions() int {
	return e.sessions.Len()
}

// Handle processes one message. Messages from the same user are handled in arrival order.
func (e *Engine) Handle(ctx context.Context, msg Message) {
	userID := msg.User.TelegramID
	unlock := e.sessions.Lock(userID)
	defer unlock()

	text := strings.TrimSpace(msg.Text)
	if msg.Attachment == nil && strings.HasPrefix(text, "/") {
		e.observer.MessageReceived("command")
		e.command(ctx, msg, text)
		return
	}

	sh := classify(msg)
	e.observer.MessageReceived(sh.String())

	session, ok := e.sessions.Get(userID)
	if !ok {
		session = &Session{UserID: userID, ChatID: msg.ChatID, State: StateIdle}
	}

	step, ok := transitions[transitionKey{state: session.State, shape: sh}]
	if !ok {
		slog.Warn("no transition", "user", userID, "state", session.State.String(), "shape", sh.String())
		return
	}

	t := &turn{msg: msg, text: text, session: session}
	step(e, ctx, t)

	if t.session.State == StateIdle {
		e.sessions.Delete(userID)
	} else {
		e.sessions.Put(t.session)
	}
}

// say sends a reply. Delivery failures are logged; the conversation carries on.
func (e *Engine) say(ctx context.Context, chatID int64, text string) {
	if err := e.messenger.Send(ctx, chatID, text); err != nil {
		slog.Warn("sending reply", "chat", chatID, "error", err)
	}
}

func (e *Engine) menu(ctx context.Context, msg Message) {
	e.say(ctx, msg.ChatID, greeting(msg.User)+"\n\n"+msgFormatHelp)
	e.say(ctx, msg.ChatID, msgMenuOptions)
}

// commit persists draft and reports the outcome. Callers leave the session idle either way.
func (e *Engine) commit(ctx context.Context, msg Message, draft ledger.Draft) {
	view, err := e.ledger.Commit(ctx, msg.User, draft)
	if err != nil {
		e.observer.CommitFailed()
		slog.Error("committing transaction", "user", msg.User.TelegramID, "provenance", draft.Provenance, "error", err)
		e.say(ctx, msg.ChatID, "❌ Gagal menyimpan: "+err.Error())
	} else {
		e.observer.Committed(string(draft.Provenance))
		e.say(ctx, msg.ChatID, committedMessage(view, e.dates))
	}
	e.menu(ctx, msg)
}

func (e *Engine) showRecent(ctx context.Context, msg Message) {
	views, err := e.ledger.Recent(ctx, msg.User)
	if err != nil {
		slog.Error("listing transactions", "user", msg.User.TelegramID, "error", err)
		e.say(ctx, msg.ChatID, "❌ Gagal mengambil data: "+err.Error())
	} else {
		e.say(ctx, msg.ChatID, recentMessage(views, e.dates))
	}
	e.menu(ctx, msg)
}

func (e *Engine) showSummary(ctx context.Context, msg Message) {
	summary, err := e.ledger.Summary(ctx, msg.User)
	if err != nil {
		slog.Error("summarizing transactions", "user", msg.User.TelegramID, "error", err)
		e.say(ctx, msg.ChatID, "❌ Gagal mengambil ringkasan: "+err.Error())
	} else {
		e.say(ctx, msg.ChatID, summaryMessage(summary))
	}
	e.menu(ctx, msg)
}

// add handles the key=value command surface. It never stores a partial record.
func (e *Engine) add(ctx context.Context, msg Message, text string) {
	draft, err := e.parser.ParseAdd(text)
	switch {
	case err == nil:
		e.commit(ctx, msg, draft)
	case errors.Is(err, datetime.ErrInvalidDateTime):
		e.say(ctx, msg.ChatID, msgBadDateTime)
	case errors.Is(err, inline.ErrUsage):
		e.say(ctx, msg.ChatID, inline.AddUsage)
	default:
		e.say(ctx, msg.ChatID, msgBadAmount)
	}
}

// command handles slash commands in any state.
func (e *Engine) command(ctx context.Context, msg Message, text string) {
	name := strings.ToLower(strings.Fields(text)[0])
	if i := strings.Index(name, "@"); i > 0 {
		name = name[:i]
	}

	switch name {
	case "/add":
		e.add(ctx, msg, text)
	case "/cancel":
		e.sessions.Delete(msg.User.TelegramID)
		e.say(ctx, msg.ChatID, msgCancelled)
		e.menu(ctx, msg)
	case "/list":
		e.showRecent(ctx, msg)
	case "/summary":
		e.showSummary(ctx, msg)
	default:
		// /start and anything unknown reset to the menu
		e.sessions.Delete(msg.User.TelegramID)
		e.menu(ctx, msg)
	}
}

package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arifmahmud/uptimebot/internal/domain"
	"github.com/arifmahmud/uptimebot/internal/engine"
	"github.com/arifmahmud/uptimebot/internal/repo"
)

// Bot is the Telegram front-end: it long-polls for updates and drives the
// engine service. All monitoring logic lives behind the engine; the bot is
// glue and text.
type Bot struct {
	Token   string
	BaseURL string // overridable for tests
	Client  *http.Client
	Logger  *zap.Logger
	Engine  *engine.Service
	AdminID int64

	convs  *Conversations
	offset int64
}

func New(token string, adminID int64, eng *engine.Service, logger *zap.Logger) *Bot {
	return &Bot{
		Token:   token,
		BaseURL: "https://api.telegram.org",
		Client:  &http.Client{Timeout: 40 * time.Second},
		Logger:  logger,
		Engine:  eng,
		AdminID: adminID,
		convs:   NewConversations(),
	}
}

// ---- Telegram wire types (just the fields we use) ----

type update struct {
	UpdateID int64          `json:"update_id"`
	Message  *message       `json:"message"`
	Callback *callbackQuery `json:"callback_query"`
}

type message struct {
	MessageID int64  `json:"message_id"`
	From      *user  `json:"from"`
	Chat      *chat  `json:"chat"`
	Text      string `json:"text"`
}

type callbackQuery struct {
	ID      string   `json:"id"`
	From    *user    `json:"from"`
	Data    string   `json:"data"`
	Message *message `json:"message"`
}

type user struct {
	ID int64 `json:"id"`
}

type chat struct {
	ID int64 `json:"id"`
}

type inlineButton struct {
	Text string `json:"text"`
	Data string `json:"callback_data"`
}

type inlineKeyboard struct {
	Buttons [][]inlineButton `json:"inline_keyboard"`
}

// Run long-polls until ctx is cancelled. Individual update failures are
// logged and skipped; the loop itself only stops with the context.
func (b *Bot) Run(ctx context.Context) {
	b.Logger.Info("bot_started")
	for {
		select {
		case <-ctx.Done():
			b.Logger.Info("bot_stopped")
			return
		default:
		}
		updates, err := b.getUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			b.Logger.Warn("bot_poll_error", zap.Error(err))
			time.Sleep(3 * time.Second)
			continue
		}
		for _, u := range updates {
			b.offset = u.UpdateID + 1
			b.handleUpdate(ctx, u)
		}
	}
}

func (b *Bot) getUpdates(ctx context.Context) ([]update, error) {
	var resp struct {
		OK     bool     `json:"ok"`
		Result []update `json:"result"`
	}
	err := b.call(ctx, "getUpdates", map[string]any{
		"offset":  b.offset,
		"timeout": 30,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, errors.New("getUpdates not ok")
	}
	return resp.Result, nil
}

func (b *Bot) handleUpdate(ctx context.Context, u update) {
	switch {
	case u.Message != nil && u.Message.From != nil:
		b.handleMessage(ctx, u.Message)
	case u.Callback != nil && u.Callback.From != nil:
		b.handleCallback(ctx, u.Callback)
	}
}

func (b *Bot) handleMessage(ctx context.Context, m *message) {
	uid := m.From.ID
	text := strings.TrimSpace(m.Text)

	switch {
	case text == "/start":
		b.handleStart(ctx, uid)
	case strings.HasPrefix(text, "AC-"):
		b.handleRedeem(ctx, uid, text)
	case text == "/admin":
		b.handleAdmin(ctx, uid)
	default:
		b.handleConversation(ctx, uid, text)
	}
}

func (b *Bot) handleStart(ctx context.Context, uid int64) {
	u, err := b.Engine.EnsureUser(ctx, uid)
	if err != nil {
		b.Logger.Error("ensure_user_error", zap.Int64("user_id", uid), zap.Error(err))
		return
	}
	verified := u.Verified || uid == b.AdminID
	if !verified {
		b.send(ctx, uid, "🔐 *Access Code Required!*\nPlease send your code (AC-XXXXXXXX):", nil)
		return
	}
	kb := &inlineKeyboard{Buttons: [][]inlineButton{{
		{Text: "➕ Add Monitor", Data: "add"},
		{Text: "📊 My Sites", Data: "list"},
	}}}
	b.send(ctx, uid, "👋 *Uptime Monitor Dashboard*", kb)
}

func (b *Bot) handleRedeem(ctx context.Context, uid int64, code string) {
	ok, err := b.Engine.RedeemAccessCode(ctx, uid, code)
	if err != nil {
		b.Logger.Error("redeem_error", zap.Int64("user_id", uid), zap.Error(err))
		return
	}
	if ok {
		b.send(ctx, uid, "✅ Access Granted! Type /start", nil)
	} else {
		b.send(ctx, uid, "❌ Invalid or Used Code.", nil)
	}
}

func (b *Bot) handleAdmin(ctx context.Context, uid int64) {
	if uid != b.AdminID {
		return
	}
	kb := &inlineKeyboard{Buttons: [][]inlineButton{{
		{Text: "🔑 Generate Code", Data: "gen_code"},
	}}}
	b.send(ctx, uid, "🛠 Admin Panel", kb)
}

// handleConversation advances the per-user add-monitor state machine with
// a free-text message.
func (b *Bot) handleConversation(ctx context.Context, uid int64, text string) {
	switch b.convs.State(uid) {
	case StateAwaitingURL:
		t, err := b.Engine.CreateTarget(ctx, uid, text)
		if errors.Is(err, engine.ErrInvalidURL) {
			b.send(ctx, uid, "❌ Invalid URL. It must start with http:// or https://", nil)
			return
		}
		if err != nil {
			b.Logger.Error("create_target_error", zap.Int64("user_id", uid), zap.Error(err))
			b.send(ctx, uid, "Something went wrong, try again later.", nil)
			return
		}
		b.convs.AwaitInterval(uid, t.ID)
		b.send(ctx, uid, "⏱ How often should I check it? Send the interval in minutes (e.g. 5):", nil)

	case StateAwaitingInterval:
		draft, ok := b.convs.Draft(uid)
		if !ok {
			b.convs.Reset(uid)
			return
		}
		minutes, err := strconv.Atoi(text)
		if err != nil || minutes < 1 {
			b.send(ctx, uid, "❌ Please send a positive whole number of minutes.", nil)
			return
		}
		if err := b.Engine.SetInterval(ctx, draft, minutes); err != nil {
			b.Logger.Error("set_interval_error", zap.String("target_id", string(draft)), zap.Error(err))
			b.send(ctx, uid, "Something went wrong, try again later.", nil)
			return
		}
		b.convs.Reset(uid)
		b.send(ctx, uid, "✅ Monitor Added!", nil)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *callbackQuery) {
	uid := cb.From.ID
	switch {
	case cb.Data == "gen_code":
		code, err := b.Engine.GenerateAccessCode(ctx, uid)
		if errors.Is(err, engine.ErrForbidden) {
			b.answerCallback(ctx, cb.ID, "Forbidden.")
			return
		}
		if err != nil {
			b.Logger.Error("gen_code_error", zap.Error(err))
			b.answerCallback(ctx, cb.ID, "Error.")
			return
		}
		b.answerCallback(ctx, cb.ID, "Code: "+code)

	case cb.Data == "list":
		b.showList(ctx, uid, cb)

	case strings.HasPrefix(cb.Data, "v_"):
		b.showTarget(ctx, uid, cb, domain.TargetID(strings.TrimPrefix(cb.Data, "v_")))

	case strings.HasPrefix(cb.Data, "del_"):
		id := domain.TargetID(strings.TrimPrefix(cb.Data, "del_"))
		err := b.Engine.DeleteTarget(ctx, id, uid)
		if errors.Is(err, repo.ErrNotFound) {
			b.answerCallback(ctx, cb.ID, "Not found.")
			return
		}
		if err != nil {
			b.Logger.Error("delete_target_error", zap.String("target_id", string(id)), zap.Error(err))
			b.answerCallback(ctx, cb.ID, "Error.")
			return
		}
		b.answerCallback(ctx, cb.ID, "Deleted!")

	case cb.Data == "add":
		b.convs.AwaitURL(uid)
		b.send(ctx, uid, "🔗 Send the URL (with http/https):", nil)
	}
}

func (b *Bot) showList(ctx context.Context, uid int64, cb *callbackQuery) {
	targets, err := b.Engine.ListTargets(ctx, uid)
	if err != nil {
		b.Logger.Error("list_targets_error", zap.Int64("user_id", uid), zap.Error(err))
		b.answerCallback(ctx, cb.ID, "Error.")
		return
	}
	if len(targets) == 0 {
		b.answerCallback(ctx, cb.ID, "No monitors found.")
		return
	}
	kb := &inlineKeyboard{}
	for _, t := range targets {
		icon := "🔴"
		if t.Status == domain.StatusUp {
			icon = "🟢"
		} else if t.Status == domain.StatusUnknown {
			icon = "⚪"
		}
		kb.Buttons = append(kb.Buttons, []inlineButton{
			{Text: icon + " " + t.URL, Data: "v_" + string(t.ID)},
		})
	}
	b.edit(ctx, uid, cb.Message, "📊 Your Monitors:", kb)
}

func (b *Bot) showTarget(ctx context.Context, uid int64, cb *callbackQuery, id domain.TargetID) {
	v, err := b.Engine.ViewTarget(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		b.answerCallback(ctx, cb.ID, "Not found.")
		return
	}
	if err != nil {
		b.Logger.Error("view_target_error", zap.String("target_id", string(id)), zap.Error(err))
		b.answerCallback(ctx, cb.ID, "Error.")
		return
	}
	last := "never"
	if !v.Target.LastCheck.IsZero() {
		last = v.Target.LastCheck.Format("15:04:05")
	}
	text := fmt.Sprintf("🌐 *URL:* %s\nStatus: %s\nInterval: %d min\nLast: %s\n\nGraph: `%s`",
		v.Target.URL, v.Target.Status, v.Target.IntervalMinutes, last, v.Glyphs)
	kb := &inlineKeyboard{Buttons: [][]inlineButton{{
		{Text: "🗑 Delete", Data: "del_" + string(id)},
		{Text: "🔙 Back", Data: "list"},
	}}}
	b.edit(ctx, uid, cb.Message, text, kb)
}

// ---- outbound API helpers ----

func (b *Bot) send(ctx context.Context, chatID int64, text string, kb *inlineKeyboard) {
	payload := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	if kb != nil {
		payload["reply_markup"] = kb
	}
	if err := b.call(ctx, "sendMessage", payload, nil); err != nil {
		b.Logger.Warn("bot_send_error", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) edit(ctx context.Context, chatID int64, orig *message, text string, kb *inlineKeyboard) {
	if orig == nil {
		b.send(ctx, chatID, text, kb)
		return
	}
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": orig.MessageID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	if kb != nil {
		payload["reply_markup"] = kb
	}
	if err := b.call(ctx, "editMessageText", payload, nil); err != nil {
		b.Logger.Warn("bot_edit_error", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) answerCallback(ctx context.Context, callbackID, text string) {
	payload := map[string]any{
		"callback_query_id": callbackID,
		"text":              text,
		"show_alert":        true,
	}
	if err := b.call(ctx, "answerCallbackQuery", payload, nil); err != nil {
		b.Logger.Warn("bot_answer_error", zap.Error(err))
	}
}

func (b *Bot) call(ctx context.Context, method string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}
	url := fmt.Sprintf("%s/bot%s/%s", b.BaseURL, b.Token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", method, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s: %w", method, err)
		}
	}
	return nil
}

package inproc

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/nfrund/messenger/internal/transport"
)

// Loopback stands in for the native module on a bus: it answers every
// request with the event the native side would raise for a single local
// user. Nothing is stored between requests.
type Loopback struct {
	peer     *Peer
	userID   string
	sequence atomic.Int64
	logger   *slog.Logger
}

// reply builds the events raised for one request.
type reply func(l *Loopback, p gjson.Result) ([]raised, error)

type raised struct {
	name    string
	payload string
}

// NewLoopback creates a loopback acting as userID.
func NewLoopback(bus Bus, userID string) *Loopback {
	return &Loopback{
		peer:   NewPeer(bus),
		userID: userID,
		logger: slog.Default().With("component", "loopback"),
	}
}

var loopbackReplies = map[string]reply{
	"getUser": func(l *Loopback, p gjson.Result) ([]raised, error) {
		return l.one("VIGetUser", l.doc("VIGetUser").set("user.userId", p.Get("userId").String()))
	},
	"getUsers": func(l *Loopback, p gjson.Result) ([]raised, error) {
		var out []raised
		for _, id := range p.Get("users").Array() {
			r, err := l.one("VIGetUser", l.doc("VIGetUser").set("user.userId", id.String()))
			if err != nil {
				return nil, err
			}
			out = append(out, r...)
		}
		return out, nil
	},
	"editUser": func(l *Loopback, p gjson.Result) ([]raised, error) {
		return l.one("VIEditUser", l.doc("VIEditUser").
			set("user.userId", l.userID).
			raw("user.customData", p.Get("customData")).
			raw("user.privateCustomData", p.Get("privateCustomData")))
	},
	"setStatus": func(l *Loopback, p gjson.Result) ([]raised, error) {
		return l.one("VISetStatus", l.doc("VISetStatus").
			set("userId", l.userID).
			set("online", p.Get("online").Bool()))
	},
	"subscribe": func(l *Loopback, p gjson.Result) ([]raised, error) {
		return l.one("VISubscribe", l.doc("VISubscribe").raw("users", p.Get("users")))
	},
	"unsubscribe": func(l *Loopback, p gjson.Result) ([]raised, error) {
		return l.one("VIUnsubscribe", l.doc("VIUnsubscribe").raw("users", p.Get("users")))
	},
	"createConversation": func(l *Loopback, p gjson.Result) ([]raised, error) {
		return l.one("VICreateConversation", l.doc("VICreateConversation").
			set("conversation.uuid", uuid.NewString()).
			raw("conversation.participants", p.Get("participants")).
			raw("conversation.title", p.Get("title")).
			raw("conversation.moderators", p.Get("moderators")).
			raw("conversation.customData", p.Get("customData")).
			set("conversation.distinct", p.Get("distinct").Bool()).
			set("conversation.publicJoin", p.Get("publicJoin").Bool()).
			set("conversation.uber", p.Get("isUber").Bool()))
	},
	"getConversation": func(l *Loopback, p gjson.Result) ([]raised, error) {
		return l.one("VIGetConversation", l.doc("VIGetConversation").set("conversation.uuid", p.Get("uuid").String()))
	},
	"getConversations": func(l *Loopback, p gjson.Result) ([]raised, error) {
		var out []raised
		for _, id := range p.Get("conversations").Array() {
			r, err := l.one("VIGetConversation", l.doc("VIGetConversation").set("conversation.uuid", id.String()))
			if err != nil {
				return nil, err
			}
			out = append(out, r...)
		}
		return out, nil
	},
	"removeConversation": func(l *Loopback, p gjson.Result) ([]raised, error) {
		return l.one("VIRemoveConversation", l.doc("VIRemoveConversation").set("conversation.uuid", p.Get("uuid").String()))
	},
	"editConversation": func(l *Loopback, p gjson.Result) ([]raised, error) {
		return l.one("VIEditConversation", l.doc("VIEditConversation").
			set("conversation.uuid", p.Get("uuid").String()).
			raw("conversation.title", p.Get("title")).
			raw("conversation.publicJoin", p.Get("publicJoin")).
			raw("conversation.customData", p.Get("customData")))
	},
	"sendMessage": func(l *Loopback, p gjson.Result) ([]raised, error) {
		return l.one("VISendMessage", l.doc("VISendMessage").
			set("message.uuid", uuid.NewString()).
			set("message.conversation", p.Get("conversation").String()).
			set("message.sender", l.userID).
			set("message.text", p.Get("text").String()).
			raw("message.payload", p.Get("payload")))
	},
	"editMessage": func(l *Loopback, p gjson.Result) ([]raised, error) {
		return l.one("VIEditMessage", l.doc("VIEditMessage").
			set("message.uuid", p.Get("uuid").String()).
			set("message.conversation", p.Get("conversation").String()).
			set("message.sender", l.userID).
			set("message.text", p.Get("text").String()).
			raw("message.payload", p.Get("payload")))
	},
	"typing": func(l *Loopback, p gjson.Result) ([]raised, error) {
		return l.one("VITyping", l.doc("VITyping").
			set("conversation", p.Get("conversation").String()).
			set("userId", l.userID))
	},
	"manageNotifications": func(l *Loopback, p gjson.Result) ([]raised, error) {
		return nil, nil
	},
}

// Start subscribes the loopback to every request method until ctx is canceled.
func (l *Loopback) Start(ctx context.Context) error {
	for method, fn := range loopbackReplies {
		fn := fn
		err := l.peer.OnRequest(ctx, method, func(ctx context.Context, req transport.Request) error {
			return l.answer(ctx, req, fn)
		})
		if err != nil {
			return fmt.Errorf("loopback %s: %w", method, err)
		}
	}
	l.logger.Info("loopback native module started", "user", l.userID, "methods", len(loopbackReplies))
	return nil
}

func (l *Loopback) answer(ctx context.Context, req transport.Request, fn reply) error {
	raw, _ := req.Params.(json.RawMessage)
	events, err := fn(l, gjson.ParseBytes(raw))
	if err != nil {
		return l.peer.RaiseFor(ctx, req.ID, "VIError", map[string]any{
			"name":        "VIError",
			"code":        500,
			"description": err.Error(),
			"action":      req.Method,
		})
	}
	for _, ev := range events {
		if err := l.peer.RaiseFor(ctx, req.ID, ev.name, []byte(ev.payload)); err != nil {
			return err
		}
	}
	return nil
}

// doc accumulates sjson edits on an event payload.
type doc struct {
	json string
	err  error
}

func (l *Loopback) doc(name string) *doc {
	d := &doc{json: "{}"}
	return d.set("name", name).
		set("initiator", l.userID).
		set("sequence", l.sequence.Add(1)).
		set("timestamp", time.Now().UnixMilli())
}

func (d *doc) set(path string, v any) *doc {
	if d.err == nil {
		d.json, d.err = sjson.Set(d.json, path, v)
	}
	return d
}

// raw copies r verbatim; absent values are skipped.
func (d *doc) raw(path string, r gjson.Result) *doc {
	if d.err == nil && r.Exists() {
		d.json, d.err = sjson.SetRaw(d.json, path, r.Raw)
	}
	return d
}

func (l *Loopback) one(name string, d *doc) ([]raised, error) {
	if d.err != nil {
		return nil, fmt.Errorf("build %s: %w", name, d.err)
	}
	return []raised{{name: name, payload: d.json}}, nil
}

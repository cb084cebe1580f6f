package ui

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2/middleware/session"
)

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Flash levels.
const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// ChatMessage is one turn of the per-session chat history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Flash is a one-time notice shown on the next dashboard render.
type Flash struct {
	Level   string   `json:"level"`
	Text    string   `json:"text"`
	Details []string `json:"details,omitempty"`
}

const stateKey = "state"

// state is what the UI keeps per browser session. It is stored as JSON so the
// session store only ever holds strings.
type state struct {
	Messages []ChatMessage `json:"messages,omitempty"`
	Flashes  []Flash       `json:"flashes,omitempty"`
}

func loadState(sess *session.Session) *state {
	st := &state{}
	if raw, ok := sess.Get(stateKey).(string); ok {
		_ = json.Unmarshal([]byte(raw), st)
	}
	return st
}

func (st *state) save(sess *session.Session) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	sess.Set(stateKey, string(raw))
	return sess.Save()
}

func (st *state) flash(level, text string) {
	st.Flashes = append(st.Flashes, Flash{Level: level, Text: text})
}

func (st *state) takeFlashes() []Flash {
	f := st.Flashes
	st.Flashes = nil
	return f
}

// Package traveltypes defines session and conversation types for Wayfarer.
// This file contains the session record and the closed set of turn variants
// that make up a conversation log.
package traveltypes

import (
	"encoding/json"
	"fmt"
	"time"
)

// Turn is one entry in a session's log. The set of implementations is closed:
// UserText, BotText and BotItinerary. Callers match on it with a type switch.
type Turn interface {
	isTurn()
	// Kind returns the persisted discriminator for the variant.
	Kind() TurnKind
}

// TurnKind is the persisted discriminator of a Turn variant.
type TurnKind string

// Turn kinds.
const (
	TurnUserText     TurnKind = "user_text"
	TurnBotText      TurnKind = "bot_text"
	TurnBotItinerary TurnKind = "bot_itinerary"
)

// UserText is text the user typed or dictated.
type UserText struct {
	Text string `json:"text"`
}

// BotText is a plain assistant reply.
type BotText struct {
	Text string `json:"text"`
}

// BotItinerary is an assistant reply carrying a resolved itinerary.
type BotItinerary struct {
	Itinerary Itinerary `json:"itinerary"`
}

func (UserText) isTurn()     {}
func (BotText) isTurn()      {}
func (BotItinerary) isTurn() {}

// Kind returns TurnUserText.
func (UserText) Kind() TurnKind { return TurnUserText }

// Kind returns TurnBotText.
func (BotText) Kind() TurnKind { return TurnBotText }

// Kind returns TurnBotItinerary.
func (BotItinerary) Kind() TurnKind { return TurnBotItinerary }

// Session is a named, independently persisted conversation thread.
type Session struct {
	ID        string    `json:"id"`
	Turns     []Turn    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a copy of the session whose turn slice does not alias s.
// Turns themselves are immutable values and are shared.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	turns := make([]Turn, len(s.Turns))
	copy(turns, s.Turns)
	return &Session{ID: s.ID, Turns: turns, CreatedAt: s.CreatedAt}
}

// turnEnvelope is the persisted form of a Turn.
type turnEnvelope struct {
	Kind      TurnKind   `json:"kind"`
	Text      string     `json:"text,omitempty"`
	Itinerary *Itinerary `json:"itinerary,omitempty"`
}

type sessionJSON struct {
	ID        string         `json:"id"`
	Turns     []turnEnvelope `json:"turns"`
	CreatedAt time.Time      `json:"created_at"`
}

// MarshalJSON encodes the session with each turn wrapped in a kind envelope.
func (s Session) MarshalJSON() ([]byte, error) {
	out := sessionJSON{
		ID:        s.ID,
		Turns:     make([]turnEnvelope, 0, len(s.Turns)),
		CreatedAt: s.CreatedAt,
	}
	for i, turn := range s.Turns {
		env, err := encodeTurn(turn)
		if err != nil {
			return nil, fmt.Errorf("session %s turn %d: %w", s.ID, i, err)
		}
		out.Turns = append(out.Turns, env)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a session written by MarshalJSON.
func (s *Session) UnmarshalJSON(data []byte) error {
	var in sessionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	turns := make([]Turn, 0, len(in.Turns))
	for i, env := range in.Turns {
		turn, err := decodeTurn(env)
		if err != nil {
			return fmt.Errorf("session %s turn %d: %w", in.ID, i, err)
		}
		turns = append(turns, turn)
	}
	s.ID = in.ID
	s.Turns = turns
	s.CreatedAt = in.CreatedAt
	return nil
}

func encodeTurn(turn Turn) (turnEnvelope, error) {
	switch t := turn.(type) {
	case UserText:
		return turnEnvelope{Kind: TurnUserText, Text: t.Text}, nil
	case BotText:
		return turnEnvelope{Kind: TurnBotText, Text: t.Text}, nil
	case BotItinerary:
		itinerary := t.Itinerary
		return turnEnvelope{Kind: TurnBotItinerary, Itinerary: &itinerary}, nil
	default:
		return turnEnvelope{}, fmt.Errorf("unsupported turn type %T", turn)
	}
}

func decodeTurn(env turnEnvelope) (Turn, error) {
	switch env.Kind {
	case TurnUserText:
		return UserText{Text: env.Text}, nil
	case TurnBotText:
		return BotText{Text: env.Text}, nil
	case TurnBotItinerary:
		if env.Itinerary == nil {
			return nil, fmt.Errorf("itinerary turn without itinerary")
		}
		return BotItinerary{Itinerary: *env.Itinerary}, nil
	default:
		return nil, fmt.Errorf("unknown turn kind %q", env.Kind)
	}
}

// StoreSnapshot is the persisted state of the session store: every session in
// insertion order plus the active session pointer.
type StoreSnapshot struct {
	AllSessions     []*Session `json:"allSessions"`
	ActiveSessionID string     `json:"activeSessionId"`
}

package services

import (
	"fmt"
	"strings"

	"wayfarer/internal/logger"
	"wayfarer/pkg/traveltypes"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
)

// RenderService turns conversation turns into terminal text.
type RenderService struct {
	initialized bool
	themes      *ThemeService
	themeName   string
	theme       *Theme
	plain       bool
	width       int
	markdown    *glamour.TermRenderer
}

// NewRenderService creates a renderer using the named theme.
func NewRenderService(themes *ThemeService, themeName string) *RenderService {
	return &RenderService{
		themes:    themes,
		themeName: themeName,
		width:     80,
	}
}

// Name returns the service name "render" for registration.
func (r *RenderService) Name() string {
	return "render"
}

// Initialize picks the theme and sets up markdown rendering. Terminals
// without colour support, and the plain theme, get unstyled output.
func (r *RenderService) Initialize() error {
	if r.themes == nil {
		return fmt.Errorf("render service requires a theme service")
	}
	r.theme = r.themes.GetThemeByName(r.themeName)
	if r.theme.Name == "plain" || lipgloss.ColorProfile() == termenv.Ascii {
		r.plain = true
	}

	if !r.plain {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(r.width),
		)
		if err != nil {
			return fmt.Errorf("failed to create markdown renderer: %w", err)
		}
		r.markdown = renderer
	}

	r.initialized = true
	logger.Debug("Render service initialized", "theme", r.theme.Name, "plain", r.plain)
	return nil
}

// SetPlain forces unstyled output.
func (r *RenderService) SetPlain(plain bool) {
	r.plain = plain
}

// IsPlain reports whether output is unstyled.
func (r *RenderService) IsPlain() bool {
	return r.plain
}

func (r *RenderService) style(s lipgloss.Style, text string) string {
	if r.plain {
		return text
	}
	return s.Render(text)
}

// RenderTurn renders one turn.
func (r *RenderService) RenderTurn(turn traveltypes.Turn) string {
	switch t := turn.(type) {
	case traveltypes.UserText:
		return r.style(r.theme.User, "you") + "  " + t.Text
	case traveltypes.BotText:
		return r.renderBotText(t.Text)
	case traveltypes.BotItinerary:
		return r.RenderItinerary(t.Itinerary)
	default:
		return ""
	}
}

func (r *RenderService) renderBotText(text string) string {
	if r.plain || r.markdown == nil {
		return text
	}
	rendered, err := r.markdown.Render(text)
	if err != nil {
		logger.Debug("Markdown rendering failed, using raw text", "error", err)
		return text
	}
	return strings.Trim(rendered, "\n")
}

// RenderSession renders every turn of a session separated by blank lines.
func (r *RenderService) RenderSession(session *traveltypes.Session) string {
	if session == nil || len(session.Turns) == 0 {
		return "(no messages yet)"
	}
	parts := make([]string, 0, len(session.Turns))
	for _, turn := range session.Turns {
		parts = append(parts, r.RenderTurn(turn))
	}
	return strings.Join(parts, "\n\n")
}

// RenderItinerary renders the itinerary card: headline metrics, mode
// sequence, description, optional scores and the per-leg steps.
func (r *RenderService) RenderItinerary(it traveltypes.Itinerary) string {
	var lines []string

	headline := r.style(r.theme.Title, orDash(it.TotalTime))
	if it.TotalDistance != "" {
		headline += "  " + r.style(r.theme.Value, it.TotalDistance)
	}
	if it.IsTraffic {
		headline += "  " + r.style(r.theme.Traffic, "heavy traffic")
	}
	lines = append(lines, headline)

	if len(it.Legs) == 0 {
		lines = append(lines, r.style(r.theme.Failed, "No route could be shown on the map."))
		return r.card(lines)
	}

	modes := make([]string, 0, len(it.Legs))
	for _, leg := range it.Legs {
		modes = append(modes, r.style(r.theme.Mode(leg.Leg.Mode), string(leg.Leg.Mode)))
	}
	lines = append(lines, strings.Join(modes, " → "))

	if it.Description != "" {
		lines = append(lines, "", it.Description)
	}

	var scores []string
	if it.Efficiency != nil {
		scores = append(scores, r.field("Efficiency", *it.Efficiency))
	}
	if it.Health != nil {
		scores = append(scores, r.style(r.theme.Value, *it.Health)+" burned")
	}
	if it.Effectiveness != nil {
		scores = append(scores, r.field("Effectiveness", *it.Effectiveness))
	}
	if len(scores) > 0 {
		lines = append(lines, "", strings.Join(scores, "   "))
	}

	lines = append(lines, "")
	for i, leg := range it.Legs {
		lines = append(lines, r.renderLeg(i+1, leg))
	}
	return r.card(lines)
}

func (r *RenderService) renderLeg(n int, resolved traveltypes.ResolvedLeg) string {
	leg := resolved.Leg
	text := fmt.Sprintf("%d. %s  %s → %s", n, r.style(r.theme.Mode(leg.Mode), string(leg.Mode)), leg.Start, leg.End)

	var details []string
	if leg.TimeTaken != "" {
		details = append(details, leg.TimeTaken)
	}
	if leg.TransportName != "" {
		details = append(details, leg.TransportName)
	}
	if leg.Calories != nil && *leg.Calories != "" {
		details = append(details, *leg.Calories+" cal")
	}
	if leg.Cost != nil && *leg.Cost != "" {
		details = append(details, "cost "+*leg.Cost)
	}
	if len(details) > 0 {
		text += "  " + r.style(r.theme.Label, "("+strings.Join(details, ", ")+")")
	}
	if resolved.Failed {
		text += "  " + r.style(r.theme.Failed, "not found on map")
	}
	return text
}

func (r *RenderService) field(label, value string) string {
	return r.style(r.theme.Label, label+":") + " " + r.style(r.theme.Value, value)
}

func (r *RenderService) card(lines []string) string {
	body := strings.Join(lines, "\n")
	if r.plain {
		return body
	}
	return r.theme.Card.Render(body)
}

// RenderSessionList renders the session menu, marking the active session.
func (r *RenderService) RenderSessionList(sessions []*traveltypes.Session, activeID string) string {
	if len(sessions) == 0 {
		return "No sessions."
	}
	lines := make([]string, 0, len(sessions))
	for i, session := range sessions {
		marker := "  "
		if session.ID == activeID {
			marker = r.style(r.theme.Title, "* ")
		}
		lines = append(lines, fmt.Sprintf("%s%d. %s  %s", marker, i+1, session.ID,
			r.style(r.theme.Label, fmt.Sprintf("(%d %s)", len(session.Turns), pluralWord(len(session.Turns), "message")))))
	}
	return strings.Join(lines, "\n")
}

// Summary returns a one-line, unstyled preview of a turn, truncated to width.
func (r *RenderService) Summary(turn traveltypes.Turn, width int) string {
	var text string
	switch t := turn.(type) {
	case traveltypes.UserText:
		text = t.Text
	case traveltypes.BotText:
		text = t.Text
	case traveltypes.BotItinerary:
		text = fmt.Sprintf("%s route, %s", t.Itinerary.Expression(), orDash(t.Itinerary.TotalTime))
	}
	text = strings.Join(strings.Fields(ansi.Strip(text)), " ")
	if width > 0 {
		text = ansi.Truncate(text, width, "…")
	}
	return text
}

// Strip removes terminal styling from rendered output.
func Strip(rendered string) string {
	return ansi.Strip(rendered)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func pluralWord(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

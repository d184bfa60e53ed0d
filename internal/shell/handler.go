// Package shell provides the interactive shell and input processing for Wayfarer.
// Plain input is sent to the trip planner; backslash commands manage sessions
// and the route form.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"wayfarer/internal/logger"
	"wayfarer/internal/parser"
	"wayfarer/internal/services"
	"wayfarer/pkg/traveltypes"

	"github.com/abiosoft/ishell/v2"
	"github.com/spf13/cast"
)

// ErrExit is returned by Handle when the user asks to leave the shell.
var ErrExit = errors.New("exit requested")

const helpText = `Type a trip request to plan it, for example "from Union Station to the CN Tower by transit".

Commands:
  \new                                 start a new session
  \sessions                            list sessions
  \use <id|number>                     switch to a session
  \rename <name>                       rename the active session
  \delete [id]                         delete a session (default: active)
  \history                             show the active session
  \route[from=A, to=B, mode=M, pref=N]  plan a route (mode: walking, transit, bicycling, driving, ai)
  \voice <file>                        transcribe an audio file and send it
  \config                              show configuration
  \help                                show this help
  \exit                                leave the shell

The shell waits for each reply before reading the next line. A reply is
always added to the session it was sent from.`

// Handler executes shell input against an App and writes the rendered
// output to out.
type Handler struct {
	app *App
	out io.Writer
}

// NewHandler creates a handler for app.
func NewHandler(app *App, out io.Writer) *Handler {
	return &Handler{app: app, out: out}
}

// ProcessInput handles a line from the interactive shell. Output is
// buffered so the progress bar is gone before the reply is printed.
func (h *Handler) ProcessInput(c *ishell.Context) {
	if len(c.RawArgs) == 0 {
		return
	}
	input := strings.TrimSpace(strings.Join(c.RawArgs, " "))

	var buf bytes.Buffer
	buffered := &Handler{app: h.app, out: &buf}

	var err error
	if parser.IsCommand(input) {
		err = buffered.Handle(context.Background(), input)
	} else {
		bar := c.ProgressBar()
		bar.Indeterminate(true)
		bar.Prefix("planning ")
		bar.Start()
		err = buffered.Handle(context.Background(), input)
		bar.Stop()
	}

	c.Print(buf.String())
	switch {
	case errors.Is(err, ErrExit):
		c.Stop()
	case err != nil:
		c.Println("error:", err)
	}
	c.SetPrompt(h.Prompt())
}

// Handle executes one line of input. Only ErrExit and invalid commands are
// returned as errors; service failures are reported on the output.
func (h *Handler) Handle(ctx context.Context, input string) error {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, "%%") {
		return nil
	}
	if !parser.IsCommand(input) {
		return h.send(ctx, input)
	}

	cmd, err := parser.ParseCommand(input)
	if err != nil {
		return err
	}
	logger.Debug("Executing command", "command", cmd.String())

	switch cmd.Name {
	case "new":
		return h.newSession(ctx)
	case "sessions":
		h.println(h.app.Render.RenderSessionList(h.app.Store.Sessions(), h.app.Store.ActiveID()))
		return nil
	case "use":
		return h.useSession(ctx, cmd.Message)
	case "rename":
		return h.rename(ctx, cmd.Message)
	case "delete":
		return h.deleteSession(ctx, cmd.Message)
	case "history", "show":
		session, err := h.app.Store.Active()
		if err != nil {
			return err
		}
		h.println(h.app.Render.RenderSession(session))
		return nil
	case "route":
		return h.route(ctx, cmd)
	case "voice":
		return h.voice(ctx, cmd.Message)
	case "config":
		for _, entry := range h.app.Config.AllValues() {
			h.println(entry.Key + "=" + entry.Value)
		}
		return nil
	case "help":
		h.println(helpText)
		return nil
	case "exit", "quit":
		return ErrExit
	default:
		return fmt.Errorf("unknown command: \\%s (try \\help)", cmd.Name)
	}
}

func (h *Handler) send(ctx context.Context, text string) error {
	pending, err := h.app.Trip.SendAsync(ctx, text)
	if err != nil {
		return err
	}
	result, err := pending.Wait()
	if err != nil {
		h.println("error: " + err.Error())
		return nil
	}
	h.printReplies(result)
	return nil
}

// printReplies prints the bot turns of a result, skipping the echoed user turn.
func (h *Handler) printReplies(result *services.TripResult) {
	for _, turn := range result.Turns {
		if _, ok := turn.(traveltypes.UserText); ok {
			continue
		}
		h.println(h.app.Render.RenderTurn(turn))
	}
	if result.SessionID != h.app.Store.ActiveID() {
		h.println(fmt.Sprintf("(reply added to session %s)", result.SessionID))
	}
}

func (h *Handler) newSession(ctx context.Context) error {
	session, err := h.app.Store.Create(ctx)
	if err != nil {
		return err
	}
	h.println("Started session " + session.ID)
	return nil
}

// resolveSessionID accepts either a session id or its 1-based position in
// the session list.
func (h *Handler) resolveSessionID(arg string) string {
	arg = strings.TrimSpace(arg)
	if n, err := cast.ToIntE(arg); err == nil {
		sessions := h.app.Store.Sessions()
		if n >= 1 && n <= len(sessions) {
			return sessions[n-1].ID
		}
	}
	return arg
}

func (h *Handler) useSession(ctx context.Context, arg string) error {
	if strings.TrimSpace(arg) == "" {
		return fmt.Errorf("usage: \\use <id|number>")
	}
	id := h.resolveSessionID(arg)
	if err := h.app.Store.SetActive(ctx, id); err != nil {
		return err
	}
	session, err := h.app.Store.Active()
	if err != nil {
		return err
	}
	h.println("Switched to session " + session.ID)
	h.println(h.app.Render.RenderSession(session))
	return nil
}

func (h *Handler) rename(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("usage: \\rename <name>")
	}
	if err := h.app.Store.Rename(ctx, h.app.Store.ActiveID(), name); err != nil {
		return err
	}
	h.println("Renamed session to " + name)
	return nil
}

func (h *Handler) deleteSession(ctx context.Context, arg string) error {
	id := h.app.Store.ActiveID()
	if strings.TrimSpace(arg) != "" {
		id = h.resolveSessionID(arg)
	}
	if err := h.app.Store.Delete(ctx, id); err != nil {
		return err
	}
	h.println("Deleted session " + id)
	return nil
}

func (h *Handler) route(ctx context.Context, cmd *parser.Command) error {
	origin := cmd.Option("from", "origin")
	destination := cmd.Option("to", "destination")
	mode := traveltypes.ParseTravelMode(cmd.Option("mode"))

	pref := h.app.Config.TripPreference()
	if raw := cmd.Option("pref", "preference"); raw != "" {
		n, err := cast.ToIntE(raw)
		if err != nil {
			return fmt.Errorf("invalid preference %q: %w", raw, err)
		}
		pref = n
	}

	itinerary, err := h.app.Trip.PlanRoute(ctx, origin, destination, mode, services.WithPreference(pref))
	if err != nil {
		h.println("error: " + err.Error())
		return nil
	}
	h.println(h.app.Render.RenderItinerary(*itinerary))
	return nil
}

func (h *Handler) voice(ctx context.Context, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("usage: \\voice <file>")
	}
	audio, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read audio file: %w", err)
	}

	result, err := h.app.Trip.Transcribe(ctx, audio, services.AudioContentType(path))
	if err != nil {
		h.println("error: " + err.Error())
		return nil
	}
	if result == nil {
		h.println("No speech was recognized.")
		return nil
	}
	for _, turn := range result.Turns {
		h.println(h.app.Render.RenderTurn(turn))
	}
	return nil
}

func (h *Handler) println(text string) {
	_, _ = fmt.Fprintln(h.out, text)
}

// Prompt returns the shell prompt, naming the active session when there
// is more than one.
func (h *Handler) Prompt() string {
	if len(h.app.Store.Sessions()) > 1 {
		return fmt.Sprintf("wayfarer [%s]> ", truncateID(h.app.Store.ActiveID()))
	}
	return "wayfarer> "
}

func truncateID(id string) string {
	if len([]rune(id)) <= 24 {
		return id
	}
	return string([]rune(id)[:23]) + "…"
}

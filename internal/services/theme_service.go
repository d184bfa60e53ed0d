package services

import (
	"fmt"
	"sort"
	"strings"

	"wayfarer/internal/data/embedded"
	"wayfarer/internal/logger"
	"wayfarer/pkg/traveltypes"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// StyleConfig is one styled element of a theme file.
type StyleConfig struct {
	Foreground       interface{} `yaml:"foreground"`
	Background       interface{} `yaml:"background"`
	Bold             *bool       `yaml:"bold"`
	Italic           *bool       `yaml:"italic"`
	Underline        *bool       `yaml:"underline"`
	Border           string      `yaml:"border"`
	BorderForeground interface{} `yaml:"border_foreground"`
	Padding          []int       `yaml:"padding"`
}

// ThemeFile is the YAML layout of a theme.
type ThemeFile struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description"`
	Styles      map[string]StyleConfig `yaml:"styles"`
}

// Theme holds the lipgloss styles used to draw turns and itinerary cards.
type Theme struct {
	Name    string
	Title   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Traffic lipgloss.Style
	Failed  lipgloss.Style
	User    lipgloss.Style
	Card    lipgloss.Style
	modes   map[traveltypes.Mode]lipgloss.Style
}

// Mode returns the style for a transport mode.
func (t *Theme) Mode(mode traveltypes.Mode) lipgloss.Style {
	if style, ok := t.modes[mode]; ok {
		return style
	}
	return lipgloss.NewStyle()
}

// ThemeService loads the embedded themes.
type ThemeService struct {
	initialized bool
	themes      map[string]*Theme
}

// NewThemeService creates a new ThemeService instance with themes loaded from YAML.
func NewThemeService() *ThemeService {
	service := &ThemeService{themes: make(map[string]*Theme)}
	service.loadThemesFromYAML()
	return service
}

// Name returns the service name "theme" for registration.
func (t *ThemeService) Name() string {
	return "theme"
}

// Initialize sets up the ThemeService for operation.
func (t *ThemeService) Initialize() error {
	t.initialized = true
	return nil
}

func (t *ThemeService) loadThemesFromYAML() {
	themeFiles := map[string][]byte{
		"default": embedded.DefaultThemeData,
		"plain":   embedded.PlainThemeData,
	}
	for name, data := range themeFiles {
		theme, err := LoadTheme(data)
		if err != nil {
			logger.Error("Failed to load theme", "theme", name, "error", err)
			t.themes[name] = plainTheme(name)
			continue
		}
		t.themes[name] = theme
	}
	if _, exists := t.themes["plain"]; !exists {
		t.themes["plain"] = plainTheme("plain")
	}
}

// LoadTheme parses a theme file.
func LoadTheme(data []byte) (*Theme, error) {
	var file ThemeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse theme file: %w", err)
	}
	if file.Name == "" {
		return nil, fmt.Errorf("theme file has no name")
	}

	theme := &Theme{
		Name:    file.Name,
		Title:   createStyle(file.Styles["title"]),
		Label:   createStyle(file.Styles["label"]),
		Value:   createStyle(file.Styles["value"]),
		Traffic: createStyle(file.Styles["traffic"]),
		Failed:  createStyle(file.Styles["failed"]),
		User:    createStyle(file.Styles["user"]),
		Card:    createStyle(file.Styles["card"]),
		modes:   make(map[traveltypes.Mode]lipgloss.Style, len(traveltypes.AllModes)),
	}
	for _, mode := range traveltypes.AllModes {
		theme.modes[mode] = createStyle(file.Styles[string(mode)])
	}
	return theme, nil
}

func createStyle(config StyleConfig) lipgloss.Style {
	style := lipgloss.NewStyle()

	if color := parseColor(config.Foreground); color != nil {
		style = style.Foreground(color)
	}
	if color := parseColor(config.Background); color != nil {
		style = style.Background(color)
	}
	if config.Bold != nil && *config.Bold {
		style = style.Bold(true)
	}
	if config.Italic != nil && *config.Italic {
		style = style.Italic(true)
	}
	if config.Underline != nil && *config.Underline {
		style = style.Underline(true)
	}

	switch config.Border {
	case "":
	case "rounded":
		style = style.Border(lipgloss.RoundedBorder())
	case "thick":
		style = style.Border(lipgloss.ThickBorder())
	case "double":
		style = style.Border(lipgloss.DoubleBorder())
	default:
		style = style.Border(lipgloss.NormalBorder())
	}
	if color := parseColor(config.BorderForeground); color != nil {
		style = style.BorderForeground(color)
	}
	if len(config.Padding) > 0 {
		padding := make([]int, len(config.Padding))
		copy(padding, config.Padding)
		style = style.Padding(padding...)
	}
	return style
}

// parseColor accepts a colour string or a {light, dark} adaptive pair.
func parseColor(value interface{}) lipgloss.TerminalColor {
	switch v := value.(type) {
	case string:
		return lipgloss.Color(v)
	case int:
		return lipgloss.Color(fmt.Sprint(v))
	case map[string]interface{}:
		light, hasLight := v["light"].(string)
		dark, hasDark := v["dark"].(string)
		if hasLight && hasDark {
			return lipgloss.AdaptiveColor{Light: light, Dark: dark}
		}
		return nil
	default:
		return nil
	}
}

func plainTheme(name string) *Theme {
	theme := &Theme{
		Name:    name,
		Title:   lipgloss.NewStyle(),
		Label:   lipgloss.NewStyle(),
		Value:   lipgloss.NewStyle(),
		Traffic: lipgloss.NewStyle(),
		Failed:  lipgloss.NewStyle(),
		User:    lipgloss.NewStyle(),
		Card:    lipgloss.NewStyle(),
		modes:   map[traveltypes.Mode]lipgloss.Style{},
	}
	return theme
}

// GetAvailableThemes returns the theme names in sorted order.
func (t *ThemeService) GetAvailableThemes() []string {
	if !t.initialized {
		return []string{}
	}
	names := make([]string, 0, len(t.themes))
	for name := range t.themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetThemeByName returns the named theme, matching case-insensitively.
// Unknown names get the plain theme.
func (t *ThemeService) GetThemeByName(name string) *Theme {
	if !t.initialized {
		return plainTheme("plain")
	}
	normalized := strings.ToLower(strings.TrimSpace(name))
	if theme, exists := t.themes[normalized]; exists {
		return theme
	}
	if normalized != "" {
		logger.Debug("Invalid theme requested, using plain theme", "theme", name, "available", t.GetAvailableThemes())
	}
	return t.themes["plain"]
}

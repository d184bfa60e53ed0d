// Package main provides the Wayfarer CLI application entry point.
// Wayfarer is a terminal travel assistant that plans multi-modal trips and
// keeps the conversation history in persisted sessions.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"wayfarer/internal/logger"
	"wayfarer/internal/services"
	"wayfarer/internal/shell"
	"wayfarer/internal/version"
	"wayfarer/pkg/traveltypes"

	"github.com/abiosoft/ishell/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	logLevel       string
	logFile        string
	testMode       bool
	configFile     string
	storeBackend   string
	plannerBackend string

	audioPath string

	routeFrom string
	routeTo   string
	routeMode string
	routePref int

	detailedVersion bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wayfarer",
	Short: "Wayfarer - terminal travel assistant",
	Long: `Wayfarer plans trips across walking, transit, cycling and driving legs.
Ask for a route in plain language or use the route form; every conversation is kept in a session.`,
	SilenceUsage: true,
	RunE:         runShell,
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start the interactive shell",
	RunE:  runShell,
}

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Send one message to the active session and print the reply",
	Long: `Send one message to the active session and print the reply.
With --audio the message is transcribed from a recorded audio file instead.`,
	RunE: runAsk,
}

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Plan a route from the route form without recording it in a session",
	RunE:  runRoute,
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored sessions",
	RunE:  runSessions,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, _ []string) {
		if detailedVersion {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetDetailedVersion())
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), version.GetFormattedVersion())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&logLevel, "log-level", "", "Set log level (debug|info|warn|error) [default: info]")
	flags.StringVar(&logFile, "log-file", "", "Write logs to file instead of stderr")
	flags.BoolVar(&testMode, "test-mode", false, "Run in deterministic test mode")
	flags.StringVar(&configFile, "config", "", "Config file [default: ~/.config/wayfarer/config.yaml]")
	flags.StringVar(&storeBackend, "store", "", "Session storage backend (file|sqlite|redis|memory)")
	flags.StringVar(&plannerBackend, "planner", "", "Planning backend (http|openai|anthropic|gemini)")

	for _, name := range []string{"log-level", "log-file", "test-mode", "config", "store", "planner"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			fmt.Fprintf(os.Stderr, "Error binding %s flag: %v\n", name, err)
			os.Exit(1)
		}
	}

	askCmd.Flags().StringVar(&audioPath, "audio", "", "Transcribe this audio file and send the transcript")

	routeCmd.Flags().StringVar(&routeFrom, "from", "", "Origin")
	routeCmd.Flags().StringVar(&routeTo, "to", "", "Destination")
	routeCmd.Flags().StringVar(&routeMode, "mode", "ai", "Travel mode (walking|transit|bicycling|driving|ai)")
	routeCmd.Flags().IntVar(&routePref, "pref", -1, "Route preference for ai mode [default: configured preference]")

	versionCmd.Flags().BoolVar(&detailedVersion, "detailed", false, "Show build details")

	rootCmd.AddCommand(shellCmd, askCmd, routeCmd, sessionsCmd, versionCmd)

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	if err := logger.Configure(viper.GetString("log-level"), viper.GetString("log-file"), viper.GetBool("test-mode")); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
		os.Exit(1)
	}
}

// openApp builds the application from the config file and the flags that
// were set on the command line.
func openApp(cmd *cobra.Command) (*shell.App, error) {
	isTest := viper.GetBool("test-mode")
	fileValues, err := loadConfigFile(viper.GetString("config"), isTest)
	if err != nil {
		return nil, err
	}
	return shell.NewApp(cmd.Context(), shell.Options{
		TestMode:   isTest,
		FileValues: fileValues,
		FlagValues: flagValues(cmd),
	})
}

// flagValues maps explicitly set flags onto configuration keys. Unset flags
// leave lower layers in effect.
func flagValues(cmd *cobra.Command) map[string]string {
	values := make(map[string]string)
	if cmd.Flags().Changed("store") {
		values[services.KeyStoreBackend] = viper.GetString("store")
	}
	if cmd.Flags().Changed("planner") {
		values[services.KeyPlannerBackend] = viper.GetString("planner")
	}
	return values
}

// loadConfigFile reads config.yaml through viper and flattens it into
// configuration keys. The default file is optional and skipped in test mode;
// an explicit path must exist.
func loadConfigFile(path string, testMode bool) (map[string]string, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		if testMode {
			return nil, nil
		}
		dir, err := defaultConfigDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	logger.Debug("Config file loaded", "path", v.ConfigFileUsed())

	values := make(map[string]string)
	for _, key := range v.AllKeys() {
		values[configKey(key)] = v.GetString(key)
	}
	return values, nil
}

// configKey maps a dotted config.yaml key to a configuration key.
// Credentials keep their conventional variable names wherever they are nested.
func configKey(path string) string {
	segments := strings.Split(path, ".")
	last := strings.ToUpper(segments[len(segments)-1])
	if strings.HasSuffix(last, "_API_KEY") {
		return last
	}
	return services.ConfigKeyFromPath(path)
}

func defaultConfigDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "wayfarer"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", "wayfarer"), nil
}

func runShell(cmd *cobra.Command, _ []string) error {
	logger.Info("Starting Wayfarer", "version", version.Version)

	app, err := openApp(cmd)
	if err != nil {
		logger.Error("Failed to initialize services", "error", err)
		return err
	}
	defer app.Close()

	handler := shell.NewHandler(app, cmd.OutOrStdout())

	sh := ishell.New()
	sh.SetPrompt(handler.Prompt())

	// Built-in commands would shadow trip requests starting with these words.
	sh.DeleteCmd("exit")
	sh.DeleteCmd("help")
	sh.DeleteCmd("clear")

	sh.Println(version.GetFormattedVersion() + " - terminal travel assistant")
	sh.Println("Type a trip request, '\\help' for commands or '\\exit' to quit.")

	sh.NotFound(handler.ProcessInput)
	sh.Run()
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" && audioPath == "" {
		return fmt.Errorf("a message or --audio file is required")
	}

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	handler := shell.NewHandler(app, cmd.OutOrStdout())
	if audioPath != "" {
		return handler.Handle(cmd.Context(), "\\voice "+audioPath)
	}
	return handler.Handle(cmd.Context(), text)
}

func runRoute(cmd *cobra.Command, _ []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	pref := routePref
	if !cmd.Flags().Changed("pref") {
		pref = app.Config.TripPreference()
	}
	itinerary, err := app.Trip.PlanRoute(cmd.Context(), routeFrom, routeTo,
		traveltypes.ParseTravelMode(routeMode), services.WithPreference(pref))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), app.Render.RenderItinerary(*itinerary))
	return nil
}

func runSessions(cmd *cobra.Command, _ []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	fmt.Fprintln(cmd.OutOrStdout(), app.Render.RenderSessionList(app.Store.Sessions(), app.Store.ActiveID()))
	return nil
}

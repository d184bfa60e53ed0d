package shell

import (
	"context"
	"errors"

	wayfarercontext "wayfarer/internal/context"
	"wayfarer/internal/logger"
	"wayfarer/internal/services"
	"wayfarer/internal/storage"
	"wayfarer/pkg/traveltypes"
)

// Options controls how NewApp wires the services. Provider fields replace
// the configured clients; tests use them to inject mocks.
type Options struct {
	TestMode   bool
	FileValues map[string]string
	FlagValues map[string]string
	// ConfigDir and WorkingDir replace the user config and working
	// directories; they only apply in test mode.
	ConfigDir  string
	WorkingDir string

	KV          traveltypes.KV
	Planner     traveltypes.Planner
	Directions  traveltypes.DirectionsProvider
	Transcriber traveltypes.Transcriber
}

// App holds the initialized services of a running Wayfarer.
type App struct {
	Context  *wayfarercontext.TravelContext
	Registry *services.Registry
	Config   *services.ConfigurationService
	Queue    *services.QueueService
	Store    *services.SessionStoreService
	Trip     *services.TripService
	Render   *services.RenderService
	Planner  traveltypes.Planner
	kv       traveltypes.KV
}

// NewApp loads configuration, opens storage, builds the provider clients and
// restores the persisted sessions.
func NewApp(ctx context.Context, opts Options) (*App, error) {
	travelCtx := wayfarercontext.New()
	if opts.TestMode {
		travelCtx = wayfarercontext.NewTestContext()
		if opts.ConfigDir != "" {
			travelCtx.Config().SetTestConfigDir(opts.ConfigDir)
		}
		if opts.WorkingDir != "" {
			travelCtx.Config().SetTestWorkingDir(opts.WorkingDir)
		}
	}

	registry := services.NewRegistry()
	config := services.NewConfigurationService(travelCtx)
	config.SetFileValues(opts.FileValues)
	config.SetFlagValues(opts.FlagValues)
	if err := config.Initialize(); err != nil {
		return nil, err
	}

	kv := opts.KV
	if kv == nil {
		storeOpts, err := config.StorageOptions()
		if err != nil {
			return nil, err
		}
		kv, err = storage.Open(ctx, storeOpts)
		switch {
		case errors.Is(err, storage.ErrUnknownBackend):
			return nil, err
		case err != nil:
			logger.Warn("Storage unavailable, sessions will not be saved", "backend", storeOpts.Backend, "error", err)
			kv = storage.NewMemoryKV()
		default:
			logger.Debug("Storage opened", "backend", storeOpts.Backend)
		}
	}

	http := services.NewHTTPRequestService()
	queue := services.NewQueueService()
	store := services.NewSessionStoreService(travelCtx, kv, queue)
	factory := services.NewPlannerFactoryService(config, http)
	themes := services.NewThemeService()
	render := services.NewRenderService(themes, config.Theme())

	app := &App{
		Context:  travelCtx,
		Registry: registry,
		Config:   config,
		Queue:    queue,
		Store:    store,
		Render:   render,
		kv:       kv,
	}

	for _, service := range []traveltypes.Service{config, http, queue, store, factory, themes, render} {
		if err := registry.RegisterService(service); err != nil {
			app.Close()
			return nil, err
		}
	}
	if err := registry.InitializeAll(); err != nil {
		app.Close()
		return nil, err
	}
	http.SetTimeout(config.HTTPTimeout())

	planner := opts.Planner
	if planner == nil {
		var err error
		if planner, err = factory.Default(); err != nil {
			app.Close()
			return nil, err
		}
	}
	app.Planner = planner

	directions := opts.Directions
	if directions == nil {
		key, err := config.GetAPIKey(services.KeyGoogleMapsAPIKey)
		if err != nil {
			logger.Warn("Routes cannot be drawn without a maps key", "error", err)
		}
		directions = services.NewGoogleDirectionsClient(key, config.DirectionsURL(), http)
	}

	if size, ttl := config.ResolverCache(); size > 0 {
		directions = services.NewCachingDirections(directions, size, ttl)
	}

	transcriber := opts.Transcriber
	if transcriber == nil {
		key, _ := config.GetAPIKey(services.KeyDeepgramAPIKey)
		transcriber = services.NewDeepgramTranscriber(key, config.TranscriptionURL(), http)
	}

	resolver := services.NewItineraryResolverService(directions,
		services.WithFailurePolicy(config.FailurePolicy()),
		services.WithConcurrency(config.ResolverConcurrency()),
		services.WithRateLimit(config.ResolverQPS(), config.ResolverConcurrency()),
	)
	trip := services.NewTripService(store, planner, resolver,
		services.WithTranscriber(transcriber),
		services.WithPartialFailureNotice(config.PartialFailureNotice()),
	)
	app.Trip = trip

	for _, service := range []traveltypes.Service{resolver, trip} {
		if err := registry.RegisterService(service); err != nil {
			app.Close()
			return nil, err
		}
		if err := service.Initialize(); err != nil {
			app.Close()
			return nil, err
		}
	}

	if err := store.Load(ctx); err != nil {
		app.Close()
		return nil, err
	}

	logger.Debug("Services initialized", "services", registry.ServiceNames(), "planner", planner.Backend())
	return app, nil
}

// Close stops the writer queue and releases the storage backend.
func (a *App) Close() {
	if a.Queue != nil {
		a.Queue.Close()
	}
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			logger.Warn("Failed to close storage", "error", err)
		}
	}
}

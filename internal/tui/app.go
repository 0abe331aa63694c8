package tui

import (
	"context"
	"sync"

	"github.com/ajramos/mailrag/internal/config"
	"github.com/ajramos/mailrag/internal/render"
	"github.com/ajramos/mailrag/internal/services"
	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
	"go.uber.org/zap"
)

// Deps are the services the terminal UI drives
type Deps struct {
	Session   *services.InboxSession
	Identity  services.IdentityService
	Composer  services.CompositionService
	Generator services.GenerationService
	Exporter  services.ExportService
	Logger    *zap.Logger
}

// App encapsulates the terminal UI over an inbox session
type App struct {
	*tview.Application
	Pages  *tview.Pages
	Config *config.Config
	Keys   config.KeyBindings

	session   *services.InboxSession
	identity  services.IdentityService
	composer  services.CompositionService
	generator services.GenerationService
	exporter  services.ExportService
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.RWMutex

	views    map[string]tview.Primitive
	status   *StatusBar
	renderer *render.EmailRenderer
	theme    *config.ColorsConfig
	actions  map[rune]KeyAction

	// UI-goroutine state
	ids          []string
	currentID    string
	screenWidth  int
	screenHeight int
	searchActive bool

	userID int64
}

// NewApp creates the terminal application
func NewApp(cfg *config.Config, deps Deps) *App {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		Application:  tview.NewApplication(),
		Pages:        tview.NewPages(),
		Config:       cfg,
		Keys:         cfg.Keys,
		session:      deps.Session,
		identity:     deps.Identity,
		composer:     deps.Composer,
		generator:    deps.Generator,
		exporter:     deps.Exporter,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
		views:        make(map[string]tview.Primitive),
		renderer:     render.NewEmailRenderer(),
		screenWidth:  80,
		screenHeight: 25,
	}

	app.loadTheme()
	app.initComponents()
	app.bindKeys()

	app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		w, h := screen.Size()
		if w != app.screenWidth || h != app.screenHeight {
			app.screenWidth, app.screenHeight = w, h
			app.refreshList()
		}
		return false
	})

	return app
}

// loadTheme resolves the configured theme, falling back to the built-in one
func (a *App) loadTheme() {
	theme, err := config.NewThemeLoader(a.Config.ThemeDir).Load(a.Config.Theme)
	if err != nil {
		a.logger.Warn("tui: theme load failed, using defaults", zap.String("theme", a.Config.Theme), zap.Error(err))
		theme = config.DefaultColors()
	}
	a.theme = theme
	a.renderer.UpdateFromConfig(theme)
}

// Run starts the UI and blocks until it exits. Outstanding remote syncs are
// drained before returning.
func (a *App) Run() error {
	a.SetRoot(a.Pages, true)
	a.status.SetBaseline(a.statusBaseline)
	go a.start()

	err := a.Application.Run()
	a.cancel()
	a.status.Stop()
	if a.session != nil {
		a.session.Wait()
	}
	return err
}

// start resolves the backend identity, then loads the first page
func (a *App) start() {
	if a.session == nil {
		a.status.ShowError("Inbox not configured")
		return
	}
	if a.identity == nil {
		a.status.ShowError("No backend identity configured")
		return
	}
	a.status.ShowProgress("Resolving account...")
	userID, err := a.identity.Resolve(a.ctx)
	if err != nil {
		a.logger.Warn("tui: identity resolution failed", zap.Error(err))
		a.status.ClearProgress()
		a.status.HandleError(err, "Could not resolve your EmailRAG account")
		return
	}
	a.mu.Lock()
	a.userID = userID
	a.mu.Unlock()
	a.reloadMessages()
}

// currentUser returns the resolved backend user id
func (a *App) currentUser() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.userID
}

// Stop cancels in-flight work and stops the UI
func (a *App) Stop() {
	a.cancel()
	a.Application.Stop()
}

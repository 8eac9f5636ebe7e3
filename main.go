package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"forge/internal/agent"
	"forge/internal/config"
	"forge/internal/credentials"
	"forge/internal/db"
	"forge/internal/llm"
	"forge/internal/logging"
	"forge/internal/models"
	"forge/internal/tools"
	"forge/internal/ui"
	"forge/internal/vfs"
)

const workspaceName = "default"

var (
	flagModel string
	flagFresh bool
	flagSave  bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "forge",
		Short:         "Terminal code editor with an AI assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runTUI,
	}
	root.PersistentFlags().StringVar(&flagModel, "model", "", "Model id (overrides the saved selection)")
	root.PersistentFlags().BoolVar(&flagFresh, "fresh", false, "Start from the sample project instead of the saved workspace")
	root.AddCommand(newAskCmd())
	return root
}

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Run one assistant turn against the workspace and print the transcript",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}
	cmd.Flags().BoolVar(&flagSave, "save", false, "Persist workspace changes made by the assistant")
	return cmd
}

// app is everything both commands share.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	conn  *sql.DB
	dbErr error
	creds *credentials.Store
	store *vfs.Store
	agent *agent.Orchestrator
}

func setup(logOutput string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logOutput == "" {
		logOutput = cfg.LogFile
	}
	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, OutputPath: logOutput}); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	log := logging.L()

	a := &app{cfg: cfg, log: log}
	a.conn, a.dbErr = db.Open(cfg.DBPath)
	if a.dbErr != nil {
		log.Warn("history database unavailable", zap.String("path", cfg.DBPath), zap.Error(a.dbErr))
	} else {
		a.creds, err = credentials.NewStore(a.conn, cfg.DefaultAPIKey)
		if err != nil {
			return nil, err
		}
	}

	a.store = vfs.NewStore(a.loadWorkspace())
	registry := tools.NewDefaultRegistry(a.store)

	var provider credentials.Provider = credentials.Static{Key: cfg.DefaultAPIKey, Shared: true}
	if a.creds != nil {
		provider = a.creds
	}

	a.agent = agent.New(agent.Deps{
		Completer:   llm.NewOpenAIClient(cfg.BaseURL, nil),
		Credentials: provider,
		Registry:    registry,
		Logger:      log,
	}, agent.Config{
		MaxConsecutiveToolCalls: cfg.MaxToolCalls,
		Temperature:             cfg.Temperature,
		Model:                   a.modelID(),
	})
	a.agent.RegisterTools()
	return a, nil
}

// modelID picks the flag, then the saved selection, then the configured model.
func (a *app) modelID() string {
	if flagModel != "" {
		return flagModel
	}
	if a.creds != nil {
		id, err := a.creds.ModelID()
		if err != nil {
			a.log.Warn("read saved model", zap.Error(err))
		} else if id != "" {
			return id
		}
	}
	if a.cfg.Model != "" {
		return a.cfg.Model
	}
	return models.AvailableModels[0].ID
}

func (a *app) loadWorkspace() *vfs.Tree {
	if flagFresh || a.conn == nil {
		return vfs.NewSeedTree()
	}
	raw, err := db.LoadWorkspace(a.conn, workspaceName)
	if err != nil {
		a.log.Warn("load workspace", zap.Error(err))
		return vfs.NewSeedTree()
	}
	if raw == nil {
		return vfs.NewSeedTree()
	}
	t := vfs.NewTree()
	if err := json.Unmarshal(raw, t); err != nil {
		a.log.Warn("decode workspace", zap.Error(err))
		return vfs.NewSeedTree()
	}
	return t
}

func (a *app) saveWorkspace() {
	if a.conn == nil {
		return
	}
	raw, err := json.Marshal(a.store.Tree())
	if err != nil {
		a.log.Error("encode workspace", zap.Error(err))
		return
	}
	if err := db.SaveWorkspace(a.conn, workspaceName, raw, time.Now().Unix()); err != nil {
		a.log.Error("save workspace", zap.Error(err))
	}
}

func (a *app) close() {
	if a.conn != nil {
		_ = a.conn.Close()
	}
	_ = logging.Sync()
}

func runTUI(cmd *cobra.Command, _ []string) error {
	a, err := setup("")
	if err != nil {
		return err
	}
	defer a.close()

	a.log.Info("starting", zap.String("model", a.agent.Model()), zap.String("db", a.cfg.DBPath))
	p := ui.NewProgram(ui.Deps{
		Store:       a.store,
		Agent:       a.agent,
		Credentials: a.creds,
		DB:          a.conn,
		DBErr:       a.dbErr,
		Logger:      a.log,
	})
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	a.saveWorkspace()
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := setup("stderr")
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if _, err := a.agent.SendMessage(ctx, strings.Join(args, " ")); err != nil {
		if errors.Is(err, agent.ErrMissingCredential) {
			return fmt.Errorf("%w: set FORGE_DEFAULT_API_KEY or save a key from the TUI", err)
		}
		return err
	}

	out := cmd.OutOrStdout()
	for _, msg := range a.agent.Conversation().Snapshot() {
		if msg.Role == models.RoleSystem {
			continue
		}
		fmt.Fprintf(out, "[%s]\n%s\n\n", msg.Role, msg.Content)
	}
	if flagSave {
		a.saveWorkspace()
	}
	return nil
}

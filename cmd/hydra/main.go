// Command hydra is the terminal entrypoint: it wires the Session Manager,
// Manifest Store, global stats walker and Backend actor together, then
// either hands off to the bubbletea UI App or runs a headless subcommand.
// Grounded on the teacher's main.go (checkDeps/runTUI/switch-on-argv), with
// the argv switch replaced by spf13/cobra the way the rest of the
// retrieval pack's CLIs are structured.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/rencryptofish/hydra/internal/backend"
	"github.com/rencryptofish/hydra/internal/config"
	"github.com/rencryptofish/hydra/internal/logengine"
	"github.com/rencryptofish/hydra/internal/manifest"
	"github.com/rencryptofish/hydra/internal/model"
	"github.com/rencryptofish/hydra/internal/tmuxmgr"
	"github.com/rencryptofish/hydra/internal/ui"
)

func main() {
	checkDeps()

	root := &cobra.Command{
		Use:   "hydra",
		Short: "Run parallel AI coding agents in tmux, watched from one terminal UI.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI()
		},
	}

	root.AddCommand(newAgentCmd(), killCmd(), lsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "hydra:", err)
		os.Exit(1)
	}
}

// checkDeps mirrors the teacher's hard dependency check, generalized to
// the three agent CLIs Hydra can drive instead of one.
func checkDeps() {
	var missing []string
	if _, err := exec.LookPath("tmux"); err != nil {
		missing = append(missing, "tmux")
	}
	found := false
	for _, bin := range []string{"claude", "codex", "gemini"} {
		if _, err := exec.LookPath(bin); err == nil {
			found = true
			break
		}
	}
	if !found {
		missing = append(missing, "at least one of: claude, codex, gemini")
	}
	if len(missing) > 0 {
		fmt.Fprintln(os.Stderr, "hydra requires:")
		for _, m := range missing {
			fmt.Fprintln(os.Stderr, "  "+m)
		}
		os.Exit(1)
	}
}

// wiring holds everything runTUI/headless commands need torn down cleanly.
type wiring struct {
	mgr     tmuxmgr.SessionManager
	store   *manifest.Store
	walker  *logengine.GlobalStatsWalker
	sched   *logengine.Scheduler
	backend *backend.Backend
	baseDir string
	workDir string
	closers []func() error
}

func wireUp() (*wiring, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getwd: %w", err)
	}
	baseDir := config.HomeDir()
	projectID := config.ProjectID(workDir)

	log, closeLog, err := config.NewLogger(baseDir, projectID)
	if err != nil {
		return nil, err
	}

	var mgr tmuxmgr.SessionManager
	var notifyCh <-chan tmuxmgr.Notification
	carrier := config.TmuxSessionName(projectID, config.CurrentUser())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	conn, err := tmuxmgr.Connect(ctx, carrier)
	cancel()
	if err != nil {
		log.Warn("control-mode connect failed, falling back to subprocess manager", "err", err)
		mgr = tmuxmgr.NewSubprocessManager()
	} else {
		cm := tmuxmgr.NewControlManager(conn)
		ch, unsub := conn.Subscribe()
		notifyCh = ch
		mgr = cm
		_ = unsub // the Backend owns this subscription for its lifetime
	}

	dir, err := config.HydraDir(baseDir, projectID)
	if err != nil {
		return nil, err
	}
	store, err := manifest.Open(dir)
	if err != nil {
		return nil, err
	}

	walker := logengine.NewGlobalStatsWalker(log)
	sched := logengine.NewScheduler(walker, baseDir)

	watcher, err := logengine.NewWatcher(log,
		filepath.Join(baseDir, ".claude", "projects"),
		filepath.Join(baseDir, ".codex", "sessions"),
		filepath.Join(baseDir, ".gemini", "tmp"),
	)
	if err != nil {
		log.Warn("fsnotify watcher unavailable, relying on poll cadence", "err", err)
		watcher = nil
	}

	b := backend.New(mgr, notifyCh, store, walker, watcher, workDir, baseDir, log)

	closers := []func() error{func() error { closeLog(); return nil }, mgr.Close}
	if watcher != nil {
		closers = append(closers, watcher.Close)
	}

	return &wiring{
		mgr: mgr, store: store, walker: walker, sched: sched, backend: b,
		baseDir: baseDir, workDir: workDir,
		closers: closers,
	}, nil
}

func (w *wiring) shutdown() {
	w.sched.Stop()
	for _, c := range w.closers {
		_ = c()
	}
}

func runTUI() error {
	w, err := wireUp()
	if err != nil {
		return err
	}
	defer w.shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.backend.Run(ctx)

	m := ui.New(w.backend.Commands())
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	go pumpBackend(p, w.backend)

	_, err = p.Run()
	return err
}

// pumpBackend forwards the Backend's channel values into the bubbletea
// program as messages, since tea.Program only drives its Update loop from
// Send/user input, never from arbitrary goroutines reading a channel.
func pumpBackend(p *tea.Program, b *backend.Backend) {
	for {
		select {
		case snap, ok := <-b.Snapshots():
			if !ok {
				return
			}
			p.Send(ui.SnapshotMsg(snap))
		case pv, ok := <-b.Previews():
			if !ok {
				return
			}
			p.Send(ui.PreviewMsg(pv))
		}
	}
}

func newAgentCmd() *cobra.Command {
	var agentFlag string
	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create a new agent session headlessly.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := parseAgentKind(agentFlag)
			if err != nil {
				return err
			}
			w, err := wireUp()
			if err != nil {
				return err
			}
			defer w.shutdown()

			records, err := w.store.Load(context.Background())
			if err != nil {
				return err
			}
			existing := make(map[string]struct{}, len(records))
			for _, r := range records {
				existing[r.Name] = struct{}{}
			}
			name := ""
			if len(args) == 1 {
				name = args[0]
			} else {
				name = model.GenerateName(existing)
			}

			projectID := config.ProjectID(w.workDir)
			tmuxName := "hydra-" + projectID + "-" + name
			ctx := context.Background()
			if err := w.mgr.CreateSession(ctx, tmuxName, w.workDir, agent.SpawnCommand()); err != nil {
				return fmt.Errorf("create session: %w", err)
			}
			return w.store.Put(ctx, model.SessionRecord{Name: name, Agent: agent, TmuxName: tmuxName})
		},
	}
	cmd.Flags().StringVar(&agentFlag, "agent", "claude", "agent kind: claude, codex, gemini")
	return cmd
}

func killCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kill <name>",
		Short: "Kill an agent session and remove it from the manifest.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := wireUp()
			if err != nil {
				return err
			}
			defer w.shutdown()

			ctx := context.Background()
			records, err := w.store.Load(ctx)
			if err != nil {
				return err
			}
			for _, r := range records {
				if r.Name == args[0] {
					if err := w.mgr.KillSession(ctx, r.TmuxName); err != nil {
						fmt.Fprintln(os.Stderr, "hydra: kill tmux session:", err)
					}
					return w.store.Delete(ctx, args[0])
				}
			}
			return fmt.Errorf("no session named %q", args[0])
		},
	}
}

func lsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List known agent sessions.",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := wireUp()
			if err != nil {
				return err
			}
			defer w.shutdown()

			records, err := w.store.Load(context.Background())
			if err != nil {
				return err
			}
			for _, r := range records {
				fmt.Printf("%-20s %-8s %s\n", r.Name, r.Agent, r.TmuxName)
			}
			return nil
		},
	}
}

func parseAgentKind(s string) (model.AgentKind, error) {
	switch s {
	case "claude":
		return model.AgentClaude, nil
	case "codex":
		return model.AgentCodex, nil
	case "gemini":
		return model.AgentGemini, nil
	default:
		return "", fmt.Errorf("unknown agent kind %q (want claude, codex or gemini)", s)
	}
}

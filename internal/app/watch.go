package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/vk/bndl/internal/ctxlog"
	"github.com/vk/bndl/internal/executor"
	"github.com/vk/bndl/internal/watcher"
)

// watch runs one full build and then rebuilds changed files until the
// process is interrupted.
func (a *App) watch(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	p, err := a.loadProject(ctx)
	if err != nil {
		return err
	}

	logger.Info("🚀 Starting initial build...", "input", a.cfg.Input, "out_dir", p.outDir)
	if err := a.compileAndBundle(ctx, p, a.cfg.Clean, !a.cfg.NoBundle); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	status := &buildStatus{}
	status.record(a.cfg.Input, nil)
	if a.cfg.HealthcheckPort > 0 {
		srv := a.startHealthcheckServer(ctx, a.cfg.HealthcheckPort, status)
		defer a.closeHealthcheckServer(ctx, srv)
	}

	var opts []watcher.Option
	if a.settings.NotifyURL != "" {
		n, err := watcher.NewSocketNotifier(a.settings.NotifyURL)
		if err != nil {
			return fmt.Errorf("invalid notify URL: %w", err)
		}
		defer n.Close()
		if err := n.Connect(ctx); err != nil {
			logger.Warn("Notifier unreachable, retrying on the next rebuild.", "url", a.settings.NotifyURL, "error", err)
		}
		opts = append(opts, watcher.WithNotifier(n))
	}
	if a.settings.Exec != "" {
		sup := watcher.NewSupervisor(a.settings.Exec, a.outW, a.errW)
		if err := sup.Start(ctx); err != nil {
			return fmt.Errorf("failed to start %q: %w", a.settings.Exec, err)
		}
		// Runs on interrupt too: the child group is gone before we return.
		defer func() {
			if err := sup.Shutdown(); err != nil && !errors.Is(err, watcher.ErrSupervisorStopped) {
				logger.Error("Failed to stop process.", "error", err)
			}
		}()
		opts = append(opts, watcher.WithRestarter(sup))
	}

	w := watcher.New(a.abs(a.cfg.Input), a.watchFilter(p), a.rebuilder(a.newExecutor(p), status), opts...)
	if err := w.Run(ctx); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	logger.Info("👋 Watch stopped.")
	return nil
}

// watchFilter ignores every directory the build writes to, so the build's
// own output never triggers another rebuild.
func (a *App) watchFilter(p *project) watcher.Filter {
	dirs := []string{a.abs(p.outDir)}
	if dir, ok := p.declarationDir(); ok {
		dirs = append(dirs, a.abs(dir))
	}
	return watcher.Filter{OutDirs: dirs, Ignore: a.settings.Ignore}
}

// rebuilder compiles a single changed path. Bundling and cleaning are
// never part of a rebuild.
func (a *App) rebuilder(ex *executor.Executor, status *buildStatus) watcher.RebuildFunc {
	return func(ctx context.Context, path string) error {
		res, err := ex.Run(ctx, path)
		if err == nil {
			a.logResult(ctx, res)
			err = resultError(res)
		}
		status.record(path, err)
		return err
	}
}

func resultError(res *executor.Result) error {
	if res.OK() {
		return nil
	}
	errs := make([]error, 0, len(res.Failed)+1)
	for _, f := range res.Failed {
		errs = append(errs, f)
	}
	if res.DeclarationErr != nil {
		errs = append(errs, res.DeclarationErr)
	}
	return errors.Join(errs...)
}

func (a *App) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(a.cwd, path)
}

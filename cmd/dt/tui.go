package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/dealtree/pkg/debug"
	"github.com/vanderheijden86/dealtree/pkg/taxonomy"
	"github.com/vanderheijden86/dealtree/pkg/ui"
	"github.com/vanderheijden86/dealtree/pkg/watcher"
)

func (a *app) editorOptions() ui.EditorOptions {
	return ui.EditorOptions{
		StartPane:  a.cfg.UI.StartPane,
		ChipWidth:  a.cfg.UI.ChipWidth,
		ShowCounts: a.cfg.UI.ShowCounts,
	}
}

func (a *app) editProfile(ctx context.Context, id string) error {
	e, err := a.svc.OpenProfileEditor(ctx, a.sess, id)
	if err != nil {
		return err
	}
	for _, u := range e.Unmatched() {
		fmt.Fprintf(a.stderr, "Warning: %s %q is not in the catalog and will be dropped on save%s\n", u.Field, u.Name, suggestionHint(u.Suggestions))
	}
	return a.runEditor(ctx, func(opts ui.EditorOptions) tea.Model {
		return ui.NewProfileEditorModel(ctx, e, ui.ThemeFor(a.cfg.UI.Theme), opts)
	})
}

func (a *app) editDeal(ctx context.Context, id string) error {
	e, err := a.svc.OpenDealEditor(ctx, a.sess, id)
	if err != nil {
		return err
	}
	return a.runEditor(ctx, func(opts ui.EditorOptions) tea.Model {
		return ui.NewDealEditorModel(ctx, e, ui.ThemeFor(a.cfg.UI.Theme), opts)
	})
}

// runEditor starts the catalog watcher (when catalog files are configured)
// and runs the editor until the user quits.
func (a *app) runEditor(ctx context.Context, build func(ui.EditorOptions) tea.Model) error {
	opts := a.editorOptions()

	w, err := a.startWatcher(ctx)
	if err != nil {
		fmt.Fprintf(a.stderr, "Warning: catalog watching disabled: %v\n", err)
	}
	if w != nil {
		defer w.Stop()
		opts.Changes = w.Changed()
	}
	return runTUIProgram(build(opts))
}

func (a *app) startWatcher(ctx context.Context) (*watcher.Watcher, error) {
	if !a.cfg.Watch.IsEnabled() {
		return nil, nil
	}
	w, err := watcher.New(
		[]string{a.cfg.Catalogs.Geography, a.cfg.Catalogs.Industry},
		watcher.WithDebounceDuration(time.Duration(a.cfg.Watch.DebounceMs)*time.Millisecond),
		watcher.WithForcePoll(a.cfg.Watch.ForcePoll),
		watcher.WithOnChange(a.reloadCatalog),
		watcher.WithOnError(func(path string, err error) {
			debug.Log("watcher error on %s: %v", path, err)
		}),
	)
	if errors.Is(err, watcher.ErrNoPaths) {
		// Embedded catalogs only; nothing to watch.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

type catalogReloader struct {
	path   string
	reload func() error
}

// reloadCatalog re-reads whichever file provider owns path. It runs before
// the change reaches the editor, so the editor's rebind sees fresh data.
func (a *app) reloadCatalog(path string) {
	var reloaders []catalogReloader
	if g, ok := a.geo.(*taxonomy.FileGeography); ok {
		reloaders = append(reloaders, catalogReloader{g.Path(), g.Reload})
	}
	if i, ok := a.ind.(*taxonomy.FileIndustry); ok {
		reloaders = append(reloaders, catalogReloader{i.Path(), i.Reload})
	}
	for _, r := range reloaders {
		abs, err := filepath.Abs(r.path)
		if err != nil || abs != path {
			continue
		}
		if err := r.reload(); err != nil {
			debug.Log("reload %s: %v (keeping previous catalog)", path, err)
		}
	}
}

func runTUIProgram(m tea.Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())

	runDone := make(chan struct{})
	defer close(runDone)

	// Optional auto-quit for automated tests: set DT_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("DT_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()

				select {
				case <-runDone:
					return
				case <-time.After(2 * time.Second):
				}

				p.Kill()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}

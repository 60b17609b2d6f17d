package main

import (
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/milk9111/scripthost/ecs"
	"github.com/milk9111/scripthost/resource"
	"github.com/milk9111/scripthost/script"
)

func main() {
	configPath := flag.String("config", "scripthost.yaml", "config file")
	runFile := flag.String("run", "", "run one script file's main() and exit")
	watch := flag.Bool("watch", false, "reload scripts when their files change")
	debug := flag.Bool("debug", false, "verbose logging")
	flag.Parse()

	log, err := newLogger(*debug)
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal("failed to load config", zap.String("path", *configPath), zap.Error(err))
	}

	sys := script.NewSystem(diskReader(cfg.ScriptsDir), log)
	defer sys.Close()

	world := ecs.NewWorld()
	sys.InstallBindings(world)
	module := sys.NewWorldModule(world)

	if *runFile != "" {
		src, err := os.ReadFile(*runFile)
		if err != nil {
			log.Fatal("failed to read script", zap.String("path", *runFile), zap.Error(err))
		}
		if err := sys.RunCode(*runFile, string(src)); err != nil {
			log.Fatal("script failed", zap.String("path", *runFile), zap.Error(err))
		}
		return
	}

	runPlugins(sys, cfg, log)

	var watcher *resource.Watcher
	if *watch {
		watcher, err = resource.NewWatcher([]string{cfg.ScriptsDir}, cfg.Extension)
		if err != nil {
			log.Fatal("failed to watch scripts", zap.String("dir", cfg.ScriptsDir), zap.Error(err))
		}
		defer watcher.Close()
	}

	run(sys, module, cfg, watcher, log)
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// diskReader resolves script paths against the scripts root and compiles the
// raw source into a resource blob on the way in.
func diskReader(root string) resource.ReadFunc {
	return func(path string) ([]byte, error) {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(path)))
		if err != nil {
			return nil, err
		}
		return script.CompileBlob(data), nil
	}
}

// runPlugins executes main() in every script under the plugin directory.
// Files are read concurrently; execution stays on this goroutine because VM
// contexts are single-threaded.
func runPlugins(sys *script.System, cfg Config, log *zap.Logger) {
	entries, err := os.ReadDir(cfg.PluginDir)
	if err != nil {
		return // no plugin dir is fine
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), cfg.Extension) {
			continue
		}
		paths = append(paths, filepath.Join(cfg.PluginDir, entry.Name()))
	}

	sources := make([][]byte, len(paths))
	var group errgroup.Group
	for i, path := range paths {
		i, path := i, path
		group.Go(func() error {
			src, err := os.ReadFile(path)
			sources[i] = src
			if err != nil {
				log.Error("failed to read plugin", zap.String("path", path), zap.Error(err))
			}
			return nil
		})
	}
	_ = group.Wait()

	for i, path := range paths {
		if sources[i] == nil {
			continue
		}
		if err := sys.RunCode(filepath.Base(path), string(sources[i])); err != nil {
			log.Error("plugin failed", zap.String("path", path), zap.Error(err))
			continue
		}
		log.Info("plugin loaded", zap.String("path", path))
	}
}

// run drives the simulation loop until interrupted: deliver completed loads,
// dispatch script updates, and reload resources the watcher reports changed.
func run(sys *script.System, module *script.Module, cfg Config, watcher *resource.Watcher, log *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second / time.Duration(cfg.TickRate))
	defer ticker.Stop()
	dt := 1.0 / float64(cfg.TickRate)

	module.StartGame()
	defer module.StopGame()
	log.Info("script host running",
		zap.String("scripts", cfg.ScriptsDir),
		zap.Int("tick_rate", cfg.TickRate))

	var events <-chan string
	if watcher != nil {
		events = watcher.Events
	}
	for {
		select {
		case <-stop:
			log.Info("shutting down")
			return
		case changed := <-events:
			rel, err := filepath.Rel(cfg.ScriptsDir, filepath.FromSlash(changed))
			if err != nil {
				continue
			}
			path := filepath.ToSlash(rel)
			if err := sys.ScriptManager().Reload(path); err != nil {
				continue // not a loaded script
			}
			log.Info("reloading script", zap.String("path", path))
		case <-ticker.C:
			module.Update(dt)
		}
	}
}

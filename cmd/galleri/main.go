package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sync"
	"syscall"

	_ "image/jpeg"
	_ "time/tzdata"

	"github.com/fsnotify/fsnotify"
	"github.com/tstromberg/galleri/pkg/api"
	"github.com/tstromberg/galleri/pkg/galleri"
	"k8s.io/klog/v2"
)

var (
	configPath = flag.String("config", "", "path to a YAML configuration file")
	root       = flag.String("root", "", "directory containing one subdirectory per album")
	index      = flag.String("index", "", "album index CSV (default: <root>/albums.csv)")
	listen     = flag.Bool("listen", false, "serve the catalog via HTTP")
	addr       = flag.String("addr", "", "host:port to bind to in listen mode")
	watchFlag  = flag.Bool("watch", false, "reload when the index or an album cache changes")
	exportDir  = flag.String("export", "", "copy derivatives and caches to this directory")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	c := galleri.DefaultConfig()
	if *configPath != "" {
		var err error
		if c, err = galleri.LoadConfig(*configPath); err != nil {
			klog.Exitf("config: %v", err)
		}
	}
	if *root != "" {
		c.Root = *root
	}
	if *index != "" {
		c.Index = *index
	}
	if *addr != "" {
		c.Addr = *addr
	}
	if c.Root == "" {
		klog.Exitf("--root is a required flag")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := galleri.NewScanner(c)
	if err != nil {
		klog.Exitf("scanner: %v", err)
	}

	as, err := s.LoadAlbums(ctx)
	if err != nil {
		klog.Exitf("load failed: %v", err)
	}
	cat := galleri.NewCatalog(as)

	if *exportDir != "" {
		if err := galleri.Export(c, as, *exportDir); err != nil {
			klog.Exitf("export failed: %v", err)
		}
	}

	var wg sync.WaitGroup
	if *watchFlag {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watch(ctx, c, s, cat); err != nil {
				klog.Exitf("watch failed: %v", err)
			}
		}()
	}

	if *listen {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := api.New(c, cat).Start(ctx, c.Addr); err != nil {
				klog.Exitf("listen failed: %v", err)
			}
		}()
	}

	wg.Wait()
}

// watchPaths returns the directories holding the index and each album cache.
func watchPaths(c *galleri.Config, as []galleri.Album) []string {
	dirs := []string{filepath.Dir(c.IndexPath())}
	for _, a := range as {
		dirs = append(dirs, c.AlbumDir(a))
	}
	slices.Sort(dirs)
	return slices.Compact(dirs)
}

// relevant reports whether an event touches the index or an album cache.
func relevant(c *galleri.Config, ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	return filepath.Clean(ev.Name) == filepath.Clean(c.IndexPath()) || filepath.Base(ev.Name) == galleri.CacheFile
}

// watch reloads the catalog when the index or an album cache changes.
func watch(ctx context.Context, c *galleri.Config, s *galleri.Scanner, cat *galleri.Catalog) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	watched := map[string]bool{}
	add := func(as []galleri.Album) {
		for _, d := range watchPaths(c, as) {
			if watched[d] {
				continue
			}
			if err := w.Add(d); err != nil {
				klog.Warningf("unable to watch %s: %v", d, err)
				continue
			}
			watched[d] = true
		}
		klog.Infof("watching %d dirs ...", len(watched))
	}
	add(cat.Albums())

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(c, ev) {
				continue
			}
			klog.Infof("%s changed, reloading", ev.Name)
			as, err := s.LoadAlbums(ctx)
			if err != nil {
				klog.Errorf("reload failed: %v", err)
				continue
			}
			cat.Replace(as)
			add(cat.Albums())
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			klog.Errorf("watch error: %v", err)
		}
	}
}

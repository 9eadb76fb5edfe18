package indexing

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/opensquiggly/spinach-sub000/internal/config"
	"github.com/opensquiggly/spinach-sub000/internal/debug"
	"github.com/opensquiggly/spinach-sub000/internal/types"
	"github.com/opensquiggly/spinach-sub000/pkg/pathutil"
)

const defaultWatchDebounce = 300 * time.Millisecond

// Watcher monitors repository directories and reports, after a quiet
// period, which repositories saw file system activity. It never touches
// the index; the index owner drains Changes and refreshes.
type Watcher struct {
	watcher   *fsnotify.Watcher
	enum      *Enumerator
	debouncer *eventDebouncer
	changes   chan types.RepoKey
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	mu    sync.Mutex
	roots map[string]types.RepoKey
}

// NewWatcher creates a watcher using the exclusions and debounce interval
// of cfg.
func NewWatcher(cfg *config.Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounce := time.Duration(cfg.Index.WatchDebounceMs) * time.Millisecond
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		watcher: fsw,
		enum:    NewEnumerator(cfg),
		changes: make(chan types.RepoKey, 16),
		ctx:     ctx,
		cancel:  cancel,
		roots:   make(map[string]types.RepoKey),
	}
	w.debouncer = newEventDebouncer(debounce, w.emit)
	return w, nil
}

// Changes delivers the key of every repository that changed. A repository
// appears at most once per quiet period.
func (w *Watcher) Changes() <-chan types.RepoKey {
	return w.changes
}

// Add watches every non-excluded directory under root on behalf of repo.
func (w *Watcher) Add(repo types.RepoKey, root string) error {
	root = filepath.Clean(root)
	w.mu.Lock()
	w.roots[root] = repo
	w.mu.Unlock()

	debug.LogIndexing("watching %s for %s", root, repo)
	return w.addWatches(root, root)
}

// Start begins processing events.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.processEvents()
}

// Stop ends event processing and releases the underlying watches. Pending
// changes that were not yet flushed are dropped.
func (w *Watcher) Stop() error {
	w.cancel()
	w.debouncer.stop()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

// addWatches walks dir, which lies inside the repository root, and watches
// each directory, skipping excluded ones and symlink cycles.
func (w *Watcher) addWatches(root, dir string) error {
	visited := make(map[string]bool)

	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return filepath.SkipDir
		}
		if visited[realPath] {
			return filepath.SkipDir
		}
		visited[realPath] = true

		if path != root && w.shouldIgnoreDirectory(root, path) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			debug.LogIndexing("failed to watch %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) shouldIgnoreDirectory(root, path string) bool {
	rel, ok := pathutil.Within(path, root)
	return ok && w.enum.shouldExcludeDir(rel)
}

// repositoryFor finds the repository with the innermost root containing
// path.
func (w *Watcher) repositoryFor(path string) (types.RepoKey, string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var best string
	var key types.RepoKey
	for root, repo := range w.roots {
		if _, ok := pathutil.Within(path, root); ok && len(root) > len(best) {
			best, key = root, repo
		}
	}
	return key, best, best != ""
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			debug.Logger().Warn("file watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}
	repo, root, ok := w.repositoryFor(filepath.Clean(event.Name))
	if !ok {
		return
	}
	rel, ok := pathutil.Within(event.Name, root)
	if !ok {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.enum.shouldExcludeDir(rel) {
				return
			}
			if err := w.addWatches(root, event.Name); err != nil {
				debug.LogIndexing("failed to watch new directory %s: %v", event.Name, err)
			}
			w.debouncer.addEvent(repo)
			return
		}
	}

	if w.enum.shouldExclude(rel) || w.enum.shouldExcludeDir(rel) {
		return
	}
	debug.LogIndexing("watcher: %v on %s in %s", event.Op, rel, repo)
	w.debouncer.addEvent(repo)
}

// emit hands a repository to the owner, giving up when the watcher stops.
func (w *Watcher) emit(repo types.RepoKey) {
	select {
	case w.changes <- repo:
	case <-w.ctx.Done():
	}
}

// eventDebouncer collapses bursts of events into one notification per
// repository once no event arrived for the debounce interval.
type eventDebouncer struct {
	mu       sync.Mutex
	pending  map[types.RepoKey]struct{}
	debounce time.Duration
	timer    *time.Timer
	stopped  bool
	flushing sync.WaitGroup
	emit     func(types.RepoKey)
}

func newEventDebouncer(debounce time.Duration, emit func(types.RepoKey)) *eventDebouncer {
	return &eventDebouncer{
		pending:  make(map[types.RepoKey]struct{}),
		debounce: debounce,
		emit:     emit,
	}
}

func (d *eventDebouncer) addEvent(repo types.RepoKey) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.pending[repo] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.debounce, d.flush)
}

func (d *eventDebouncer) flush() {
	d.mu.Lock()
	if d.stopped || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	repos := make([]types.RepoKey, 0, len(d.pending))
	for repo := range d.pending {
		repos = append(repos, repo)
	}
	d.pending = make(map[types.RepoKey]struct{})
	d.flushing.Add(1)
	d.mu.Unlock()
	defer d.flushing.Done()

	slices.SortFunc(repos, types.CompareRepoKeys)
	for _, repo := range repos {
		d.emit(repo)
	}
}

// stop cancels the timer and waits for a flush already under way. The
// emit callback must return once the watcher's context is done.
func (d *eventDebouncer) stop() {
	d.mu.Lock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	d.flushing.Wait()
}

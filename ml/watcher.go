package ml

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ArtifactWatcher 监听已加载制品文件的变化，只告警不重载，新制品需重启生效
type ArtifactWatcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]struct{}
	logger   *zap.Logger
	onChange func(path string, op fsnotify.Op)
	done     chan struct{}
	once     sync.Once
}

// WatchArtifacts 监听paths所在目录，onChange可为nil
func WatchArtifacts(paths []string, logger *zap.Logger, onChange func(path string, op fsnotify.Op)) (*ArtifactWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &ArtifactWatcher{
		watcher:  fw,
		files:    make(map[string]struct{}, len(paths)),
		logger:   logger,
		onChange: onChange,
		done:     make(chan struct{}),
	}

	dirs := make(map[string]struct{})
	for _, p := range paths {
		clean := filepath.Clean(p)
		w.files[clean] = struct{}{}
		dirs[filepath.Dir(clean)] = struct{}{}
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, err
		}
	}

	go w.run()
	return w, nil
}

func (w *ArtifactWatcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			name := filepath.Clean(event.Name)
			if _, tracked := w.files[name]; !tracked {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Warn("artifact changed on disk; restart to apply",
				zap.String("path", name),
				zap.String("op", event.Op.String()))
			if w.onChange != nil {
				w.onChange(name, event.Op)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("artifact watcher error", zap.Error(err))
		}
	}
}

// Close 停止监听并等待事件循环退出
func (w *ArtifactWatcher) Close() error {
	var err error
	w.once.Do(func() {
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

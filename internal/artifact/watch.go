package artifact

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watch reloads the artifact at path whenever it is written or replaced and
// hands the new model to onChange. It runs until ctx is cancelled.
//
// A failed reload is passed to onError and the previous model stays active.
// The parent directory is watched so that rename-based saves are seen.
func Watch(ctx context.Context, path string, onChange func(*Model), onError func(error), log zerolog.Logger) error {
	log = log.With().Str("component", "artifact.watch").Logger()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}

	log.Info().Str("path", target).Msg("watching model artifact")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || name != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			m, err := Load(target)
			if err != nil {
				log.Error().Err(err).Str("path", target).Msg("model reload failed, keeping previous model")
				if onError != nil {
					onError(err)
				}
				continue
			}

			log.Info().Str("path", target).Str("run_id", m.RunID()).Msg("model reloaded")
			onChange(m)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("artifact watcher error")
		}
	}
}

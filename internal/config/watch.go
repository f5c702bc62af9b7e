package config

import (
	"context"
	"os"
	"time"
)

// WatchBusiness loads business.yaml once, hands it to onUpdate, then polls
// the file every interval and reloads it whenever its size or mtime moves.
// A reload that fails to parse or validate goes to onError and the previous
// config stays in effect. The initial load error is returned.
func WatchBusiness(
	ctx context.Context,
	path string,
	interval time.Duration,
	onUpdate func(*BusinessConfig),
	onError func(error),
) error {
	if path == "" {
		path = "configs/business.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	cfg, err := LoadBusinessConfig(path)
	if err != nil {
		return err
	}
	seen, err := stamp(path)
	if err != nil {
		return err
	}
	if onUpdate != nil {
		onUpdate(cfg)
	}

	go pollBusiness(ctx, path, interval, seen, onUpdate, onError)
	return nil
}

type fileStamp struct {
	mod  time.Time
	size int64
}

func stamp(path string) (fileStamp, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileStamp{}, err
	}
	return fileStamp{mod: info.ModTime(), size: info.Size()}, nil
}

func pollBusiness(ctx context.Context, path string, interval time.Duration, seen fileStamp, onUpdate func(*BusinessConfig), onError func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		current, err := stamp(path)
		if err != nil || current == seen {
			// editors may briefly remove the file while saving
			continue
		}
		seen = current

		cfg, err := LoadBusinessConfig(path)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			continue
		}
		if onUpdate != nil {
			onUpdate(cfg)
		}
	}
}

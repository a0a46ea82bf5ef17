package main

import (
	"context"
	"strings"
	"sync"

	"reelscribe/internal/config"
	"reelscribe/internal/daemon"
	"reelscribe/internal/docstore"
	"reelscribe/internal/workqueue"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withBackends opens the configured store and queue for the duration of fn.
func (c *commandContext) withBackends(ctx context.Context, fn func(store docstore.Store, queue workqueue.Queue) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := daemon.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	queue, err := daemon.OpenQueue(ctx, cfg)
	if err != nil {
		return err
	}
	defer queue.Close()

	return fn(store, queue)
}

package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/bright-bogota/storefront/internal/cart"
	"github.com/bright-bogota/storefront/internal/catalog"
	"github.com/bright-bogota/storefront/internal/config"
	"github.com/bright-bogota/storefront/internal/contact"
	"github.com/bright-bogota/storefront/internal/content"
	"github.com/bright-bogota/storefront/internal/i18n"
	"github.com/bright-bogota/storefront/internal/menu"
	mw "github.com/bright-bogota/storefront/internal/middleware"
	"github.com/bright-bogota/storefront/internal/nav"
	"github.com/bright-bogota/storefront/templates"
)

const menuFetchTimeout = 5 * time.Second

// app holds the process-wide dependencies shared by every handler.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	bundle   *i18n.Bundle
	catalog  *catalog.Catalog
	pages    *content.Pages
	menu     []nav.Item
	carts    *cart.Registry
	contact  contact.Submitter
	sessions *mw.Sessions
	views    *views
	// watchDir is the on-disk template directory watched in dev mode.
	watchDir string
}

// newApp wires the storefront from configuration. The returned cleanup releases
// upstream clients and must be called once the server has stopped.
func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*app, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	bundle, err := i18n.Default(cfg.Locale.Default, cfg.Locale.Supported)
	if err != nil {
		return fail(fmt.Errorf("load translations: %w", err))
	}

	products, err := loadCatalog(cfg)
	if err != nil {
		return fail(err)
	}

	pageOpts := []content.PagesOption{
		content.WithFallbacks(append([]string{cfg.Locale.Default}, cfg.Locale.Supported...)...),
	}
	if cfg.DevMode {
		pageOpts = append(pageOpts, content.WithTTL(0))
	}
	var pageFS fs.FS
	if cfg.Content.Dir != "" {
		pageFS = os.DirFS(cfg.Content.Dir)
	}
	pages := content.NewPages(pageFS, pageOpts...)

	sessions, err := mw.NewSessions(mw.SessionConfig{
		CookieName: cfg.Session.CookieName,
		HashKey:    []byte(cfg.Session.HashKey),
		BlockKey:   []byte(cfg.Session.BlockKey),
		Secure:     cfg.Session.Secure,
	})
	if err != nil {
		return fail(fmt.Errorf("session codec: %w", err))
	}
	if sessions.Ephemeral {
		logger.Warn("session hash key not configured; sessions will not survive restarts")
	}

	carts, closeCarts, err := newCartRegistry(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, closeCarts)

	submitter, closeSubmitter, err := newSubmitter(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, closeSubmitter)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		bundle:   bundle,
		catalog:  products,
		pages:    pages,
		menu:     loadMenu(ctx, cfg, logger),
		carts:    carts,
		contact:  submitter,
		sessions: sessions,
	}

	var tmplFS fs.FS = templates.FS
	if dir := strings.TrimSpace(cfg.Templates); dir != "" {
		tmplFS = os.DirFS(dir)
		if cfg.DevMode {
			a.watchDir = dir
		}
	}
	a.views, err = newViews(tmplFS, a.templateFuncs(), logger)
	if err != nil {
		return fail(fmt.Errorf("parse templates: %w", err))
	}
	return a, cleanup, nil
}

func loadCatalog(cfg config.Config) (*catalog.Catalog, error) {
	var (
		c   *catalog.Catalog
		err error
	)
	if file := strings.TrimSpace(cfg.Catalog.File); file != "" {
		c, err = catalog.Load(os.DirFS(filepath.Dir(file)), filepath.Base(file))
	} else {
		c, err = catalog.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if cfg.Catalog.Currency != "" {
		c.Currency = cfg.Catalog.Currency
	}
	return c, nil
}

// loadMenu fetches the header menu once at startup. Remote failures already fall
// back to the YAML menu; the static navigation covers a broken fallback.
func loadMenu(ctx context.Context, cfg config.Config, logger *zap.Logger) []nav.Item {
	client := menu.NewClient(cfg.Menu.APIURL, menu.WithFile(cfg.Menu.File), menu.WithLogger(logger))
	ctx, cancel := context.WithTimeout(ctx, menuFetchTimeout)
	defer cancel()
	entries, err := client.Fetch(ctx)
	if err != nil {
		logger.Warn("menu unavailable, using static navigation", zap.Error(err))
		return nav.Main
	}
	return navFromMenu(entries)
}

func newCartRegistry(ctx context.Context, cfg config.Config, logger *zap.Logger) (*cart.Registry, func(), error) {
	opts := cart.RegistryOptions{IdleTTL: cfg.Cart.IdleTTL, Logger: logger}
	if cfg.Cart.RedisURL == "" {
		return cart.NewRegistry(opts), func() {}, nil
	}
	client := cart.NewRedisClient(cfg.Cart.RedisURL)
	snaps, err := cart.NewRedisSnapshots(client, cfg.Cart.KeyPrefix, cfg.Cart.IdleTTL)
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("cart snapshots: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := snaps.Ping(pingCtx); err != nil {
		// carts still work in memory; snapshots resume once redis is reachable
		logger.Warn("cart redis unreachable", zap.Error(err))
	}
	opts.Snapshots = snaps
	return cart.NewRegistry(opts), func() { _ = client.Close() }, nil
}

func newSubmitter(ctx context.Context, cfg config.Config, logger *zap.Logger) (contact.Submitter, func(), error) {
	if cfg.Contact.PubSubTopic != "" {
		client, err := pubsub.NewClient(ctx, cfg.Contact.PubSubProject)
		if err != nil {
			return nil, nil, fmt.Errorf("pubsub client: %w", err)
		}
		topic := client.Topic(cfg.Contact.PubSubTopic)
		pub, err := contact.NewPubSubPublisher(topic)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		logger.Info("contact submissions published to pubsub",
			zap.String("project", cfg.Contact.PubSubProject),
			zap.String("topic", cfg.Contact.PubSubTopic),
		)
		return pub, func() {
			topic.Stop()
			_ = client.Close()
		}, nil
	}
	if cfg.Contact.Endpoint == "" {
		logger.Info("contact endpoint not configured; submissions are acknowledged locally")
	}
	return contact.NewClient(cfg.Contact.Endpoint), func() {}, nil
}

var navLabelKeys = map[string]string{
	"home":    "nav.home",
	"about":   "nav.about",
	"contact": "nav.contact",
}

// navFromMenu maps menu entries onto navigation items. Known sections use their
// translation keys; anything else shows the entry title.
func navFromMenu(entries []menu.Entry) []nav.Item {
	items := make([]nav.Item, 0, len(entries))
	for _, e := range entries {
		href := e.Href()
		if href == "" {
			continue
		}
		item := nav.Item{Path: href, Label: e.Title}
		if key, ok := navLabelKeys[e.ID]; ok {
			item.Label, item.LabelKey = "", key
		}
		if len(e.SubItems) > 1 {
			for _, sub := range e.SubItems {
				if sub.Link == "" {
					continue
				}
				item.Children = append(item.Children, nav.Item{Path: sub.Link, Label: sub.Title})
			}
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nav.Main
	}
	return items
}

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/techfemme/academy/backend/go-services/internal/accounts"
	"github.com/techfemme/academy/backend/go-services/internal/app"
	"github.com/techfemme/academy/backend/go-services/internal/cache"
	"github.com/techfemme/academy/backend/go-services/internal/config"
	"github.com/techfemme/academy/backend/go-services/internal/credentials"
	"github.com/techfemme/academy/backend/go-services/internal/database"
	"github.com/techfemme/academy/backend/go-services/internal/editor"
	"github.com/techfemme/academy/backend/go-services/internal/mail"
	"github.com/techfemme/academy/backend/go-services/internal/models"
	"github.com/techfemme/academy/backend/go-services/internal/session"
	"github.com/techfemme/academy/backend/go-services/internal/tokens"
	"github.com/techfemme/academy/backend/go-services/pkg/logger"
)

// refreshKey is the local slot of the refresh token, next to cache.TokenKey.
const refreshKey = "refresh"

var errNotSignedIn = errors.New("not signed in, run academyctl signin first")

type cliEnv struct {
	v    *viper.Viper
	open opener
}

// client is one invocation's view of the stores: a single session controller whose
// durable tier is the local SQLite file.
type client struct {
	cfg      *config.Config
	log      *zap.Logger
	stores   *app.Stores
	local    *cache.SQLiteStore
	tokens   *tokens.Manager
	creds    *credentials.Store
	ctrl     *session.Controller
	accounts *accounts.Service
	editor   *editor.Editor
	closeDB  func()
}

func (e *cliEnv) client(ctx context.Context) (*client, error) {
	cfg, err := config.Load(e.v)
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Log.Level)
	log := logger.L()

	db, err := database.OpenSQLite(cfg.Session.SQLitePath, log, &cache.Entry{})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	stores, err := e.open(ctx, cfg, log)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	c := &client{
		cfg:     cfg,
		log:     log,
		stores:  stores,
		local:   cache.NewSQLiteStore(db),
		closeDB: func() { _ = sqlDB.Close() },
	}
	if err := c.wire(); err != nil {
		c.close()
		return nil, err
	}
	return c, nil
}

func (c *client) wire() error {
	creds, tm, err := app.NewCredentialStore(c.cfg, c.stores, c.log)
	if err != nil {
		return err
	}
	ctrl, err := session.NewController(session.Config{
		Profiles:       c.stores.Profiles,
		Cache:          cache.New(c.local, c.log),
		Logger:         c.log,
		ResolveTimeout: c.cfg.Session.ResolveTimeout,
	})
	if err != nil {
		return err
	}
	creds.OnSessionChange(func(ctx context.Context, _ string, identity *models.Identity) {
		ctrl.HandleSessionChange(ctx, identity)
	})
	acc, err := accounts.NewService(accounts.Config{
		Credentials: creds,
		Profiles:    c.stores.Profiles,
		Sessions:    ctrl,
		Mailer:      mail.NewFromConfig(c.cfg.SendGrid, c.log),
		Logger:      c.log,
		WaitTimeout: c.cfg.Session.ResolveTimeout,
	})
	if err != nil {
		return err
	}
	ed, err := editor.New(editor.Config{
		Profiles:      c.stores.Profiles,
		Blobs:         c.stores.Blobs,
		Cache:         ctrl,
		Logger:        c.log,
		AvatarBaseURL: c.cfg.Server.AvatarBaseURL(),
	})
	if err != nil {
		return err
	}
	c.tokens, c.creds, c.ctrl, c.accounts, c.editor = tm, creds, ctrl, acc, ed
	return nil
}

func (c *client) close() {
	c.stores.Close(context.Background())
	c.closeDB()
}

// remember persists the tokens of a fresh session.
func (c *client) remember(ctx context.Context, s credentials.Session) error {
	if err := c.local.Put(ctx, cache.TokenKey, s.AccessToken); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	if err := c.local.Put(ctx, refreshKey, s.RefreshToken); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

func (c *client) forget(ctx context.Context) error {
	if err := c.local.Delete(ctx, cache.TokenKey); err != nil {
		return err
	}
	return c.local.Delete(ctx, refreshKey)
}

// hydrate loads the snapshot left by the previous invocation.
func (c *client) hydrate(ctx context.Context) *models.Profile {
	p, err := c.ctrl.Hydrate(ctx)
	if err != nil {
		c.log.Warn("snapshot unreadable", zap.Error(err))
		return nil
	}
	return p
}

// restore announces the stored token as signed in, rotating it once if it has
// expired, and waits for the profile to resolve.
func (c *client) restore(ctx context.Context) (session.State, error) {
	token, ok, err := c.local.Get(ctx, cache.TokenKey)
	if err != nil {
		return session.State{}, err
	}
	if !ok {
		return session.State{}, errNotSignedIn
	}
	_, err = c.creds.Restore(ctx, token)
	if errors.Is(err, tokens.ErrExpiredToken) {
		if token, err = c.refresh(ctx); err == nil {
			_, err = c.creds.Restore(ctx, token)
		}
	}
	if err != nil {
		return session.State{}, err
	}
	return c.wait(ctx)
}

// refresh rotates the stored refresh token and returns the new access token.
func (c *client) refresh(ctx context.Context) (string, error) {
	refresh, ok, err := c.local.Get(ctx, refreshKey)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errNotSignedIn
	}
	s, err := c.creds.Refresh(ctx, refresh)
	if err != nil {
		return "", err
	}
	return s.AccessToken, c.remember(ctx, *s)
}

// reload re-reads the signed-in profile from the profile store, bypassing the snapshot.
func (c *client) reload(ctx context.Context) (session.State, error) {
	c.ctrl.Reload(ctx)
	return c.wait(ctx)
}

func (c *client) wait(ctx context.Context) (session.State, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Session.ResolveTimeout+time.Second)
	defer cancel()
	return c.ctrl.Wait(ctx)
}

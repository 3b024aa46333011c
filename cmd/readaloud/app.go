package main

import (
	"fmt"
	"time"

	"github.com/iabetor/readaloud/internal/archive"
	"github.com/iabetor/readaloud/internal/config"
	"github.com/iabetor/readaloud/internal/database"
	"github.com/iabetor/readaloud/internal/llm"
	"github.com/iabetor/readaloud/internal/logger"
	"github.com/iabetor/readaloud/internal/pipeline"
	"github.com/iabetor/readaloud/internal/settings"
	"github.com/iabetor/readaloud/internal/tts"
)

// app 持有一次命令执行期间打开的资源。
type app struct {
	cfg     *config.Config
	db      *database.DB
	closers []func()
}

// loadApp 加载配置并初始化日志。quiet 为 true 时日志只写入文件。
func loadApp(quiet bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Quiet:      quiet,
	}); err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return &app{cfg: cfg}, nil
}

// Close 按打开的逆序释放资源。
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	logger.Sync()
}

func (a *app) openDB() (*database.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := database.Open(a.cfg.DatabasePath())
	if err != nil {
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, func() { db.Close() })
	return db, nil
}

// openSettings 按配置的后端加载插件设置。
func (a *app) openSettings() (*settings.Store, error) {
	switch a.cfg.Settings.Backend {
	case "json":
		return settings.NewStore(settings.NewFilePersister(a.cfg.Settings.Path)), nil
	case "sqlite":
		db, err := a.openDB()
		if err != nil {
			return nil, err
		}
		return settings.NewStore(settings.NewSQLitePersister(db)), nil
	default:
		return nil, fmt.Errorf("不支持的设置后端: %s", a.cfg.Settings.Backend)
	}
}

// openArchiver 按配置选择 vault 目录或 NATS 对象存储。
func (a *app) openArchiver() (*archive.Archiver, error) {
	var store archive.ContentStore
	switch a.cfg.Archive.Backend {
	case "vault":
		store = archive.NewVaultStore(a.cfg.Archive.VaultDir)
	case "nats":
		ns, err := archive.DialNATS(a.cfg.Archive.NATS.URL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, ns.Close)
		store = ns
	default:
		return nil, fmt.Errorf("不支持的归档后端: %s", a.cfg.Archive.Backend)
	}

	var opts []archive.Option
	if a.cfg.Archive.Index {
		db, err := a.openDB()
		if err != nil {
			return nil, err
		}
		opts = append(opts, archive.WithIndex(archive.NewIndex(db)))
	}
	return archive.NewArchiver(store, a.cfg.Archive.Folder, opts...), nil
}

// buildDeps 组装编排器依赖。
func (a *app) buildDeps(store *settings.Store, notifier pipeline.Notifier, metrics *pipeline.Metrics) (pipeline.Deps, error) {
	engine, err := tts.NewEngine(a.cfg.TTS)
	if err != nil {
		return pipeline.Deps{}, err
	}
	archiver, err := a.openArchiver()
	if err != nil {
		return pipeline.Deps{}, err
	}

	provider := llm.NewOpenAIProvider(a.cfg.LLM.APIURL, a.cfg.LLM.Model, a.cfg.LLM.MaxTokens,
		time.Duration(a.cfg.LLM.TimeoutSeconds)*time.Second)

	var voiceID string
	if engine.Name() == "elevenlabs" {
		voiceID = a.cfg.TTS.ElevenLabs.VoiceID
	}

	logger.Infof("[main] 引擎=%s 归档=%s/%s 设置=%s",
		engine.Name(), a.cfg.Archive.Backend, a.cfg.Archive.Folder, a.cfg.Settings.Backend)

	return pipeline.Deps{
		Rewriter: llm.NewRewriter(provider),
		Engine:   engine,
		Archiver: archiver,
		Notifier: notifier,
		Settings: store,
		VoiceID:  voiceID,
		Metrics:  metrics,
	}, nil
}

// Package pipeline 串联改写、合成、归档和播放，每次调用一个独立的状态机。
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iabetor/readaloud/internal/archive"
	"github.com/iabetor/readaloud/internal/audio"
	"github.com/iabetor/readaloud/internal/errs"
	"github.com/iabetor/readaloud/internal/logger"
	"github.com/iabetor/readaloud/internal/settings"
	"github.com/iabetor/readaloud/internal/tts"
)

// NoticePrefix 是所有提示消息的前缀。
const NoticePrefix = "[Eleven Labs MD] Error :: "

// ErrEmptySelection 选中文本为空或只有空白。
var ErrEmptySelection = errors.New("no text selected")

// 调用结果标签。
const (
	outcomeSuccess       = "success"
	outcomeArchiveFailed = "archive_failed"
	outcomeAborted       = "aborted"
	outcomeRejected      = "rejected"
)

// TextRewriter 把文本改写为口语。
type TextRewriter interface {
	Rewrite(ctx context.Context, text, apiKey, prompt string) (string, error)
}

// Archiver 保存音频。
type Archiver interface {
	Archive(ctx context.Context, data []byte) (*archive.Artifact, error)
}

// Notifier 向用户展示一条提示。
type Notifier interface {
	Notify(msg string)
}

// TextSource 提供当前选中的文本。
type TextSource interface {
	Selection(ctx context.Context) (string, error)
}

// SettingsSource 提供当前设置快照。
type SettingsSource interface {
	Current() settings.Settings
}

// Deps 是编排器的协作者。
type Deps struct {
	Rewriter TextRewriter
	Engine   tts.Engine
	Archiver Archiver
	Notifier Notifier
	Settings SettingsSource
	// VoiceID 为空时由引擎使用自己的默认音色。
	VoiceID string
	Metrics *Metrics
}

// Result 是一次成功调用的产物。
type Result struct {
	Handle *audio.Handle
	// Artifact 归档失败时为 nil，此时 ArchiveErr 非空。
	Artifact     *archive.Artifact
	ArchiveErr   error
	SpokenText   string
	InvocationID string
}

// Orchestrator 无状态，可被并发调用。
type Orchestrator struct {
	deps Deps
}

// New 创建编排器。
func New(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// SpeakSelection 读取选中文本并朗读。
func (o *Orchestrator) SpeakSelection(ctx context.Context, src TextSource) (*Result, error) {
	text, err := src.Selection(ctx)
	if err != nil {
		o.notify(errs.MessageOf(err))
		return nil, err
	}
	return o.Speak(ctx, text)
}

// Speak 对 text 执行一次完整的朗读流程。
func (o *Orchestrator) Speak(ctx context.Context, text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		o.deps.Metrics.countOutcome(outcomeRejected)
		o.notify(ErrEmptySelection.Error())
		return nil, ErrEmptySelection
	}

	id := uuid.New().String()
	ctx = archive.WithInvocationID(ctx, id)
	cur := o.deps.Settings.Current()
	sm := NewStateMachine()
	started := time.Now()

	log := logger.With("invocation", id)
	log.Infof("[pipeline] 开始：%d 个字符，改写=%v，引擎=%s",
		len([]rune(text)), cur.NaturalSounding, o.deps.Engine.Name())

	spoken := text
	if cur.NaturalSounding {
		sm.Transition(StateRewriting)
		stageStart := time.Now()
		rewritten, err := o.deps.Rewriter.Rewrite(ctx, text, cur.OpenAIAPIKey, cur.Prompt)
		o.deps.Metrics.observeStage(StateRewriting, stageStart)
		if err == nil && strings.TrimSpace(rewritten) == "" {
			err = errs.New(errs.OriginParse, "rewrite returned no text")
		}
		if err != nil {
			return nil, o.abort(sm, id, err)
		}
		spoken = rewritten
	}

	sm.Transition(StateSynthesizing)
	stageStart := time.Now()
	req := tts.NewRequest(spoken, o.deps.VoiceID)
	data, err := o.deps.Engine.Synthesize(ctx, req, cur.ElevenLabsAPIKey)
	o.deps.Metrics.observeStage(StateSynthesizing, stageStart)
	if err == nil && len(data) == 0 {
		err = errs.Newf(errs.OriginService, "%s returned no audio", o.deps.Engine.Name())
	}
	if err != nil {
		return nil, o.abort(sm, id, err)
	}

	sm.Transition(StateArchiving)
	stageStart = time.Now()
	artifact, archiveErr := o.deps.Archiver.Archive(ctx, data)
	o.deps.Metrics.observeStage(StateArchiving, stageStart)
	if archiveErr != nil {
		// 归档失败不影响播放
		o.deps.Metrics.countError(StateArchiving, archiveErr)
		log.Warnf("[pipeline] 归档失败: %v", archiveErr)
		o.notify(errs.MessageOf(archiveErr))
	}

	sm.Transition(StatePresenting)
	handle := audio.Present(data)
	sm.Transition(StateIdle)

	outcome := outcomeSuccess
	if archiveErr != nil {
		outcome = outcomeArchiveFailed
	}
	o.deps.Metrics.countOutcome(outcome)

	log.Infof("[pipeline] 完成：%d 字节音频，耗时 %v", len(data), time.Since(started))

	return &Result{
		Handle:       handle,
		Artifact:     artifact,
		ArchiveErr:   archiveErr,
		SpokenText:   spoken,
		InvocationID: id,
	}, nil
}

// abort 记录失败阶段、发出提示并进入 Aborted。
func (o *Orchestrator) abort(sm *StateMachine, id string, err error) error {
	stage := sm.Current()
	o.deps.Metrics.countError(stage, err)
	o.deps.Metrics.countOutcome(outcomeAborted)

	switch errs.OriginOf(err) {
	case errs.OriginConfiguration:
		logger.Warnf("[pipeline] 调用 %s 在 %s 阶段缺少配置: %v", id, stage, err)
	default:
		logger.Errorf("[pipeline] 调用 %s 在 %s 阶段失败: %v", id, stage, err)
	}

	sm.Transition(StateAborted)
	o.notify(errs.MessageOf(err))
	return err
}

func (o *Orchestrator) notify(msg string) {
	if o.deps.Notifier != nil {
		o.deps.Notifier.Notify(NoticePrefix + msg)
	}
}

package pipeline

import (
	"sync"

	"github.com/iabetor/readaloud/internal/logger"
)

// State 表示一次朗读调用所处的阶段。
type State int

const (
	// StateIdle 空闲，尚未开始或已返回结果。
	StateIdle State = iota
	// StateRewriting 正在请求 LLM 改写文本。
	StateRewriting
	// StateSynthesizing 正在合成语音。
	StateSynthesizing
	// StateArchiving 正在保存音频。
	StateArchiving
	// StatePresenting 正在构造播放句柄。
	StatePresenting
	// StateAborted 调用失败，终止状态。
	StateAborted
)

var stateNames = [...]string{
	"Idle",
	"Rewriting",
	"Synthesizing",
	"Archiving",
	"Presenting",
	"Aborted",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// StateMachine 记录单次调用的状态转换，每次调用新建一个。
type StateMachine struct {
	mu       sync.RWMutex
	current  State
	onChange func(from, to State)
}

// NewStateMachine 创建一个初始状态为 Idle 的状态机。
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateIdle,
	}
}

// SetOnChange 注册状态变化时的回调函数。
func (sm *StateMachine) SetOnChange(fn func(from, to State)) {
	sm.mu.Lock()
	sm.onChange = fn
	sm.mu.Unlock()
}

// Current 返回当前状态。
func (sm *StateMachine) Current() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

// Transition 尝试切换状态。只有合法的转换才会生效：
//
//	Idle         → Rewriting | Synthesizing
//	Rewriting    → Synthesizing
//	Synthesizing → Archiving
//	Archiving    → Presenting
//	Presenting   → Idle
//
// 除 Idle 外任何状态都可以进入 Aborted；Aborted 不再转换。
func (sm *StateMachine) Transition(to State) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !validTransition(sm.current, to) {
		logger.Warnf("[pipeline] 非法转换 %s → %s", sm.current, to)
		return false
	}

	from := sm.current
	sm.current = to
	logger.Debugf("[pipeline] %s → %s", from, to)

	if sm.onChange != nil {
		sm.onChange(from, to)
	}
	return true
}

// validTransition 检查状态转换是否合法。
func validTransition(from, to State) bool {
	if to == StateAborted {
		return from != StateIdle && from != StateAborted
	}
	switch from {
	case StateIdle:
		return to == StateRewriting || to == StateSynthesizing
	case StateRewriting:
		return to == StateSynthesizing
	case StateSynthesizing:
		return to == StateArchiving
	case StateArchiving:
		return to == StatePresenting
	case StatePresenting:
		return to == StateIdle
	}
	return false
}

package storage

import "errors"

// ErrStorage 标记会话库读写失败 / ErrStorage marks a failed database
// read or write. Callers classify with errors.Is.
var ErrStorage = errors.New("storage failure")

// Turn 是一次完整交换：用户提问与助手回答
// Turn is one complete exchange: the user's question and the
// assistant's answer.
type Turn struct {
	Question string
	Answer   string
}

// SessionInfo 描述一次打开的会话 / SessionInfo describes an opened session.
type SessionInfo struct {
	Identity string
	// Turns 是已存的交换数 / number of stored exchanges.
	Turns int
	// Resumed 为 true 表示继续既有会话而非新建
	// Resumed reports whether an existing session was continued.
	Resumed bool
}

// PendingResult 保存最近一次未消费的回答，供稍后插入
// PendingResult holds the latest unconsumed answer so a later
// invocation can still insert it.
type PendingResult struct {
	ExchangeID string
	Response   string
}

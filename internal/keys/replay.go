package keys

import "fmt"

// Sender 回放消费的目标端最小接口
// Sender is the minimal target-surface interface replay consumes.
// target.Pane implements it.
type Sender interface {
	SendLiteral(text string) error
	SendKey(name string) error
}

// Replay 按序将标记发送到目标端。回放不可回滚：已注入的按键无法撤销，
// 失败时之前的发送保持已生效状态。
// Replay transmits tags to the target in order: recognized tags as named
// key presses, literal runs and unresolved tags as literal text. Replay
// is not transactional; keys already injected cannot be taken back, so a
// failed send leaves prior sends in effect.
func Replay(tags []Tag, s Sender) error {
	for _, t := range tags {
		var err error
		if t.Kind == TagKey {
			err = s.SendKey(t.Key)
		} else {
			err = s.SendLiteral(t.Text)
		}
		if err != nil {
			return fmt.Errorf("send %q: %w", t.Text, err)
		}
	}
	return nil
}

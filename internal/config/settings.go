package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ContextField 描述一个可切换的上下文开关 / one toggleable context switch.
type ContextField struct {
	Key   string // JSON 键名 / JSON key
	Label string // 菜单展示名 / menu label
}

// ContextFields 按设置菜单顺序列出全部隐私开关
// ContextFields lists every privacy toggle in settings-menu order.
func ContextFields() []ContextField {
	return []ContextField{
		{Key: "send_terminal_content", Label: "Terminal content"},
		{Key: "send_current_command", Label: "Current command line"},
		{Key: "send_current_process", Label: "Current process"},
		{Key: "send_working_dir", Label: "Working directory"},
		{Key: "send_shell_history", Label: "Shell history"},
		{Key: "send_git_status", Label: "Git status"},
		{Key: "send_system_info", Label: "System info"},
		{Key: "send_env_var_names", Label: "Environment variable names"},
		{Key: "send_recent_prompts", Label: "Recent prompts"},
	}
}

// Get 按键名读取开关，未知键返回 ok=false
// Get reads a toggle by key; unknown keys return ok=false.
func (c *ContextConfig) Get(key string) (value, ok bool) {
	switch key {
	case "send_terminal_content":
		return c.SendTerminalContent, true
	case "send_current_command":
		return c.SendCurrentCommand, true
	case "send_current_process":
		return c.SendCurrentProcess, true
	case "send_working_dir":
		return c.SendWorkingDir, true
	case "send_shell_history":
		return c.SendShellHistory, true
	case "send_git_status":
		return c.SendGitStatus, true
	case "send_env_var_names":
		return c.SendEnvVarNames, true
	case "send_system_info":
		return c.SendSystemInfo, true
	case "send_recent_prompts":
		return c.SendRecentPrompts, true
	}
	return false, false
}

// Set 按键名写入开关 / Set writes a toggle by key.
func (c *ContextConfig) Set(key string, v bool) bool {
	switch key {
	case "send_terminal_content":
		c.SendTerminalContent = v
	case "send_current_command":
		c.SendCurrentCommand = v
	case "send_current_process":
		c.SendCurrentProcess = v
	case "send_working_dir":
		c.SendWorkingDir = v
	case "send_shell_history":
		c.SendShellHistory = v
	case "send_git_status":
		c.SendGitStatus = v
	case "send_system_info":
		c.SendSystemInfo = v
	case "send_env_var_names":
		c.SendEnvVarNames = v
	case "send_recent_prompts":
		c.SendRecentPrompts = v
	default:
		return false
	}
	return true
}

// SetAll 批量打开或关闭全部开关 / flip every toggle at once.
func (c *ContextConfig) SetAll(v bool) {
	for _, f := range ContextFields() {
		c.Set(f.Key, v)
	}
}

// WriteContextToggles 将全部隐私开关写回全局配置，保留文件中其余键
// WriteContextToggles persists every privacy toggle to the global
// config file, keeping any unrelated keys the user put there.
func WriteContextToggles(ctx ContextConfig) error {
	return updateGlobal(func(raw map[string]any) {
		sec, _ := raw["context"].(map[string]any)
		if sec == nil {
			sec = map[string]any{}
		}
		for _, f := range ContextFields() {
			v, _ := ctx.Get(f.Key)
			sec[f.Key] = v
		}
		raw["context"] = sec
	})
}

// WriteBackendKind 将后端选择写回全局配置
// WriteBackendKind persists the backend selection.
func WriteBackendKind(kind string) error {
	return updateGlobal(func(raw map[string]any) {
		sec, _ := raw["backend"].(map[string]any)
		if sec == nil {
			sec = map[string]any{}
		}
		sec["kind"] = kind
		raw["backend"] = sec
	})
}

// updateGlobal 以「读原文件 -> 改 map -> 整体写回」的方式修改全局配置，
// 未知键原样保留；文件不存在时从空 map 开始。
// updateGlobal edits the global config as a raw map so unknown keys
// survive a rewrite. A missing file starts from an empty map.
func updateGlobal(mutate func(map[string]any)) error {
	path := globalConfigPath()
	raw := map[string]any{}
	if b, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(stripJSONComments(b), &raw); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	mutate(raw)

	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	b = append(b, '\n')
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Package config 负责加载、合并与规范化 cmdk 的配置
// Package config loads, merges and normalizes cmdk's configuration.
//
// 配置来源优先级（低 -> 高）/ sources in ascending precedence:
//
//	内置默认值 -> 全局 config.json -> 项目 .cmdk.json -> CMDK_* 环境变量
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// 文件名约定 / file name conventions.
const (
	globalConfigName  = "config.json"
	projectConfigName = ".cmdk.json"

	dbFileName      = "cmdk.db"
	logFileName     = "cmdk.log"
	historyFileName = "prompt_history"
)

// BackendConfig 描述应答后端 / BackendConfig selects and tunes the answering backend.
type BackendConfig struct {
	// Kind 取值 auto/claude/codex/custom/mock/api
	// Kind is one of auto, claude, codex, custom, mock, api.
	Kind string `json:"kind"`

	// CustomCommand 在 kind=custom 时通过 shell 执行，提示词走 stdin
	// CustomCommand is run through the shell when kind=custom; the prompt
	// is written to its stdin.
	CustomCommand string `json:"custom_command,omitempty"`

	// TimeoutSeconds 为 0 表示不限时 / zero means no deadline.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`

	// 以下字段仅 kind=api 使用 / the rest applies to kind=api only.
	BaseURL   string `json:"base_url,omitempty"`
	Model     string `json:"model,omitempty"`
	APIKeyEnv string `json:"api_key_env,omitempty"`
}

// ContextConfig 控制上下文采集的隐私开关与容量
// ContextConfig holds the privacy toggles and capture limits for
// context assembly. Every toggle defaults to on.
type ContextConfig struct {
	SendTerminalContent bool `json:"send_terminal_content"`
	SendCurrentCommand  bool `json:"send_current_command"`
	SendCurrentProcess  bool `json:"send_current_process"`
	SendWorkingDir      bool `json:"send_working_dir"`
	SendShellHistory    bool `json:"send_shell_history"`
	SendGitStatus       bool `json:"send_git_status"`
	SendSystemInfo      bool `json:"send_system_info"`
	SendEnvVarNames     bool `json:"send_env_var_names"`
	SendRecentPrompts   bool `json:"send_recent_prompts"`

	// CaptureLines 限制回看终端输出的行数 / scrollback lines captured.
	CaptureLines int `json:"capture_lines"`
	// HistoryLines 限制 shell 历史条数 / shell history entries included.
	HistoryLines int `json:"history_lines"`
}

// ClipboardConfig 声明复制机制的尝试顺序
// ClipboardConfig orders the copy mechanisms to try.
type ClipboardConfig struct {
	// Order 中的合法值为 native/osc52/tmux
	// Valid entries are native, osc52 and tmux.
	Order []string `json:"order"`
}

// SessionConfig 管理会话持久化行为 / session persistence knobs.
type SessionConfig struct {
	// StaleAfterSeconds 之后的旧会话在打开时被丢弃
	// Sessions idle for longer than this are discarded on open.
	StaleAfterSeconds int `json:"stale_after_seconds"`
	// MaxTurns 限制注入提示词的历史轮数 / turns replayed into the prompt.
	MaxTurns int `json:"max_turns"`
}

// LogConfig 控制文件日志 / file logging knobs.
type LogConfig struct {
	// Level 为空或 off 时关闭日志 / empty or "off" disables logging.
	Level string `json:"level"`
}

// StorageConfig 指定状态目录 / StorageConfig names the state directory.
type StorageConfig struct {
	BaseDir string `json:"base_dir"`
}

// Config 是全量配置 / Config is the fully resolved configuration.
type Config struct {
	Backend   BackendConfig   `json:"backend"`
	Context   ContextConfig   `json:"context"`
	Clipboard ClipboardConfig `json:"clipboard"`
	Session   SessionConfig   `json:"session"`
	Log       LogConfig       `json:"log"`
	Storage   StorageConfig   `json:"storage"`
}

// Default 返回内置默认配置 / Default returns the built-in defaults.
func Default() Config {
	return Config{
		Backend: BackendConfig{
			Kind:      "auto",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Context: ContextConfig{
			SendTerminalContent: true,
			SendCurrentCommand:  true,
			SendCurrentProcess:  true,
			SendWorkingDir:      true,
			SendShellHistory:    true,
			SendGitStatus:       true,
			SendSystemInfo:      true,
			SendEnvVarNames:     true,
			SendRecentPrompts:   true,
			CaptureLines:        500,
			HistoryLines:        20,
		},
		Clipboard: ClipboardConfig{
			Order: []string{"native", "osc52", "tmux"},
		},
		Session: SessionConfig{
			StaleAfterSeconds: 3600,
			MaxTurns:          20,
		},
		Log: LogConfig{
			Level: "info",
		},
		Storage: StorageConfig{
			BaseDir: "~/.cmdk",
		},
	}
}

// fileConfig 是磁盘上的配置镜像，指针字段用于区分「未设置」与「显式 false/0」
// fileConfig mirrors Config on disk. Pointer fields distinguish an
// absent key from an explicit false/zero so partial files only
// override what they mention.
type fileConfig struct {
	Backend *struct {
		Kind           *string `json:"kind"`
		CustomCommand  *string `json:"custom_command"`
		TimeoutSeconds *int    `json:"timeout_seconds"`
		BaseURL        *string `json:"base_url"`
		Model          *string `json:"model"`
		APIKeyEnv      *string `json:"api_key_env"`
	} `json:"backend"`
	Context *struct {
		SendTerminalContent *bool `json:"send_terminal_content"`
		SendCurrentCommand  *bool `json:"send_current_command"`
		SendCurrentProcess  *bool `json:"send_current_process"`
		SendWorkingDir      *bool `json:"send_working_dir"`
		SendShellHistory    *bool `json:"send_shell_history"`
		SendGitStatus       *bool `json:"send_git_status"`
		SendSystemInfo      *bool `json:"send_system_info"`
		SendEnvVarNames     *bool `json:"send_env_var_names"`
		SendRecentPrompts   *bool `json:"send_recent_prompts"`
		CaptureLines        *int  `json:"capture_lines"`
		HistoryLines        *int  `json:"history_lines"`
	} `json:"context"`
	Clipboard *struct {
		Order *[]string `json:"order"`
	} `json:"clipboard"`
	Session *struct {
		StaleAfterSeconds *int `json:"stale_after_seconds"`
		MaxTurns          *int `json:"max_turns"`
	} `json:"session"`
	Log *struct {
		Level *string `json:"level"`
	} `json:"log"`
	Storage *struct {
		BaseDir *string `json:"base_dir"`
	} `json:"storage"`
}

// Load 依次套用全局配置、项目配置与环境变量
// Load layers the global file, the project file and the environment
// over the defaults. A missing file is not an error; a malformed one is.
func Load() (Config, error) {
	cfg := Default()

	if p := globalConfigPath(); p != "" {
		if err := applyFile(&cfg, p); err != nil {
			return cfg, err
		}
	}
	if p := projectConfigPath(); p != "" {
		if err := applyFile(&cfg, p); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	normalize(&cfg)
	return cfg, nil
}

// globalConfigPath 指向状态目录下的 config.json
// globalConfigPath points into the state directory.
func globalConfigPath() string {
	return filepath.Join(Dir(), globalConfigName)
}

// projectConfigPath 从当前目录向上查找 .cmdk.json
// projectConfigPath walks from the working directory up to the
// filesystem root looking for .cmdk.json.
func projectConfigPath() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		p := filepath.Join(dir, projectConfigName)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Dir 返回状态目录：优先 CMDK_DIR，否则 ~/.cmdk
// Dir returns the state directory: $CMDK_DIR when set, else ~/.cmdk.
func Dir() string {
	if v := strings.TrimSpace(os.Getenv("CMDK_DIR")); v != "" {
		if p, err := expandPath(v); err == nil {
			return p
		}
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cmdk"
	}
	return filepath.Join(home, ".cmdk")
}

// applyFile 将一个 JSONC 文件合并进 cfg / merge one JSONC file into cfg.
func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var fc fileConfig
	if err := json.Unmarshal(stripJSONComments(raw), &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	mergeFile(cfg, &fc)
	return nil
}

// mergeFile 只覆盖文件中出现的键 / only keys present in the file override.
func mergeFile(cfg *Config, fc *fileConfig) {
	if b := fc.Backend; b != nil {
		if b.Kind != nil {
			cfg.Backend.Kind = *b.Kind
		}
		if b.CustomCommand != nil {
			cfg.Backend.CustomCommand = *b.CustomCommand
		}
		if b.TimeoutSeconds != nil {
			cfg.Backend.TimeoutSeconds = *b.TimeoutSeconds
		}
		if b.BaseURL != nil {
			cfg.Backend.BaseURL = *b.BaseURL
		}
		if b.Model != nil {
			cfg.Backend.Model = *b.Model
		}
		if b.APIKeyEnv != nil {
			cfg.Backend.APIKeyEnv = *b.APIKeyEnv
		}
	}
	if c := fc.Context; c != nil {
		if c.SendTerminalContent != nil {
			cfg.Context.SendTerminalContent = *c.SendTerminalContent
		}
		if c.SendCurrentCommand != nil {
			cfg.Context.SendCurrentCommand = *c.SendCurrentCommand
		}
		if c.SendCurrentProcess != nil {
			cfg.Context.SendCurrentProcess = *c.SendCurrentProcess
		}
		if c.SendWorkingDir != nil {
			cfg.Context.SendWorkingDir = *c.SendWorkingDir
		}
		if c.SendShellHistory != nil {
			cfg.Context.SendShellHistory = *c.SendShellHistory
		}
		if c.SendGitStatus != nil {
			cfg.Context.SendGitStatus = *c.SendGitStatus
		}
		if c.SendSystemInfo != nil {
			cfg.Context.SendSystemInfo = *c.SendSystemInfo
		}
		if c.SendEnvVarNames != nil {
			cfg.Context.SendEnvVarNames = *c.SendEnvVarNames
		}
		if c.SendRecentPrompts != nil {
			cfg.Context.SendRecentPrompts = *c.SendRecentPrompts
		}
		if c.CaptureLines != nil {
			cfg.Context.CaptureLines = *c.CaptureLines
		}
		if c.HistoryLines != nil {
			cfg.Context.HistoryLines = *c.HistoryLines
		}
	}
	if c := fc.Clipboard; c != nil && c.Order != nil {
		cfg.Clipboard.Order = append([]string(nil), (*c.Order)...)
	}
	if s := fc.Session; s != nil {
		if s.StaleAfterSeconds != nil {
			cfg.Session.StaleAfterSeconds = *s.StaleAfterSeconds
		}
		if s.MaxTurns != nil {
			cfg.Session.MaxTurns = *s.MaxTurns
		}
	}
	if l := fc.Log; l != nil && l.Level != nil {
		cfg.Log.Level = *l.Level
	}
	if s := fc.Storage; s != nil && s.BaseDir != nil {
		cfg.Storage.BaseDir = *s.BaseDir
	}
}

// applyEnv 用 CMDK_* 环境变量做最终覆盖 / CMDK_* variables win last.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("CMDK_BACKEND")); v != "" {
		cfg.Backend.Kind = v
	}
	if v := strings.TrimSpace(os.Getenv("CMDK_MODEL")); v != "" {
		cfg.Backend.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("CMDK_BASE_URL")); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("CMDK_LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("CMDK_DIR")); v != "" {
		cfg.Storage.BaseDir = v
	}
}

// normalize 回填非法或缺失的值 / normalize backfills invalid values.
func normalize(cfg *Config) {
	def := Default()

	switch strings.ToLower(strings.TrimSpace(cfg.Backend.Kind)) {
	case "auto", "claude", "codex", "custom", "mock", "api":
		cfg.Backend.Kind = strings.ToLower(strings.TrimSpace(cfg.Backend.Kind))
	default:
		// 未知后端不报错，退回 auto / unknown kinds fall back to auto.
		cfg.Backend.Kind = "auto"
	}
	if cfg.Backend.TimeoutSeconds < 0 {
		cfg.Backend.TimeoutSeconds = 0
	}
	if strings.TrimSpace(cfg.Backend.APIKeyEnv) == "" {
		cfg.Backend.APIKeyEnv = def.Backend.APIKeyEnv
	}

	if cfg.Context.CaptureLines <= 0 {
		cfg.Context.CaptureLines = def.Context.CaptureLines
	}
	if cfg.Context.HistoryLines <= 0 {
		cfg.Context.HistoryLines = def.Context.HistoryLines
	}

	order := cfg.Clipboard.Order[:0]
	for _, m := range cfg.Clipboard.Order {
		switch strings.ToLower(strings.TrimSpace(m)) {
		case "native", "osc52", "tmux":
			order = append(order, strings.ToLower(strings.TrimSpace(m)))
		}
	}
	if len(order) == 0 {
		order = def.Clipboard.Order
	}
	cfg.Clipboard.Order = order

	if cfg.Session.StaleAfterSeconds <= 0 {
		cfg.Session.StaleAfterSeconds = def.Session.StaleAfterSeconds
	}
	if cfg.Session.MaxTurns <= 0 {
		cfg.Session.MaxTurns = def.Session.MaxTurns
	}

	if strings.TrimSpace(cfg.Storage.BaseDir) == "" {
		cfg.Storage.BaseDir = def.Storage.BaseDir
	}
	if p, err := expandPath(cfg.Storage.BaseDir); err == nil {
		cfg.Storage.BaseDir = p
	}
}

// DBPath 返回会话数据库路径 / path of the session database.
func (c Config) DBPath() string {
	return filepath.Join(c.Storage.BaseDir, dbFileName)
}

// LogPath 返回日志文件路径（level=off 时为空）
// LogPath returns the log file path, empty when logging is off.
func (c Config) LogPath() string {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "", "off", "none":
		return ""
	}
	return filepath.Join(c.Storage.BaseDir, logFileName)
}

// HistoryPath 返回交互输入历史文件路径 / readline history file path.
func (c Config) HistoryPath() string {
	return filepath.Join(c.Storage.BaseDir, historyFileName)
}

// expandPath 展开 ~ 与环境变量 / expand ~ and environment variables.
func expandPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", fmt.Errorf("empty path")
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if p == "~" {
			p = home
		} else {
			p = filepath.Join(home, p[2:])
		}
	}
	return filepath.Clean(os.ExpandEnv(p)), nil
}

// stripJSONComments 去掉 // 与 /* */ 注释，字符串内的内容保持原样
// stripJSONComments removes // and /* */ comments while leaving
// string literals untouched, so config files may be JSONC.
func stripJSONComments(b []byte) []byte {
	out := make([]byte, 0, len(b))
	inStr := false
	esc := false
	for i := 0; i < len(b); i++ {
		c := b[i]
		if inStr {
			out = append(out, c)
			if esc {
				esc = false
			} else if c == '\\' {
				esc = true
			} else if c == '"' {
				inStr = false
			}
			continue
		}
		switch {
		case c == '"':
			inStr = true
			out = append(out, c)
		case c == '/' && i+1 < len(b) && b[i+1] == '/':
			for i < len(b) && b[i] != '\n' {
				i++
			}
			if i < len(b) {
				out = append(out, '\n')
			}
		case c == '/' && i+1 < len(b) && b[i+1] == '*':
			i += 2
			for i+1 < len(b) && !(b[i] == '*' && b[i+1] == '/') {
				i++
			}
			i++ // 跳过 '/' / skip the trailing slash
		default:
			out = append(out, c)
		}
	}
	return out
}

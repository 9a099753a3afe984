package keys

import "unicode/utf8"

// vocab 按键标记词表，标记拼写到目标端按键名的唯一映射
// vocab is the single vocabulary table mapping tag spellings to the key
// names the target surface understands (tmux send-keys naming). Parsing
// and detection both resolve through this table so they cannot diverge.
var vocab = map[string]string{
	"Esc":   "Escape",
	"Enter": "Enter",
	"CR":    "Enter",
	"Tab":   "Tab",
	"BS":    "BSpace",
	"Del":   "DC",
	"Up":    "Up",
	"Down":  "Down",
	"Left":  "Left",
	"Right": "Right",
	"Space": "Space",
	"F1":    "F1",
	"F2":    "F2",
	"F3":    "F3",
	"F4":    "F4",
	"F5":    "F5",
	"F6":    "F6",
	"F7":    "F7",
	"F8":    "F8",
	"F9":    "F9",
	"F10":   "F10",
	"F11":   "F11",
	"F12":   "F12",
}

// resolveKey 将标记名解析为规范按键名
// resolveKey resolves a tag name to its normalized key name. Modifier
// forms C-x, M-x and A-x carry exactly one character with case
// preserved; A- and M- normalize to the same Alt signal.
func resolveKey(name string) (string, bool) {
	if key, ok := vocab[name]; ok {
		return key, true
	}
	r, ok := modifierChar(name)
	if !ok {
		return "", false
	}
	switch name[0] {
	case 'C':
		return "C-" + string(r), true
	case 'M', 'A':
		return "M-" + string(r), true
	}
	return "", false
}

// modifierChar 提取修饰键后的单个字符
// modifierChar extracts the single character following a C-, M- or A-
// prefix. Anything longer than one character is not a modifier tag.
func modifierChar(name string) (rune, bool) {
	if len(name) < 3 || name[1] != '-' {
		return 0, false
	}
	switch name[0] {
	case 'C', 'M', 'A':
	default:
		return 0, false
	}
	r, size := utf8.DecodeRuneInString(name[2:])
	if r == utf8.RuneError || size != len(name)-2 {
		return 0, false
	}
	return r, true
}

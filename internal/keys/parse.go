// Package keys 解析并回放响应文本中的尖括号按键标记
// Package keys parses the bracketed key-tag mini language embedded in
// response text (<Esc>, <C-c>, <Enter>, ...) and replays it as discrete
// key presses against a target surface.
package keys

import (
	"fmt"
	"strings"
)

// TagKind 标记类别 / TagKind classifies one parsed tag.
type TagKind int

const (
	// TagLiteral 普通文本段 / TagLiteral is a plain text run.
	TagLiteral TagKind = iota
	// TagKey 已识别的按键标记 / TagKey is a recognized named key.
	TagKey
	// TagUnresolved 未识别的尖括号标记，原样回放
	// TagUnresolved is a bracketed tag outside the vocabulary; it
	// replays as the literal bracketed text, never dropped.
	TagUnresolved
)

// Tag 响应文本解析出的一个单元
// Tag is one parsed unit of response text. Text always holds the
// original source bytes, so concatenating the Text of every parsed tag
// reconstructs the input exactly.
type Tag struct {
	Kind TagKind
	Text string
	Key  string // normalized key name, set only for TagKey
}

// Parse 将 s 分解为有序标记序列，拼接各标记的 Text 可逐字节还原 s
// Parse decomposes s into an ordered tag sequence. The round trip
// concat(tag.Text) == s holds for every input; replay preserves the
// original ordering.
func Parse(s string) []Tag {
	var tags []Tag
	for len(s) > 0 {
		open := strings.IndexByte(s, '<')
		if open < 0 {
			tags = append(tags, Tag{Kind: TagLiteral, Text: s})
			break
		}
		if open > 0 {
			tags = append(tags, Tag{Kind: TagLiteral, Text: s[:open]})
			s = s[open:]
		}
		end := strings.IndexByte(s, '>')
		if end < 0 {
			// 没有闭合的 '>'，余下全部是文本
			// No closing '>', the rest is literal.
			tags = append(tags, Tag{Kind: TagLiteral, Text: s})
			break
		}
		// Tag names never contain '<'; when one appears before the
		// closer, this '<' is plain text and the scan resyncs there.
		if inner := strings.IndexByte(s[1:end], '<'); inner >= 0 {
			tags = append(tags, Tag{Kind: TagLiteral, Text: s[:inner+1]})
			s = s[inner+1:]
			continue
		}
		name := s[1:end]
		raw := s[:end+1]
		if key, ok := resolveKey(name); ok {
			tags = append(tags, Tag{Kind: TagKey, Text: raw, Key: key})
		} else {
			tags = append(tags, Tag{Kind: TagUnresolved, Text: raw})
		}
		s = s[end+1:]
	}
	return tags
}

// ContainsSpecialKeys 判断文本是否包含至少一个可识别按键标记
// ContainsSpecialKeys reports whether s contains at least one
// recognized key tag. Unrecognized bracket pairs do not count, so text
// that merely uses angle brackets stays literal.
func ContainsSpecialKeys(s string) bool {
	if !strings.Contains(s, "<") {
		return false
	}
	for _, t := range Parse(s) {
		if t.Kind == TagKey {
			return true
		}
	}
	return false
}

// Legend 生成标记序列的可读描述，供回放前预览
// Legend renders a short human-readable description of a tag sequence,
// shown to the user before replay.
func Legend(tags []Tag) string {
	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		switch t.Kind {
		case TagKey:
			parts = append(parts, "["+t.Key+"]")
		default:
			parts = append(parts, fmt.Sprintf("%q", t.Text))
		}
	}
	return strings.Join(parts, " ")
}

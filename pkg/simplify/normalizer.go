package simplify

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Charset 可表示字符集策略
type Charset string

const (
	// CharsetASCII 仅保留可打印 ASCII（0x20-0x7E）
	CharsetASCII Charset = "ascii"
	// CharsetLatin1 保留可打印 ASCII 与 Latin-1 补充字符
	CharsetLatin1 Charset = "latin1"
	// CharsetUnicode 保留所有可打印 Unicode 字符
	CharsetUnicode Charset = "unicode"
)

// ParseCharset 解析字符集名称，空字符串返回默认的 ASCII
func ParseCharset(name string) (Charset, error) {
	switch Charset(strings.ToLower(strings.TrimSpace(name))) {
	case "", CharsetASCII:
		return CharsetASCII, nil
	case CharsetLatin1:
		return CharsetLatin1, nil
	case CharsetUnicode:
		return CharsetUnicode, nil
	default:
		return "", InvalidParameterError("unknown charset %q (want ascii, latin1 or unicode)", name)
	}
}

// Normalizer 文本规范化器
//
// 不可表示的字符替换为空格（保留词边界），连续空白折叠为单个空格，
// 最后去除首尾空白。Normalize 是幂等的纯函数。
type Normalizer struct {
	charset Charset
	allow   func(rune) bool
}

// NewNormalizer 创建规范化器，未知字符集回退到 ASCII
func NewNormalizer(charset Charset) *Normalizer {
	n := &Normalizer{charset: charset}
	switch charset {
	case CharsetLatin1:
		n.allow = func(r rune) bool {
			return isPrintableASCII(r) || (r >= 0xA0 && r <= 0xFF)
		}
	case CharsetUnicode:
		n.allow = unicode.IsPrint
	default:
		n.charset = CharsetASCII
		n.allow = isPrintableASCII
	}
	return n
}

// Charset 返回字符集策略
func (n *Normalizer) Charset() Charset {
	return n.charset
}

// Normalize 规范化文本
func (n *Normalizer) Normalize(text string) string {
	if text == "" {
		return ""
	}

	// 非 ASCII 策略先做 NFC 组合，避免分解形式的重音字符被拆成空格
	if n.charset != CharsetASCII {
		text = norm.NFC.String(text)
	}

	var b strings.Builder
	b.Grow(len(text))

	pendingSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) || !n.allow(r) {
			pendingSpace = true
			continue
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
		b.WriteRune(r)
	}

	return b.String()
}

func isPrintableASCII(r rune) bool {
	return r >= 0x20 && r <= 0x7E
}

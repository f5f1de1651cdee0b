package idl

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// DiscriminatorLen 是指令判别前缀的固定宽度（Anchor 规范为 8 字节）。
const DiscriminatorLen = 8

// AnchorDiscriminator 按 Anchor 规范推导指令的 8 字节判别前缀：
// sha256("global:" + snake_case(指令名)) 的前 8 字节。
func AnchorDiscriminator(name string) [DiscriminatorLen]byte {
	sum := sha256.Sum256([]byte("global:" + toSnakeCase(name)))
	var d [DiscriminatorLen]byte
	copy(d[:], sum[:DiscriminatorLen])
	return d
}

// DiscriminatorHex 取数据前 8 字节，输出定长 16 字符的 hex 前缀。
// 不足 8 字节时右侧补零，保证失败样本可以按前缀做频次统计。
func DiscriminatorHex(data []byte) string {
	var d [DiscriminatorLen]byte
	copy(d[:], data)
	return hex.EncodeToString(d[:])
}

// toSnakeCase 将 camelCase 指令名转为 snake_case（IDL 中两种写法都存在）。
func toSnakeCase(s string) string {
	if strings.Contains(s, "_") {
		return strings.ToLower(s)
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

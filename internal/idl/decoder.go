package idl

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/near/borsh-go"
)

var (
	ErrDataTooShort         = errors.New("instruction data shorter than discriminator")
	ErrUnknownDiscriminator = errors.New("discriminator not declared in idl")
)

// Decoder 由一份 IDL 构建，按 8 字节判别前缀将指令字节流映射回声明的指令。
// 判别命中后再按声明的参数布局走一遍 borsh 编码，截断的载荷视为解码失败。
type Decoder struct {
	table map[[DiscriminatorLen]byte]ixLayout
}

type ixLayout struct {
	name string
	args []Field
}

// NewDecoder 为 IDL 中的每条指令建立判别前缀索引。
// IDL 自带 discriminator 时优先使用，否则按 Anchor 规范推导。
func NewDecoder(doc *Document) *Decoder {
	table := make(map[[DiscriminatorLen]byte]ixLayout, len(doc.Instructions))
	for _, ix := range doc.Instructions {
		var key [DiscriminatorLen]byte
		if len(ix.Discriminator) == DiscriminatorLen {
			for i, v := range ix.Discriminator {
				key[i] = byte(v)
			}
		} else {
			key = AnchorDiscriminator(ix.Name)
		}
		table[key] = ixLayout{name: ix.Name, args: ix.Args}
	}
	return &Decoder{table: table}
}

// Decode 尝试将一条指令载荷解码为 IDL 声明的指令名。
func (d *Decoder) Decode(data []byte) (string, error) {
	if len(data) < DiscriminatorLen {
		return "", ErrDataTooShort
	}
	var key [DiscriminatorLen]byte
	copy(key[:], data)
	layout, ok := d.table[key]
	if !ok {
		return "", ErrUnknownDiscriminator
	}

	off := DiscriminatorLen
	for _, arg := range layout.args {
		next, err := walkType(arg.Type, data, off)
		if err != nil {
			return "", fmt.Errorf("instruction %s arg %s: %w", layout.name, arg.Name, err)
		}
		if next < 0 {
			// 遇到无法静态度量的类型（defined 等），剩余字节不再校验
			return layout.name, nil
		}
		off = next
	}
	return layout.name, nil
}

// typeNode 覆盖 IDL 类型的对象写法：{"option":T} / {"vec":T} / {"array":[T,n]} / {"defined":...}
type typeNode struct {
	Option  json.RawMessage   `json:"option"`
	Vec     json.RawMessage   `json:"vec"`
	Array   []json.RawMessage `json:"array"`
	Defined json.RawMessage   `json:"defined"`
}

// walkType 按 borsh 布局消费 buf[off:] 中的一个 raw 类型值，返回新的偏移。
// 返回 -1 表示该类型无法静态走读（调用方应接受剩余字节）。
func walkType(raw json.RawMessage, buf []byte, off int) (int, error) {
	if name, ok := rawTypeString(raw); ok {
		return walkPrimitive(name, buf, off)
	}

	var node typeNode
	if err := json.Unmarshal(raw, &node); err != nil {
		return -1, nil
	}

	switch {
	case node.Option != nil:
		if off+1 > len(buf) {
			return 0, errors.New("truncated option flag")
		}
		flag := buf[off]
		off++
		if flag == 0 {
			return off, nil
		}
		return walkType(node.Option, buf, off)

	case node.Vec != nil:
		count, off, err := readLen(buf, off)
		if err != nil {
			return 0, err
		}
		for i := 0; i < count; i++ {
			next, err := walkType(node.Vec, buf, off)
			if err != nil {
				return 0, err
			}
			if next < 0 {
				return -1, nil
			}
			off = next
		}
		return off, nil

	case len(node.Array) == 2:
		var n int
		if err := json.Unmarshal(node.Array[1], &n); err != nil || n < 0 {
			return -1, nil
		}
		for i := 0; i < n; i++ {
			next, err := walkType(node.Array[0], buf, off)
			if err != nil {
				return 0, err
			}
			if next < 0 {
				return -1, nil
			}
			off = next
		}
		return off, nil

	default:
		// defined / enum 等用户类型，IDL 内无完整布局信息
		return -1, nil
	}
}

// walkPrimitive 消费一个基础类型。定宽类型切出精确片段交给 borsh 反序列化，
// 变长类型（string/bytes）先读 u32 长度前缀再整体切片。
func walkPrimitive(name string, buf []byte, off int) (int, error) {
	switch name {
	case "bool":
		var v bool
		return borshFixed(&v, 1, buf, off)
	case "u8":
		var v uint8
		return borshFixed(&v, 1, buf, off)
	case "i8":
		var v int8
		return borshFixed(&v, 1, buf, off)
	case "u16":
		var v uint16
		return borshFixed(&v, 2, buf, off)
	case "i16":
		var v int16
		return borshFixed(&v, 2, buf, off)
	case "u32":
		var v uint32
		return borshFixed(&v, 4, buf, off)
	case "i32":
		var v int32
		return borshFixed(&v, 4, buf, off)
	case "f32":
		var v float32
		return borshFixed(&v, 4, buf, off)
	case "u64":
		var v uint64
		return borshFixed(&v, 8, buf, off)
	case "i64":
		var v int64
		return borshFixed(&v, 8, buf, off)
	case "f64":
		var v float64
		return borshFixed(&v, 8, buf, off)
	case "u128", "i128":
		if off+16 > len(buf) {
			return 0, fmt.Errorf("truncated %s", name)
		}
		return off + 16, nil
	case "publicKey", "pubkey":
		if off+32 > len(buf) {
			return 0, fmt.Errorf("truncated %s", name)
		}
		return off + 32, nil
	case "string":
		n, body, err := readLen(buf, off)
		if err != nil {
			return 0, err
		}
		if body+n > len(buf) {
			return 0, errors.New("truncated string")
		}
		var v string
		if err := borsh.Deserialize(&v, buf[off:body+n]); err != nil {
			return 0, fmt.Errorf("borsh string: %w", err)
		}
		return body + n, nil
	case "bytes":
		n, body, err := readLen(buf, off)
		if err != nil {
			return 0, err
		}
		if body+n > len(buf) {
			return 0, errors.New("truncated bytes")
		}
		return body + n, nil
	default:
		return -1, nil
	}
}

// borshFixed 对定宽类型做严格切片反序列化，避免吞掉越界字节。
func borshFixed(dst any, size int, buf []byte, off int) (int, error) {
	if off+size > len(buf) {
		return 0, fmt.Errorf("truncated field: need %d bytes at %d, have %d", size, off, len(buf)-off)
	}
	if err := borsh.Deserialize(dst, buf[off:off+size]); err != nil {
		return 0, fmt.Errorf("borsh: %w", err)
	}
	return off + size, nil
}

func readLen(buf []byte, off int) (int, int, error) {
	if off+4 > len(buf) {
		return 0, 0, errors.New("truncated length prefix")
	}
	n := int(binary.LittleEndian.Uint32(buf[off : off+4]))
	return n, off + 4, nil
}

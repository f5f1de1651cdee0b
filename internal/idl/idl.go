package idl

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Document 表示一份 Anchor 风格的 IDL 文档（协议声明的接口定义）。
// 对本引擎只读；Raw 与 Hash 在解析时填充，用于结果明细与审计。
type Document struct {
	Name         string        `json:"name"`
	Version      string        `json:"version"`
	Address      string        `json:"address,omitempty"` // 顶层 address 字段（部分 IDL 生成器会写入）
	Metadata     *Metadata     `json:"metadata,omitempty"`
	Instructions []Instruction `json:"instructions"`
	Accounts     []Account     `json:"accounts,omitempty"`
	Constants    []Constant    `json:"constants,omitempty"`

	Raw  []byte `json:"-"`
	Hash string `json:"-"` // 原始文档的 sha256，hex 编码
}

type Metadata struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
	Address string `json:"address,omitempty"`
}

type Instruction struct {
	Name     string               `json:"name"`
	Accounts []InstructionAccount `json:"accounts"`
	Args     []Field              `json:"args"`

	// Anchor 0.30+ 直接在 IDL 中给出 8 字节 discriminator；
	// 缺省时按 sha256("global:<snake_case_name>") 前 8 字节推导。
	Discriminator []int `json:"discriminator,omitempty"`
}

type InstructionAccount struct {
	Name     string `json:"name"`
	IsMut    bool   `json:"isMut"`
	IsSigner bool   `json:"isSigner"`
}

type Account struct {
	Name string `json:"name"`
}

// Field 的 Type 可能是字符串（"u64"）或对象（{"vec":"u8"} 等），保留原始 JSON 延迟解释。
type Field struct {
	Name string          `json:"name"`
	Type json.RawMessage `json:"type"`
}

type Constant struct {
	Name  string          `json:"name"`
	Type  json.RawMessage `json:"type,omitempty"`
	Value string          `json:"value,omitempty"`
}

// TypeString 返回字段类型的字符串形式；类型为对象时返回 false。
func (f Field) TypeString() (string, bool) {
	return rawTypeString(f.Type)
}

func (c Constant) TypeString() (string, bool) {
	return rawTypeString(c.Type)
}

func rawTypeString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// StringValue 返回常量的字符串值（去除 JSON 转义引号）。
func (c Constant) StringValue() string {
	return strings.Trim(c.Value, `"`)
}

// Parse 解析 IDL 文档并计算内容哈希。
func Parse(raw []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse idl: %w", err)
	}
	if doc.Name == "" && doc.Metadata != nil {
		doc.Name = doc.Metadata.Name
	}
	sum := sha256.Sum256(raw)
	doc.Raw = raw
	doc.Hash = hex.EncodeToString(sum[:])
	return &doc, nil
}

// EmbeddedAddress 依次尝试 metadata.address 与顶层 address，返回文档内声明的程序地址。
func (d *Document) EmbeddedAddress() string {
	if d.Metadata != nil && d.Metadata.Address != "" {
		return d.Metadata.Address
	}
	return d.Address
}

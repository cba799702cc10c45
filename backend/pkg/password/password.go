// Package password 封装 bcrypt 密码哈希。
package password

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// unusablePrefix 不可用密码前缀：以此开头的哈希永远无法通过校验
const unusablePrefix = "!"

// MaxLength bcrypt 只接受不超过 72 字节的明文
const MaxLength = 72

var (
	// ErrMismatch 密码不匹配
	ErrMismatch = errors.New("密码不匹配")
	// ErrTooLong 明文超过 MaxLength 字节
	ErrTooLong = errors.New("密码长度不能超过 72 字节")
)

// CheckLength 校验明文长度是否在 bcrypt 可处理范围内
func CheckLength(raw string) error {
	if len(raw) > MaxLength {
		return ErrTooLong
	}
	return nil
}

// Hasher 密码哈希器
type Hasher struct {
	cost int
}

// NewHasher 创建指定 cost 的哈希器，cost 超出 bcrypt 范围时使用默认值
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Make 生成密码哈希。空密码返回不可用密码。
func (h *Hasher) Make(raw string) (string, error) {
	if raw == "" {
		return Unusable()
	}
	if err := CheckLength(raw); err != nil {
		return "", err
	}
	b, err := bcrypt.GenerateFromPassword([]byte(raw), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Check 校验明文密码与哈希是否匹配
func (h *Hasher) Check(raw, encoded string) error {
	if raw == "" || !IsUsable(encoded) {
		return ErrMismatch
	}
	if err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(raw)); err != nil {
		return ErrMismatch
	}
	return nil
}

// Unusable 生成不可用密码：前缀 + 随机串，保证各账号互不相同
func Unusable() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return unusablePrefix + hex.EncodeToString(buf), nil
}

// IsUsable 判断哈希是否为可用密码
func IsUsable(encoded string) bool {
	return encoded != "" && !strings.HasPrefix(encoded, unusablePrefix)
}

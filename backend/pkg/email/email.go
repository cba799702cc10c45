// Package email 提供邮箱地址规范化。
package email

import "strings"

// Normalize 规范化邮箱地址：去除首尾空白并将域名部分转为小写。
// 本地部分（@ 之前）保持原样；不含 @ 的输入仅去除空白后原样返回，
// 格式是否合法由字段校验负责。
func Normalize(addr string) string {
	addr = strings.TrimSpace(addr)
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return addr
	}
	return addr[:at] + "@" + strings.ToLower(addr[at+1:])
}

// Equal 按不区分大小写的方式比较两个规范化后的邮箱
func Equal(a, b string) bool {
	return strings.EqualFold(Normalize(a), Normalize(b))
}

package validator

import (
	"regexp"
	"strings"
)

// 例: TUPV-23-0001（大文字4文字-2桁-4桁）
var studentIDPattern = regexp.MustCompile(`^[A-Z]{4}-\d{2}-\d{4}$`)

// IsValidStudentID は厳密に形式だけを見る（大文字化はしない）
func IsValidStudentID(s string) bool {
	return studentIDPattern.MatchString(s)
}

// NormalizeStudentID は入力欄と同じく前後の空白を落として大文字にする
func NormalizeStudentID(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

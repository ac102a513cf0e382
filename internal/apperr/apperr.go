// Package apperr defines the error taxonomy shared by the case store, the
// analysis cache and the command interpreter.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a stable identifier for a failure class.
type Code string

const (
	// CodeNotFound indicates a case, command or material is absent.
	CodeNotFound Code = "NOT_FOUND"
	// CodeValidation indicates a missing argument or an invalid value.
	CodeValidation Code = "VALIDATION"
	// CodeNoMaterials indicates analysis was requested for a case without materials.
	CodeNoMaterials Code = "NO_MATERIALS"
	// CodePersistence indicates a filesystem read or write failed.
	CodePersistence Code = "PERSISTENCE"
	// CodeCollaborator indicates the analysis engine failed.
	CodeCollaborator Code = "COLLABORATOR"
	// CodeTemplateMissing indicates the case template directory is gone.
	CodeTemplateMissing Code = "TEMPLATE_MISSING"
)

// Error carries a code, a user-facing message and an optional corrective hint.
type Error struct {
	Code    Code
	Message string
	Hint    string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// WithHint returns a copy of e carrying hint.
func (e *Error) WithHint(hint string) *Error {
	c := *e
	c.Hint = hint
	return &c
}

func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func NoMaterials(caseName string) *Error {
	return &Error{
		Code:    CodeNoMaterials,
		Message: fmt.Sprintf("案件 \"%s\" 尚无材料，无法分析", caseName),
		Hint:    "请先使用 添加材料：<名称> <内容> 上传案件材料",
	}
}

// Persistence wraps an I/O failure with the operation that caused it.
func Persistence(op string, err error) *Error {
	return &Error{Code: CodePersistence, Message: op, Err: err}
}

func Collaborator(err error) *Error {
	return &Error{Code: CodeCollaborator, Message: "analysis engine failed", Err: err}
}

func TemplateMissing(path string) *Error {
	return &Error{
		Code:    CodeTemplateMissing,
		Message: fmt.Sprintf("案件模板目录不存在: %s", path),
		Hint:    "运行 casebook doctor --fix 重建模板",
	}
}

// Is reports whether err (or anything it wraps) is an *Error with the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HintOf returns the corrective hint carried by err, if any.
func HintOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Hint
	}
	return ""
}

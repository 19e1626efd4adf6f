package v1

import (
	"errors"
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// NewResponse 按错误码包装返回数据，CLI 的 --json 输出沿用同一结构
func NewResponse(err error, data interface{}) Response {
	if err == nil {
		err = ErrSuccess
	}
	return Response{Code: ErrorCode(err), Message: err.Error(), Data: data}
}

type Error struct {
	Code    int
	Message string
}

var errorCodeMap = map[error]int{}

func newError(code int, msg string) error {
	err := errors.New(msg)
	errorCodeMap[err] = code
	return err
}

func (e Error) Error() string {
	return e.Message
}

// ErrorCode 返回 err 链上第一个已注册错误的错误码，未注册的错误视为 500
func ErrorCode(err error) int {
	if err == nil {
		return 0
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		if code, ok := errorCodeMap[e]; ok {
			return code
		}
	}
	for registered, code := range errorCodeMap {
		if errors.Is(err, registered) {
			return code
		}
	}
	return 500
}

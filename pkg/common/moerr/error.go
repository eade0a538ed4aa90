// Copyright 2021 - 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package moerr

import (
	"errors"
	"fmt"
)

const (
	// Ok is not an error.
	Ok uint16 = 0

	// Group 1: internal errors
	ErrStart    uint16 = 20100
	ErrInternal uint16 = 20101
	ErrNYI      uint16 = 20102
	ErrOOM      uint16 = 20103

	// Group 2: invalid input
	ErrInvalidInput uint16 = 20300
	ErrInvalidArg   uint16 = 20301
	ErrOutOfRange   uint16 = 20302

	// Group 3: unexpected state
	ErrInvalidState  uint16 = 20400
	ErrEmptyVector   uint16 = 20401
	ErrLengthTooLong uint16 = 20402

	// Group End: max value of error code
	ErrEnd uint16 = 65535
)

type moErrorMsgItem struct {
	errorMsgOrFormat string
}

var errorMsgRefer = map[uint16]moErrorMsgItem{
	ErrInternal:      {"internal error: %s"},
	ErrNYI:           {"%s is not yet implemented"},
	ErrOOM:           {"out of memory"},
	ErrInvalidInput:  {"invalid input: %s"},
	ErrInvalidArg:    {"invalid argument %s, bad value %v"},
	ErrOutOfRange:    {"index %d out of range [0, %d)"},
	ErrInvalidState:  {"invalid state %s"},
	ErrEmptyVector:   {"vector is empty"},
	ErrLengthTooLong: {"requested length %d exceeds limit %d"},
}

type Error struct {
	code    uint16
	message string
}

func newError(code uint16, args ...any) *Error {
	item, has := errorMsgRefer[code]
	if !has {
		panic(fmt.Sprintf("missing error code: %d", code))
	}
	if len(args) == 0 {
		return &Error{code: code, message: item.errorMsgOrFormat}
	}
	return &Error{
		code:    code,
		message: fmt.Sprintf(item.errorMsgOrFormat, args...),
	}
}

func (e *Error) Error() string {
	return e.message
}

func (e *Error) ErrorCode() uint16 {
	return e.code
}

// IsMoErrCode reports whether e is a moerr with the given code.
func IsMoErrCode(e error, rc uint16) bool {
	if e == nil {
		return rc == Ok
	}
	var me *Error
	if !errors.As(e, &me) {
		return false
	}
	return me.code == rc
}

// oomError is a static instance. OOM must not allocate on the error path.
var oomError = &Error{code: ErrOOM, message: "out of memory"}

func NewOOM() *Error {
	return oomError
}

func NewInternalError(msg string, args ...any) *Error {
	return newError(ErrInternal, fmt.Sprintf(msg, args...))
}

func NewNYI(msg string) *Error {
	return newError(ErrNYI, msg)
}

func NewInvalidInput(msg string, args ...any) *Error {
	return newError(ErrInvalidInput, fmt.Sprintf(msg, args...))
}

func NewInvalidArg(arg string, val any) *Error {
	return newError(ErrInvalidArg, arg, val)
}

func NewOutOfRange(idx, bound int) *Error {
	return newError(ErrOutOfRange, idx, bound)
}

func NewInvalidState(msg string, args ...any) *Error {
	return newError(ErrInvalidState, fmt.Sprintf(msg, args...))
}

func NewEmptyVector() *Error {
	return newError(ErrEmptyVector)
}

func NewLengthTooLong(sz, limit int) *Error {
	return newError(ErrLengthTooLong, sz, limit)
}

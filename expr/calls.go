package expr

import (
	"strings"
	"unicode/utf8"
)

// Names of the built-in calls understood by every backend.
const (
	CallUpper = "upper"
	CallLower = "lower"
	CallLen   = "len"
	CallTrim  = "trim"
)

// Upper upper-cases a string operand.
func Upper(n Node) *Call { return CallFunc(CallUpper, strings.ToUpper, n) }

// Lower lower-cases a string operand.
func Lower(n Node) *Call { return CallFunc(CallLower, strings.ToLower, n) }

// Trim strips leading and trailing white space.
func Trim(n Node) *Call { return CallFunc(CallTrim, strings.TrimSpace, n) }

// Len counts the characters of a string operand.
func Len(n Node) *Call { return CallFunc(CallLen, utf8.RuneCountInString, n) }

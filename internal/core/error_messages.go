package core

// error_messages.go maps transport and infrastructure errors to messages
// an uploader can act on. Every message carries a code for support
// reference:
//
//	FILE001  file exceeds the upload size limit
//	FILE004  no file in the request
//	FILE005  empty file name
//	FILE006  file name resolves outside the upload root
//	FILE007  file not found
//	UPL002   all upload slots busy
//	UPL003   upload result expired or unknown
//	UPL004   request cancelled
//	UPL005   request timed out
//	DB004    database unreachable
//	ERR000   anything else
//
// Row-level validation problems are not errors here; they are reported
// inside BatchResult.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Transport-level errors with a fixed user message.
var (
	ErrNoFile         = errors.New("no file provided")
	ErrFileTooLarge   = errors.New("file too large")
	ErrEmptyFileName  = errors.New("empty file name")
	ErrOutsideRoot    = errors.New("file outside allowed location")
	ErrFileNotFound   = errors.New("file not found")
	ErrUploadNotFound = errors.New("upload not found")
)

// UserMessage is an error explained for the uploader.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrFileTooLarge, UserMessage{"File exceeds maximum size limit", "Split the file into smaller chunks", "FILE001"}},
	{ErrNoFile, UserMessage{"No file was provided", "Attach a CSV file in the \"file\" form field", "FILE004"}},
	{ErrEmptyFileName, UserMessage{"No file name was provided", "Send the file name in the request body", "FILE005"}},
	{ErrOutsideRoot, UserMessage{"File is outside the allowed upload directory", "Place the file in the upload directory and send its name only", "FILE006"}},
	{ErrFileNotFound, UserMessage{"File not found", "Check the file name and try again", "FILE007"}},
	{ErrTooManyUploads, UserMessage{"Too many uploads in progress", "Please wait a moment and try again", "UPL002"}},
	{ErrUploadNotFound, UserMessage{"Upload result not found", "The result may have expired. Upload the file again", "UPL003"}},
	{context.Canceled, UserMessage{"Request was cancelled", "Please try again", "UPL004"}},
	{context.DeadlineExceeded, UserMessage{"Request timed out", "Try uploading a smaller file", "UPL005"}},
}

// patternMessages catch errors from drivers that expose no sentinel.
var patternMessages = []struct {
	pattern string
	msg     UserMessage
}{
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"request body too large", UserMessage{"File exceeds maximum size limit", "Split the file into smaller chunks", "FILE001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a UserMessage. It returns the zero value
// for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	lower := strings.ToLower(err.Error())
	for _, pm := range patternMessages {
		if strings.Contains(lower, pm.pattern) {
			return pm.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

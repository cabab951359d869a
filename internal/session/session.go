// Package session holds the per-browser state of the describer page and the
// transitions that are allowed to change it.
package session

import (
	"context"
	"fmt"

	"github.com/example/describer/internal/imageprocessor"
	"github.com/example/describer/internal/usecase"
)

const (
	DefaultWordLimit = 100
	MinWordLimit     = 1
	MaxWordLimit     = 300
)

// Notice messages shown to the user.
const (
	MsgNoImage  = "Please upload an image first."
	MsgCopied   = "Description copied to clipboard!"
	MsgInFlight = "A description is already being generated. Please wait for it to finish."
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a one-shot message rendered once and then discarded.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Describer runs the describe pipeline.
type Describer interface {
	Describe(ctx context.Context, sessionID string, raw []byte, requestedWords int) usecase.Result
}

// Session is the state of one browser session. Description is only written
// by Describe (on success), Clear and ClearText.
type Session struct {
	ID          string                        `json:"id"`
	Description string                        `json:"description"`
	WordLimit   int                           `json:"word_limit"`
	Staged      *imageprocessor.UploadedImage `json:"staged,omitempty"`
	Notice      *Notice                       `json:"notice,omitempty"`
	Clipboard   *string                       `json:"clipboard,omitempty"`
}

// New returns the state of a fresh session.
func New(id string) *Session {
	return &Session{ID: id, WordLimit: DefaultWordLimit}
}

// Upload stages img as the input of the next Describe.
func (s *Session) Upload(img imageprocessor.UploadedImage) {
	s.Staged = &img
}

// AdjustLength sets the word limit of the next Describe. The value is kept as
// requested; the describe pipeline applies the ceiling.
func (s *Session) AdjustLength(words int) {
	s.WordLimit = words
}

// DescribeRequest is the input captured from the session for one Describe run.
type DescribeRequest struct {
	Image     []byte
	WordLimit int
}

// BeginDescribe captures the staged image and word limit. Without an image it
// sets the warning and reports false.
func (s *Session) BeginDescribe() (DescribeRequest, bool) {
	if s.Staged == nil || len(s.Staged.Data) == 0 {
		s.Warn(MsgNoImage)
		return DescribeRequest{}, false
	}
	return DescribeRequest{Image: s.Staged.Data, WordLimit: s.WordLimit}, true
}

// Apply records the outcome of a Describe run. Only a success touches
// Description; failures set an error notice.
func (s *Session) Apply(res usecase.Result) {
	switch res.Kind {
	case usecase.KindNone:
		s.Description = res.Description
	case usecase.KindUserInput:
		s.Warn(MsgNoImage)
	case usecase.KindConfiguration:
		s.fail(fmt.Sprintf("Configuration problem: %v", res.Err))
	case usecase.KindDecode:
		s.fail(fmt.Sprintf("The uploaded file could not be read as an image: %v", res.Err))
	default:
		s.fail(fmt.Sprintf("Something went wrong talking to Claude: %v", res.Err))
	}
}

// Describe runs d on the staged image in one step. Callers that must not hold
// the session during the model call use BeginDescribe and Apply instead.
func (s *Session) Describe(ctx context.Context, d Describer) usecase.Result {
	req, ok := s.BeginDescribe()
	if !ok {
		return usecase.Result{Kind: usecase.KindUserInput, Err: usecase.ErrNoImage}
	}
	res := d.Describe(ctx, s.ID, req.Image, req.WordLimit)
	s.Apply(res)
	return res
}

// Clear resets the description.
func (s *Session) Clear() {
	s.Description = ""
}

// ClearText is the second, separately labelled clear control.
func (s *Session) ClearText() {
	s.Clear()
}

// Copy queues the exact description for the clipboard. It is a no-op and
// returns false when there is nothing to copy.
func (s *Session) Copy() bool {
	if s.Description == "" {
		return false
	}
	payload := s.Description
	s.Clipboard = &payload
	s.Notice = &Notice{Level: LevelSuccess, Message: MsgCopied}
	return true
}

// Warn sets a warning notice.
func (s *Session) Warn(message string) {
	s.Notice = &Notice{Level: LevelWarning, Message: message}
}

func (s *Session) fail(message string) {
	s.Notice = &Notice{Level: LevelError, Message: message}
}

// TakeNotice returns and clears the pending notice.
func (s *Session) TakeNotice() *Notice {
	n := s.Notice
	s.Notice = nil
	return n
}

// TakeClipboard returns and clears the pending clipboard payload.
func (s *Session) TakeClipboard() (string, bool) {
	if s.Clipboard == nil {
		return "", false
	}
	payload := *s.Clipboard
	s.Clipboard = nil
	return payload, true
}

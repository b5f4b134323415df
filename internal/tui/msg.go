package tui

import "github.com/runoshun/tokenscope/internal/domain"

// Msg is the sealed interface for all TUI messages.
// All message types must implement the sealed() method.
//
// go-sumtype:decl Msg
type Msg interface {
	sealed()
}

// MsgTokenizeDue is sent when the debounce delay after an edit has passed.
// It is ignored unless Seq is still the latest edit of the operation.
type MsgTokenizeDue struct {
	OperationKey string
	Seq          uint64
}

func (MsgTokenizeDue) sealed() {}

// MsgTokenized is sent when a tokenize call finishes, successfully or not.
type MsgTokenized struct {
	Err     error
	Request domain.TokenizeRequest
	Tokens  []domain.Token
}

func (MsgTokenized) sealed() {}

// MsgSubmitted is sent when a bulk completion response has been matched.
// Run identifies the run that produced it.
type MsgSubmitted struct {
	Results *domain.Results
	Run     int
}

func (MsgSubmitted) sealed() {}

// MsgStreamUpdate carries a snapshot of the results assembled so far.
type MsgStreamUpdate struct {
	Results *domain.Results
	Run     int
}

func (MsgStreamUpdate) sealed() {}

// MsgStreamDone is sent when a streamed run ends.
type MsgStreamDone struct {
	Err     error
	Results *domain.Results
	Run     int
}

func (MsgStreamDone) sealed() {}

// MsgEditorClosed is sent when the external editor exits.
type MsgEditorClosed struct {
	Err          error
	OperationKey string
	Text         string
}

func (MsgEditorClosed) sealed() {}

// MsgStateSaved is sent after the working script has been persisted.
type MsgStateSaved struct{}

func (MsgStateSaved) sealed() {}

// MsgError is sent when an error occurs.
type MsgError struct {
	Err error
}

func (MsgError) sealed() {}

// MsgClearError is sent to clear the current error message.
type MsgClearError struct{}

func (MsgClearError) sealed() {}

package domain

import "errors"

// Domain errors.
var (
	ErrInvalidRole             = errors.New("invalid role")
	ErrInvalidKind             = errors.New("invalid operation type")
	ErrInvalidTriple           = errors.New("invalid operation triple")
	ErrOperationNotFound       = errors.New("operation not found")
	ErrOptionNotFound          = errors.New("branch option not found")
	ErrNotBranch               = errors.New("operation is not a branch")
	ErrLastOptionOperation     = errors.New("a branch option needs at least one operation")
	ErrNotText                 = errors.New("operation is not a text operation")
	ErrNotCompletion           = errors.New("operation is not a completion")
	ErrSnapshotDrift           = errors.New("operation snapshot out of sync")
	ErrScriptNotReady          = errors.New("script has operations that are not ready to submit")
	ErrEmptyFeedTokens         = errors.New("feed_tokens requires at least one token")
	ErrResultShapeMismatch     = errors.New("result does not match the submitted operations")
	ErrTokenizeFailed          = errors.New("tokenize failed")
	ErrNotEditable             = errors.New("word is not editable")
	ErrEmptyEdit               = errors.New("no alternatives selected")
	ErrWordOutOfRange          = errors.New("word index out of range")
	ErrUnknownOutput           = errors.New("no result for operation")
	ErrStreamClosed            = errors.New("stream closed before completion")
	ErrServerResponse          = errors.New("inference server error")
	ErrScriptNotFound          = errors.New("script not found")
	ErrEmptyScriptName         = errors.New("script name cannot be empty")
	ErrInvalidScriptName       = errors.New("invalid script name")
	ErrEmptyFile               = errors.New("file is empty")
	ErrNoOperationsInFile      = errors.New("no operations found in file")
	ErrUnterminatedFrontmatter = errors.New("frontmatter is not closed with ---")
	ErrInvalidParentRef        = errors.New("invalid parent reference")
	ErrConfigExists            = errors.New("config file already exists")
)

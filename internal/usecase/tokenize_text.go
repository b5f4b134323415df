package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/runoshun/tokenscope/internal/domain"
)

// TokenizeTextInput contains the input for the TokenizeText use case.
type TokenizeTextInput struct {
	Request domain.TokenizeRequest
}

// TokenizeTextOutput contains the output of the TokenizeText use case.
type TokenizeTextOutput struct {
	Request  domain.TokenizeRequest // Echo of the input, to route the response
	Tokens   []domain.Token
	Attempts int
}

// TokenizeText calls the tokenizer with bounded retries and exponential
// backoff. It does not touch the script, so it can run off the event loop;
// the caller applies the output with Script.ApplyTokenized.
type TokenizeText struct {
	tokenizer domain.Tokenizer
	sleeper   domain.Sleeper
	logger    domain.Logger
	retries   int
	backoff   time.Duration
}

// NewTokenizeText creates a new TokenizeText use case.
func NewTokenizeText(tokenizer domain.Tokenizer, sleeper domain.Sleeper, logger domain.Logger, cfg domain.TokenizeConfig) *TokenizeText {
	return &TokenizeText{
		tokenizer: tokenizer,
		sleeper:   sleeper,
		logger:    logger,
		retries:   max(0, cfg.Retries),
		backoff:   cfg.Backoff(),
	}
}

// Execute tokenizes the request text. After the last failed attempt it
// returns an error wrapping domain.ErrTokenizeFailed.
func (uc *TokenizeText) Execute(ctx context.Context, in TokenizeTextInput) (*TokenizeTextOutput, error) {
	scope := in.Request.OperationKey
	delay := uc.backoff
	var lastErr error

	for attempt := 1; attempt <= uc.retries+1; attempt++ {
		tokens, err := uc.tokenizer.Tokenize(ctx, in.Request.Text)
		if err == nil {
			uc.logger.Debug(scope, "tokenize", fmt.Sprintf("seq %d: %d tokens", in.Request.Seq, len(tokens)))
			return &TokenizeTextOutput{Request: in.Request, Tokens: tokens, Attempts: attempt}, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		uc.logger.Warn(scope, "tokenize", fmt.Sprintf("attempt %d failed: %v", attempt, err))

		if attempt > uc.retries {
			break
		}
		if err := uc.sleeper.Sleep(ctx, delay); err != nil {
			lastErr = errors.Join(lastErr, err)
			break
		}
		delay *= 2
	}

	uc.logger.Error(scope, "tokenize", fmt.Sprintf("giving up: %v", lastErr))
	return nil, fmt.Errorf("%w: %w", domain.ErrTokenizeFailed, lastErr)
}

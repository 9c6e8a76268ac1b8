// Package advisor runs the request flow shared by every feature: acknowledgment
// short-circuit, history, prompt, completion, persistence and formatting.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"careerbot/internal/apperr"
	"careerbot/internal/models"
	"careerbot/internal/service/ai"
	"careerbot/internal/service/format"
	"careerbot/internal/service/history"
	"careerbot/internal/service/prompt"

	"go.uber.org/zap"
)

// Answer is the outcome of one advisory request.
type Answer struct {
	Reply     string
	Formatted string
	History   []models.Turn
	// Failed is set when the completion service failed and Reply carries the error text.
	Failed bool
}

// Config tunes the advisor. Nil temperatures fall back to the prompt defaults.
type Config struct {
	StructuredTemperature     *float32
	ConversationalTemperature *float32
	RateLimitPerMinute        int
}

type Advisor struct {
	store     history.Store
	completer ai.Completer
	prompts   *prompt.Assembler
	limiter   *rateLimiter
	logger    *zap.Logger
}

func New(store history.Store, completer ai.Completer, cfg Config, logger *zap.Logger) *Advisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Advisor{
		store:     store,
		completer: completer,
		prompts:   prompt.NewAssembler(cfg.StructuredTemperature, cfg.ConversationalTemperature),
		limiter:   newRateLimiter(cfg.RateLimitPerMinute, time.Minute),
		logger:    logger,
	}
}

// CareerNames asks for a short list of careers matching interest. History is
// returned for the career paths feature but never modified.
func (a *Advisor) CareerNames(ctx context.Context, subject models.Subject, interest string) (Answer, error) {
	interest = strings.TrimSpace(interest)
	if interest == "" {
		return Answer{}, apperr.Validation("interest", "interest is required")
	}
	if !a.limiter.Allow(subject.Key()) {
		return Answer{}, ErrRateLimited
	}
	reply, failed, err := a.complete(ctx, subject, a.prompts.BuildCareerNames(interest))
	if err != nil {
		return Answer{}, err
	}
	return Answer{
		Reply:   reply,
		History: a.read(ctx, subject, models.FeatureCareerPaths),
		Failed:  failed,
	}, nil
}

// Advise produces the fixed-format answer for feature.
func (a *Advisor) Advise(ctx context.Context, subject models.Subject, feature models.Feature, input string) (Answer, error) {
	if !feature.Valid() {
		return Answer{}, apperr.Validation("feature_id", "unknown feature")
	}
	if strings.TrimSpace(input) == "" {
		return Answer{}, apperr.Validation("input", "input is required")
	}
	if !a.limiter.Allow(subject.Key()) {
		return Answer{}, ErrRateLimited
	}

	turns := a.read(ctx, subject, feature)
	req := a.prompts.Build(feature, prompt.Structured, input, turns)
	return a.exchange(ctx, subject, feature, input, req, turns)
}

// Chat answers a free-form message. Greetings and other trivial messages get
// a canned reply without a completion call.
func (a *Advisor) Chat(ctx context.Context, subject models.Subject, feature models.Feature, message string) (Answer, error) {
	if !feature.Valid() {
		return Answer{}, apperr.Validation("feature_id", "unknown feature")
	}
	if strings.TrimSpace(message) == "" {
		return Answer{}, apperr.Validation("message", "message is required")
	}

	if canned, ok := prompt.Acknowledge(message); ok {
		turns, err := a.record(ctx, subject, feature, message, canned)
		if err != nil {
			return Answer{}, err
		}
		return Answer{Reply: canned, Formatted: format.Format(canned, feature), History: turns}, nil
	}

	if !a.limiter.Allow(subject.Key()) {
		return Answer{}, ErrRateLimited
	}
	turns := a.read(ctx, subject, feature)
	req := a.prompts.Build(feature, prompt.Conversational, message, turns)
	return a.exchange(ctx, subject, feature, message, req, turns)
}

// History returns the stored turns of one conversation.
func (a *Advisor) History(ctx context.Context, subject models.Subject, feature models.Feature) ([]models.Turn, error) {
	if !feature.Valid() {
		return nil, apperr.Validation("feature_id", "unknown feature")
	}
	return a.read(ctx, subject, feature), nil
}

// Clear drops one conversation. Clearing an empty conversation is not an error.
func (a *Advisor) Clear(ctx context.Context, subject models.Subject, feature models.Feature) error {
	if !feature.Valid() {
		return apperr.Validation("feature_id", "unknown feature")
	}
	if err := a.store.Clear(ctx, subject, feature); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// exchange completes req and, on success, records the user input and the reply.
func (a *Advisor) exchange(ctx context.Context, subject models.Subject, feature models.Feature, input string, req prompt.Request, prior []models.Turn) (Answer, error) {
	reply, failed, err := a.complete(ctx, subject, req)
	if err != nil {
		return Answer{}, err
	}
	if failed {
		return Answer{Reply: reply, Formatted: format.Format(reply, feature), History: prior, Failed: true}, nil
	}
	turns, err := a.record(ctx, subject, feature, input, reply)
	if err != nil {
		return Answer{}, err
	}
	return Answer{Reply: reply, Formatted: format.Format(reply, feature), History: turns}, nil
}

// complete turns a ServiceError into reply text so the request still succeeds.
func (a *Advisor) complete(ctx context.Context, subject models.Subject, req prompt.Request) (string, bool, error) {
	reply, err := a.completer.Complete(ctx, req)
	if err == nil {
		return reply, false, nil
	}
	var svcErr *ai.ServiceError
	if errors.As(err, &svcErr) {
		a.logger.Warn("completion service error",
			zap.String("subject", subject.Key()),
			zap.String("provider", svcErr.Provider),
			zap.Error(svcErr.Cause))
		return "Error: " + svcErr.Error(), true, nil
	}
	return "", false, fmt.Errorf("complete: %w", err)
}

func (a *Advisor) record(ctx context.Context, subject models.Subject, feature models.Feature, input, reply string) ([]models.Turn, error) {
	if _, err := a.store.Append(ctx, subject, feature, models.RoleUser, input); err != nil {
		return nil, fmt.Errorf("append user turn: %w", err)
	}
	turns, err := a.store.Append(ctx, subject, feature, models.RoleAssistant, reply)
	if err != nil {
		return nil, fmt.Errorf("append assistant turn: %w", err)
	}
	return turns, nil
}

// read never fails: a broken backend degrades to an empty conversation.
func (a *Advisor) read(ctx context.Context, subject models.Subject, feature models.Feature) []models.Turn {
	turns, err := a.store.Read(ctx, subject, feature)
	if err != nil {
		a.logger.Error("read history failed",
			zap.String("subject", subject.Key()),
			zap.Int("feature", int(feature)),
			zap.Error(err))
		return []models.Turn{}
	}
	return turns
}

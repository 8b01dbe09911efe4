// Package auth issues, validates, and revokes bearer session tokens.
//
// Validation is an ordered chain: extract the credential, verify the signature, resolve a live
// session, authorize scopes. The first failing step decides the Result; nothing is retried.
// Storage and policy failures are returned as errors, separate from rejects.
package auth

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"tokengate/internal/session/repository"
	"tokengate/internal/telemetry"
)

// Validation stages, recorded on the span as auth.stage.
const (
	stageExtract   = "extract"
	stageVerify    = "verify"
	stageResolve   = "resolve"
	stageAuthorize = "authorize"
	stageAccept    = "accept"
)

// Validator runs the credential decision chain. It holds no per-request state.
type Validator struct {
	verifier TokenVerifier
	sessions repository.Repository
	opts     options
}

func NewValidator(verifier TokenVerifier, sessions repository.Repository, opts ...Option) *Validator {
	return &Validator{verifier: verifier, sessions: sessions, opts: buildOptions(opts)}
}

// Validate decides whether cred may perform an operation requiring any of required.
func (v *Validator) Validate(ctx context.Context, cred Credential, required []string) (Result, error) {
	ctx, span := v.opts.tracer.Start(ctx, "auth.Validate")
	defer span.End()

	res, stage, userID, err := v.run(ctx, cred, required)
	span.SetAttributes(attribute.String("auth.stage", stage))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		v.opts.metrics.Validation("error")
		return Result{}, err
	}
	if res.Accepted() {
		span.SetAttributes(attribute.String("auth.outcome", "accepted"))
		v.opts.metrics.Validation("accepted")
		return res, nil
	}
	span.SetAttributes(attribute.String("auth.outcome", res.Reject.String()))
	v.opts.metrics.Validation(res.Reject.String())
	v.opts.emit(&telemetry.Event{Type: telemetry.EventCredentialRejected, UserID: userID, Reason: res.Reject.String()})
	return res, nil
}

func (v *Validator) run(ctx context.Context, cred Credential, required []string) (Result, string, string, error) {
	token, ok := extractToken(cred)
	if !ok {
		return reject(RejectMalformedCredential), stageExtract, "", nil
	}

	claims, err := v.verifier.Verify(token)
	if err != nil {
		return reject(RejectInvalidToken), stageVerify, "", nil
	}

	owner, err := v.sessions.FindActiveSessionOwner(ctx, claims.SessionIDHash, claims.Subject)
	if err != nil {
		return Result{}, stageResolve, claims.Subject, fmt.Errorf("resolve session: %w", err)
	}
	if owner == nil || len(owner.Sessions) == 0 {
		return reject(RejectUnknownSession), stageResolve, claims.Subject, nil
	}
	session := owner.Sessions[0]

	allowed, err := v.opts.authorizer.Authorize(ctx, session.Scopes, required)
	if err != nil {
		return Result{}, stageAuthorize, claims.Subject, fmt.Errorf("authorize scopes: %w", err)
	}
	if !allowed {
		return reject(RejectInsufficientScope), stageAuthorize, claims.Subject, nil
	}

	return accept(&Identity{
		UserID:        owner.ID,
		SessionIDHash: session.SessionIDHash,
		Scopes:        session.Scopes,
		ExpiresAt:     session.ExpiresAt,
		User:          owner,
	}), stageAccept, claims.Subject, nil
}

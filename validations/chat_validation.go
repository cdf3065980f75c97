package validations

import (
	"context"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	domainChat "github.com/karacho11/first-chatbot-back/domains/chat"
	pkgError "github.com/karacho11/first-chatbot-back/pkg/error"
)

// User names become part of cache keys, so the key separator and glob
// metacharacters are rejected.
var userNamePattern = regexp.MustCompile(`^[^:*?\[\]\\]+$`)

const (
	maxDocuments       = 2047
	maxTimestampLength = 64
)

func userNameRules() []validation.Rule {
	return []validation.Rule{
		validation.Length(1, 100),
		validation.Match(userNamePattern).Error("must not contain ':', '*', '?', '[', ']' or '\\'"),
	}
}

func ValidateCreateChat(ctx context.Context, request domainChat.CreateChatRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Prompt, validation.Required),
		validation.Field(&request.Temperature, validation.Min(0.0), validation.Max(2.0)),
		validation.Field(&request.TopK, validation.Min(0)),
		validation.Field(&request.UserName, userNameRules()...),
		validation.Field(&request.Timestamp, validation.Length(1, maxTimestampLength)),
		validation.Field(&request.Documents, validation.Length(0, maxDocuments)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateUserName(ctx context.Context, userName string) error {
	rules := append([]validation.Rule{validation.Required}, userNameRules()...)
	if err := validation.ValidateWithContext(ctx, userName, rules...); err != nil {
		return pkgError.ValidationError("userName: " + err.Error())
	}
	return nil
}

func ValidateTimestamp(ctx context.Context, timestamp string) error {
	if err := validation.ValidateWithContext(ctx, timestamp, validation.Required, validation.Length(1, maxTimestampLength)); err != nil {
		return pkgError.ValidationError("timestamp: " + err.Error())
	}
	return nil
}

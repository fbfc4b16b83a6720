package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"usermanager/internal/core/domain/user"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/require"
)

type stubSES struct {
	inputs []*ses.SendTemplatedEmailInput
	err    error
}

func (s *stubSES) SendTemplatedEmail(
	ctx context.Context,
	params *ses.SendTemplatedEmailInput,
	optFns ...func(*ses.Options),
) (*ses.SendTemplatedEmailOutput, error) {
	s.inputs = append(s.inputs, params)
	return &ses.SendTemplatedEmailOutput{}, s.err
}

func newTestSender(client *stubSES) *EmailSender {
	baseURL, _ := url.Parse("https://accounts.example.com/password-reset")
	return newEmailSender(client, "noreply@example.com", "password-reset", *baseURL)
}

func TestSendPasswordResetToken(t *testing.T) {
	client := &stubSES{}
	sender := newTestSender(client)
	u := user.User{ID: "user-1", Username: "alice", Email: "alice@example.com"}

	err := sender.SendPasswordResetToken(context.Background(), u, "T1")

	require.Nil(t, err)
	require.Len(t, client.inputs, 1)
	input := client.inputs[0]
	require.Equal(t, "noreply@example.com", *input.Source)
	require.Equal(t, []string{"alice@example.com"}, input.Destination.ToAddresses)
	require.Equal(t, "password-reset", *input.Template)

	params := passwordResetTemplateParams{}
	require.Nil(t, json.Unmarshal([]byte(*input.TemplateData), &params))
	require.Equal(t, "alice", params.Username)
	require.Equal(t, "https://accounts.example.com/password-reset/T1", params.PasswordResetUrl)
}

func TestSendPasswordResetTokenWithoutEmail(t *testing.T) {
	client := &stubSES{}
	sender := newTestSender(client)

	err := sender.SendPasswordResetToken(context.Background(), user.User{ID: "user-1"}, "T1")

	require.NotNil(t, err)
	require.Empty(t, client.inputs)
}

func TestSendPasswordResetTokenClientError(t *testing.T) {
	client := &stubSES{err: errors.New("throttled")}
	sender := newTestSender(client)

	err := sender.SendPasswordResetToken(
		context.Background(),
		user.User{ID: "user-1", Email: "alice@example.com"},
		"T1",
	)

	require.EqualError(t, err, "throttled")
}

package mail

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSESAPI struct {
	input *ses.SendEmailInput
	err   error
}

func (m *mockSESAPI) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.input = params
	if m.err != nil {
		return nil, m.err
	}
	return &ses.SendEmailOutput{}, nil
}

func TestMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{
			name: "valid with HTML body",
			msg:  Message{To: "a@b.com", Subject: "Hi", HTMLBody: "<p>hi</p>"},
		},
		{
			name: "valid with text body",
			msg:  Message{To: "a@b.com", Subject: "Hi", TextBody: "hi"},
		},
		{
			name:    "missing recipient",
			msg:     Message{Subject: "Hi", TextBody: "hi"},
			wantErr: true,
		},
		{
			name:    "missing subject",
			msg:     Message{To: "a@b.com", TextBody: "hi"},
			wantErr: true,
		},
		{
			name:    "missing body",
			msg:     Message{To: "a@b.com", Subject: "Hi"},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMessage)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSESSender_Send(t *testing.T) {
	msg := Message{
		To:       "user@example.com",
		Subject:  "Verify Your Email",
		HTMLBody: "<p>verify</p>",
		TextBody: "verify",
	}

	t.Run("builds SES input from message", func(t *testing.T) {
		api := &mockSESAPI{}
		s := &SESSender{client: api, fromAddress: "noreply@yeschef.com"}

		require.NoError(t, s.Send(context.Background(), msg))
		require.NotNil(t, api.input)
		assert.Equal(t, "noreply@yeschef.com", *api.input.Source)
		assert.Equal(t, []string{"user@example.com"}, api.input.Destination.ToAddresses)
		assert.Equal(t, "Verify Your Email", *api.input.Message.Subject.Data)
		assert.Equal(t, "<p>verify</p>", *api.input.Message.Body.Html.Data)
		assert.Equal(t, "verify", *api.input.Message.Body.Text.Data)
	})

	t.Run("wraps provider failures", func(t *testing.T) {
		api := &mockSESAPI{err: errors.New("throttled")}
		s := &SESSender{client: api, fromAddress: "noreply@yeschef.com"}

		err := s.Send(context.Background(), msg)
		assert.ErrorIs(t, err, ErrSendFailed)
	})

	t.Run("rejects invalid message without calling the API", func(t *testing.T) {
		api := &mockSESAPI{}
		s := &SESSender{client: api, fromAddress: "noreply@yeschef.com"}

		err := s.Send(context.Background(), Message{})
		assert.ErrorIs(t, err, ErrInvalidMessage)
		assert.Nil(t, api.input)
	})
}

func TestLogSender_Send(t *testing.T) {
	s := NewLogSender(slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.NoError(t, s.Send(context.Background(), Message{
		To: "a@b.com", Subject: "Hi", TextBody: "hi",
	}))
	assert.Error(t, s.Send(context.Background(), Message{}))
}

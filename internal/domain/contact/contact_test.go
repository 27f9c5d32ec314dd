package contact

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/fish-storefront/internal/domain/forms"
	"github.com/xenking/fish-storefront/internal/messaging"
	"github.com/xenking/fish-storefront/internal/storage/memory"
)

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	var sent []string
	svc := NewService(messaging.NewBridge("wa.me", "42", messaging.OpenerFunc(func(_ context.Context, link string) error {
		sent = append(sent, link)
		return nil
	})))

	draft := forms.ContactForm{Name: "Ravi", Message: "Half-typed"}
	require.NoError(t, SaveDraft(ctx, store, draft))
	got, ok := LoadDraft(ctx, store)
	require.True(t, ok)
	assert.Equal(t, draft, got)

	receipt, err := svc.Submit(ctx, store, forms.ContactForm{
		Name:    "Ravi",
		Phone:   "9876543210",
		Subject: "feedback",
		Message: " Great prawns! ",
	})
	require.NoError(t, err)
	assert.Contains(t, receipt.Message, "Subject: Feedback\n")
	assert.Contains(t, receipt.Message, "*Message:*\nGreat prawns!\n")
	assert.Equal(t, []string{receipt.Link}, sent)

	_, ok = LoadDraft(ctx, store)
	assert.False(t, ok, "draft removed after sending")
}

func TestSubmit_Invalid(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	var sent int
	svc := NewService(messaging.NewBridge("", "", messaging.OpenerFunc(func(context.Context, string) error {
		sent++
		return nil
	})))

	require.NoError(t, SaveDraft(ctx, store, forms.ContactForm{Name: "Ravi"}))

	_, err := svc.Submit(ctx, store, forms.ContactForm{
		Name:    "Ravi",
		Phone:   "9876543210",
		Email:   "ravi@",
		Subject: "order",
		Message: "Hi",
	})
	var ve *forms.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, forms.MsgEmail, ve.Message)
	assert.Zero(t, sent)

	_, ok := LoadDraft(ctx, store)
	assert.True(t, ok, "draft kept on failure")
}

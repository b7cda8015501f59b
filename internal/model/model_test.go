package model

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestUserMessageCount(t *testing.T) {
	s := &Session{Messages: []Message{
		{Sender: SenderAssistant, Content: "hi"},
		{Sender: SenderUser, Content: "hello"},
		{Sender: SenderAssistant, Content: "how can I help"},
		{Sender: SenderUser, Content: "my roof leaks"},
	}}
	require.Equal(t, 2, s.UserMessageCount())
	require.Zero(t, (&Session{}).UserMessageCount())
}

func TestHistory(t *testing.T) {
	s := &Session{}
	for i := 0; i < 8; i++ {
		s.Messages = append(s.Messages, Message{
			Sender:  SenderUser,
			Content: fmt.Sprintf("m%d", i),
		})
	}
	s.Messages[7].Photos = []PhotoRef{{Name: "a.jpg"}, {Name: "b.jpg"}}

	entries := s.History(5)
	require.Len(t, entries, 5)
	require.Equal(t, "m3", entries[0].Content)
	require.Equal(t, "m7", entries[4].Content)
	require.Equal(t, 2, entries[4].PhotosCount)

	// Short logs come back whole.
	require.Len(t, s.History(100), 8)
	require.Empty(t, (&Session{}).History(5))
}

func TestJobsTotal(t *testing.T) {
	items := []JobLineItem{
		{Name: "Fence repair", Price: decimal.NewFromFloat(149.99)},
		{Name: "Gate hinge", Price: decimal.NewFromFloat(25.01)},
	}
	require.True(t, JobsTotal(items).Equal(decimal.NewFromInt(175)))
	require.True(t, JobsTotal(nil).Equal(decimal.Zero))
}

func TestContactDraftComplete(t *testing.T) {
	full := ContactDraft{
		Address:  "12 Oak St",
		FullName: "Pat Doe",
		Phone:    "415-555-0100",
		Email:    "pat@example.com",
	}
	require.True(t, full.Complete())

	missing := full
	missing.Email = "   "
	require.False(t, missing.Complete())
	require.False(t, ContactDraft{}.Complete())
}

package chatmodel_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"reportability-engine/internal/chatmodel"
)

func TestChatRequestValidate(t *testing.T) {
	require.Error(t, chatmodel.ChatRequest{}.Validate())

	req := chatmodel.ChatRequest{Messages: []chatmodel.ChatMessage{{Role: chatmodel.RoleUser, Content: "hi"}}}
	require.NoError(t, req.Validate())
}

package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/soaringjerry/SurveyForge/internal/models"
)

// HistoryWindow is how many trailing turns are fed back into the prompt.
const HistoryWindow = 15

type ChatStore interface {
	RecentChatTurns(ctx context.Context, username string, limit int) ([]models.ChatTurn, error)
	// AppendChatTurns upserts the user's history and returns its length afterwards.
	AppendChatTurns(ctx context.Context, username string, turns ...models.ChatTurn) (int, error)
}

// CompletionClient sends a single prompt to an external text-completion service.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type SupportReply struct {
	Reply  string `json:"reply"`
	Memory int    `json:"memory"`
}

type SupportService struct {
	store  ChatStore
	client CompletionClient
}

func NewSupportService(store ChatStore, client CompletionClient) *SupportService {
	return &SupportService{store: store, client: client}
}

func (s *SupportService) Ask(ctx context.Context, username, message string) (*SupportReply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, NewInvalidError("Message cannot be empty")
	}
	history, err := s.store.RecentChatTurns(ctx, username, HistoryWindow)
	if err != nil {
		return nil, err
	}
	if s.client == nil {
		return nil, NewDependencyError("AI Error: completion service not configured")
	}
	reply, err := s.client.Complete(ctx, buildSupportPrompt(username, history, message))
	if err != nil {
		return nil, NewDependencyError("AI Error: " + err.Error())
	}
	n, err := s.store.AppendChatTurns(ctx, username,
		models.ChatTurn{Role: models.RoleUser, Content: message},
		models.ChatTurn{Role: models.RoleAssistant, Content: reply},
	)
	if err != nil {
		return nil, err
	}
	return &SupportReply{Reply: reply, Memory: n}, nil
}

func buildSupportPrompt(username string, history []models.ChatTurn, message string) string {
	var chatLog strings.Builder
	for _, t := range history {
		role := "User"
		if t.Role != models.RoleUser {
			role = "Assistant"
		}
		fmt.Fprintf(&chatLog, "%s: %s\n", role, t.Content)
	}
	return fmt.Sprintf(supportPromptTemplate, chatLog.String(), username, message)
}

const supportPromptTemplate = `
You are SurveyForge's official AI Customer Support Assistant.

Below is the previous conversation between the user and you:

%s

The logged-in user is: %s

Here is an overview of the SurveyForge platform so you fully understand the system:

SurveyForge is a modern online platform for building, sharing, and analyzing surveys.
Users can create surveys using different question types such as multiple choice, short text, long text, yes/no, checkboxes, and ratings.
They can write a title, description, add questions, mark them as required, and store the survey in their personal dashboard.

Users can manage surveys they created, view them in "My Surveys", delete them, and explore surveys made by other users.
They can share a public survey link that anyone can use to submit responses.
Survey creators can view all submitted responses, including individual answers, securely stored in MongoDB.

SurveyForge uses a secure login system with JWT authentication. Only the creator of a survey can view or delete its responses.
Responses are saved with the answers, the responding user, and the related survey ID.
The backend is built using FastAPI, database is MongoDB, and the frontend is Next.js.

Your new message from the user is:
"%s"

Your job:
- Provide accurate help about using SurveyForge
- Assist with surveys, dashboards, login issues, survey creation, response viewing, and error troubleshooting
- Keep answers short unless detailed guidance is needed
- NEVER make up features that do not exist
- Be friendly, professional, and clear at all times
- If the user asks about features not currently available, politely state that it's not supported yet
`
